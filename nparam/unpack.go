package nparam

import (
	"encoding"
	"reflect"
	"strconv"
	"strings"

	"github.com/muir/reflectutils"
	"github.com/pkg/errors"
)

// unpacker stores one textual value into target.  From names the
// part of the request the value came from and is only used in errors.
type unpacker func(from string, target reflect.Value, value string) error

// multiUnpacker stores the repeated values of an exploded query
// parameter or header into a slice target.
type multiUnpacker func(from string, target reflect.Value, values []string) error

type setter func(target reflect.Value, value string) error

func setInt(target reflect.Value, value string) error {
	i, err := strconv.ParseInt(value, 10, target.Type().Bits())
	if err == nil {
		target.SetInt(i)
	}
	return err
}

func setUint(target reflect.Value, value string) error {
	u, err := strconv.ParseUint(value, 10, target.Type().Bits())
	if err == nil {
		target.SetUint(u)
	}
	return err
}

func setFloat(target reflect.Value, value string) error {
	f, err := strconv.ParseFloat(value, target.Type().Bits())
	if err == nil {
		target.SetFloat(f)
	}
	return err
}

func setBool(target reflect.Value, value string) error {
	b, err := strconv.ParseBool(value)
	if err == nil {
		target.SetBool(b)
	}
	return err
}

func setString(target reflect.Value, value string) error {
	target.SetString(value)
	return nil
}

var scalarSetters = map[reflect.Kind]setter{
	reflect.Int:     setInt,
	reflect.Int8:    setInt,
	reflect.Int16:   setInt,
	reflect.Int32:   setInt,
	reflect.Int64:   setInt,
	reflect.Uint:    setUint,
	reflect.Uint8:   setUint,
	reflect.Uint16:  setUint,
	reflect.Uint32:  setUint,
	reflect.Uint64:  setUint,
	reflect.Uintptr: setUint,
	reflect.Float32: setFloat,
	reflect.Float64: setFloat,
	reflect.Bool:    setBool,
	reflect.String:  setString,
}

var textUnmarshallerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()

func setText(target reflect.Value, value string) error {
	return target.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(value))
}

func named(name string, set setter) unpacker {
	return func(from string, target reflect.Value, value string) error {
		return errors.Wrapf(set(target, value), "decode %s %s", from, name)
	}
}

// fillSlice replaces target with a slice holding one element per value.
func fillSlice(from string, target reflect.Value, each unpacker, values []string) error {
	s := reflect.MakeSlice(target.Type(), len(values), len(values))
	for i, value := range values {
		if err := each(from, s.Index(i), value); err != nil {
			return err
		}
	}
	target.Set(s)
	return nil
}

// getUnpacker builds the converter for a header, query parameter,
// path element, cookie, or scalar value picked out of a JSON body.
// At most one of the two returned unpackers is set: the multi
// unpacker is used when every repeated value should be kept.
func getUnpacker(
	fieldType reflect.Type,
	fieldName string,
	name string,
	base string,
	tags tags,
	decoders map[string]Decoder,
) (unpacker, multiUnpacker, error) {
	switch {
	case reflect.PointerTo(fieldType).Implements(textUnmarshallerType):
		return named(name, setText), nil, nil
	case tags.content != "":
		return contentUnpacker(fieldType, fieldName, name, base, tags, decoders)
	}
	if set, ok := scalarSetters[fieldType.Kind()]; ok {
		return named(name, set), nil, nil
	}

	// nolint:exhaustive
	switch fieldType.Kind() {
	case reflect.Ptr:
		one, many, err := getUnpacker(fieldType.Elem(), fieldName, name, base, tags, decoders)
		if err != nil {
			return nil, nil, err
		}
		alloc := func(target reflect.Value) reflect.Value {
			target.Set(reflect.New(fieldType.Elem()))
			return target.Elem()
		}
		if many != nil {
			return nil, func(from string, target reflect.Value, values []string) error {
				return many(from, alloc(target), values)
			}, nil
		}
		return func(from string, target reflect.Value, value string) error {
			return one(from, alloc(target), value)
		}, nil, nil

	case reflect.Slice:
		multiValued := base == "query" || base == "header"
		if !multiValued && tags.delimiter != "," {
			return nil, nil, errors.New("delimiter setting is only allowed for 'query' and 'header' parameters")
		}
		each, _, err := getUnpacker(fieldType.Elem(), fieldName, name, base, tags.WithoutExplode(), decoders)
		if err != nil {
			return nil, nil, err
		}
		if multiValued && tags.explode {
			return nil, func(from string, target reflect.Value, values []string) error {
				return fillSlice(from, target, each, values)
			}, nil
		}
		return func(from string, target reflect.Value, value string) error {
			return fillSlice(from, target, each, strings.Split(value, tags.delimiter))
		}, nil, nil
	}
	return nil, nil, errors.Errorf(
		"Cannot decode into %s, %s does not implement UnmarshalText",
		fieldName, reflectutils.TypeName(fieldType))
}

// contentUnpacker is used for fields tagged "content=application/json"
// and the like: the text is handed to the decoder for that media type.
func contentUnpacker(
	fieldType reflect.Type,
	fieldName string,
	name string,
	base string,
	tags tags,
	decoders map[string]Decoder,
) (unpacker, multiUnpacker, error) {
	decoder, ok := decoders[tags.content]
	if !ok {
		decoder, ok = defaultDecoders[tags.content]
	}
	if !ok {
		return nil, nil, errors.Errorf("No decoder provided for content type '%s'", tags.content)
	}
	decode := func(target reflect.Value, value string) error {
		return decoder([]byte(value), target.Addr().Interface())
	}
	if tags.explode && (base == "query" || base == "header") && fieldType.Kind() == reflect.Slice {
		each := named(name, decode)
		return nil, func(from string, target reflect.Value, values []string) error {
			return fillSlice(from, target, each, values)
		}, nil
	}
	return func(_ string, target reflect.Value, value string) error {
		return errors.Wrap(decode(target, value), fieldName)
	}, nil, nil
}
