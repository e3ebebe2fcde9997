package nparam

import (
	"encoding/json"
	"net/http"
	"net/url"
	"reflect"

	"github.com/muir/ndispatch/nvelope"
	"github.com/muir/reflectutils"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// requestParts are the pieces of a request that fillers read from.
// The body and query are only extracted when some filler needs them.
type requestParts struct {
	r     *http.Request
	body  []byte
	query url.Values
}

type filler func(model reflect.Value, rp *requestParts) error

// structDecoder fills a fresh struct from each request.  The struct
// tags are examined once, when the decoder is built.
type structDecoder struct {
	model         reflect.Type
	returnAddress bool
	needsBody     bool
	needsQuery    bool
	fillers       []filler
}

// newStructDecoder returns nil, nil when t is not a struct (or pointer
// to struct) with tagged fields.
func (res *Resolver) newStructDecoder(t reflect.Type) (*structDecoder, error) {
	sd := &structDecoder{}
	// nolint:exhaustive
	switch t.Kind() {
	case reflect.Struct:
		sd.model = t
	case reflect.Ptr:
		if t.Elem().Kind() != reflect.Struct {
			return nil, nil
		}
		sd.model = t.Elem()
		sd.returnAddress = true
	default:
		return nil, nil
	}

	var returnError error
	reflectutils.WalkStructElements(sd.model, func(field reflect.StructField) bool {
		if returnError != nil {
			return false
		}
		tag, ok := field.Tag.Lookup(res.tag)
		if !ok {
			return true
		}
		if !field.IsExported() {
			returnError = errors.Errorf("field %s is tagged but not exported", field.Name)
			return false
		}
		base, tags, err := parseTag(tag)
		if err != nil {
			returnError = errors.Wrap(err, field.Name)
			return false
		}
		f, err := res.makeFiller(sd, field, base, tags)
		if err != nil {
			returnError = errors.Wrap(err, field.Name)
			return false
		}
		sd.fillers = append(sd.fillers, f)
		return false
	})
	if returnError != nil {
		return nil, errors.Wrap(returnError, reflectutils.TypeName(t))
	}
	if len(sd.fillers) == 0 {
		return nil, nil
	}
	return sd, nil
}

func (res *Resolver) makeFiller(sd *structDecoder, field reflect.StructField, base string, tags tags) (filler, error) {
	if base == "model" {
		sd.needsBody = true
		return func(model reflect.Value, rp *requestParts) error {
			if len(rp.body) == 0 {
				return nil
			}
			f := model.FieldByIndex(field.Index)
			ct := mediaType(rp.r, res.defaultContentType)
			decoder, ok := res.decoders[ct]
			if !ok {
				return errors.Errorf("No body decoder for content type %s", ct)
			}
			return errors.Wrapf(decoder(rp.body, f.Addr().Interface()),
				"Could not decode %s into %s", ct, reflectutils.TypeName(field.Type))
		}, nil
	}

	name := field.Name
	if tags.name != "" {
		name = tags.name
	}

	if base == "json" {
		return jsonFiller(sd, field, name, tags, res.decoders)
	}

	unpack, multiUnpack, err := getUnpacker(field.Type, field.Name, name, base, tags, res.decoders)
	if err != nil {
		return nil, err
	}
	switch base {
	case "path":
		return func(model reflect.Value, rp *requestParts) error {
			value := rp.r.PathValue(name)
			if value == "" {
				return nil
			}
			f := model.FieldByIndex(field.Index)
			return errors.Wrapf(
				unpack("path", f, value),
				"path element %s into field %s",
				name, field.Name)
		}, nil
	case "header":
		if multiUnpack != nil {
			return func(model reflect.Value, rp *requestParts) error {
				values := rp.r.Header.Values(name)
				if len(values) == 0 {
					return nil
				}
				f := model.FieldByIndex(field.Index)
				return errors.Wrapf(
					multiUnpack("header", f, values),
					"header %s into field %s",
					name, field.Name)
			}, nil
		}
		return func(model reflect.Value, rp *requestParts) error {
			value := rp.r.Header.Get(name)
			if value == "" {
				return nil
			}
			f := model.FieldByIndex(field.Index)
			return errors.Wrapf(
				unpack("header", f, value),
				"header %s into field %s",
				name, field.Name)
		}, nil
	case "query":
		sd.needsQuery = true
		if multiUnpack != nil {
			return func(model reflect.Value, rp *requestParts) error {
				values, ok := rp.query[name]
				if !ok {
					return nil
				}
				f := model.FieldByIndex(field.Index)
				return errors.Wrapf(
					multiUnpack("query", f, values),
					"query parameter %s into field %s",
					name, field.Name)
			}, nil
		}
		return func(model reflect.Value, rp *requestParts) error {
			if _, ok := rp.query[name]; !ok {
				return nil
			}
			f := model.FieldByIndex(field.Index)
			return errors.Wrapf(
				unpack("query", f, rp.query.Get(name)),
				"query parameter %s into field %s",
				name, field.Name)
		}, nil
	case "cookie":
		return func(model reflect.Value, rp *requestParts) error {
			cookie, err := rp.r.Cookie(name)
			if err != nil {
				if errors.Is(err, http.ErrNoCookie) {
					return nil
				}
				return errors.Wrapf(err, "cookie parameter %s into field %s", name, field.Name)
			}
			f := model.FieldByIndex(field.Index)
			return errors.Wrapf(
				unpack("cookie", f, cookie.Value),
				"cookie parameter %s into field %s",
				name, field.Name)
		}, nil
	default:
		return nil, errors.Errorf("unsupported source '%s'", base)
	}
}

// jsonFiller picks one value out of a JSON body with a gjson path.
// Scalars go through the regular unpackers; anything with structure
// is decoded from the raw JSON of the match.
func jsonFiller(sd *structDecoder, field reflect.StructField, path string, tags tags, decoders map[string]Decoder) (filler, error) {
	sd.needsBody = true
	var unpack unpacker
	if !hasStructure(field.Type) {
		var err error
		unpack, _, err = getUnpacker(field.Type, field.Name, path, "json", tags.WithoutExplode(), decoders)
		if err != nil {
			return nil, err
		}
	}
	return func(model reflect.Value, rp *requestParts) error {
		result := gjson.GetBytes(rp.body, path)
		if !result.Exists() || result.Type == gjson.Null {
			return nil
		}
		f := model.FieldByIndex(field.Index)
		if unpack != nil {
			return errors.Wrapf(
				unpack("json", f, result.String()),
				"json path %s into field %s",
				path, field.Name)
		}
		return errors.Wrapf(
			json.Unmarshal([]byte(result.Raw), f.Addr().Interface()),
			"json path %s into field %s",
			path, field.Name)
	}, nil
}

func hasStructure(t reflect.Type) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if reflect.PointerTo(t).Implements(textUnmarshallerType) {
		return false
	}
	// nolint:exhaustive
	switch t.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct, reflect.Interface:
		return true
	default:
		return false
	}
}

// Provide implements ndispatch.ValueProvider
func (sd *structDecoder) Provide(r *http.Request) (reflect.Value, error) {
	rp := &requestParts{r: r}
	if sd.needsBody {
		body, err := readBody(r)
		if err != nil {
			return reflect.Value{}, errors.Wrap(nvelope.BadRequest(err), "read body")
		}
		rp.body = body
	}
	if sd.needsQuery {
		rp.query = r.URL.Query()
	}
	mp := reflect.New(sd.model)
	model := mp.Elem()
	var err error
	for _, f := range sd.fillers {
		if e := f(model, rp); e != nil && err == nil {
			err = e
		}
	}
	if err != nil {
		return reflect.Value{}, errors.Wrapf(nvelope.BadRequest(err), "%s model", reflectutils.TypeName(sd.model))
	}
	if sd.returnAddress {
		return mp, nil
	}
	return model, nil
}
