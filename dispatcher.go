package ndispatch

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/muir/ndispatch/nvelope"
	"github.com/muir/reflectutils"
	"github.com/pkg/errors"
)

// Dispatcher calls one handler and turns its result into a
// *nvelope.Response.  How the result is converted is fixed when
// the Dispatcher is created (see Kind).  Dispatchers are immutable
// and may be used by any number of goroutines at once.
type Dispatcher struct {
	invocable  *Invocable
	handler    InvocationHandler
	providers  []ValueProvider
	kind       Kind
	entityType reflect.Type // TypedResult only
	passedOver []string
}

// Kind reports which conversion this Dispatcher uses
func (d *Dispatcher) Kind() Kind { return d.kind }

// Invocable returns the handler description the Dispatcher was
// created from
func (d *Dispatcher) Invocable() *Invocable { return d.invocable }

// EntityType is the declared return type of a TypedResult
// Dispatcher and nil for other kinds.  Dispatch does not use it;
// it is there for encoders that want to know the declared type.
func (d *Dispatcher) EntityType() reflect.Type { return d.entityType }

// Explain describes why this Dispatcher has the Kind it has
func (d *Dispatcher) Explain() string {
	s := d.invocable.String() + " is " + d.kind.String()
	if len(d.passedOver) == 0 {
		return s
	}
	return s + "\n\t" + strings.Join(d.passedOver, "\n\t")
}

func (d *Dispatcher) String() string {
	return d.kind.String() + " " + d.invocable.String()
}

// Dispatch calls the handler once and converts its result.
//
// The target is the receiver when the handler is a method and it is
// ignored otherwise.  Every ValueProvider is asked for a fresh value.
// Failures from the providers or the handler are returned as-is:
// Dispatch does not retry and never substitutes a response for an
// error.
func (d *Dispatcher) Dispatch(target interface{}, r *http.Request) (*nvelope.Response, error) {
	tv, err := d.targetValue(target)
	if err != nil {
		return nil, err
	}
	args, err := d.paramValues(r)
	if err != nil {
		return nil, err
	}
	result, err := d.handler.Invoke(d.invocable, tv, args)
	if err != nil {
		return nil, err
	}

	switch d.kind {
	case VoidResult:
		return nvelope.NoContent(), nil

	case ResponseResult:
		if !result.IsValid() {
			return nil, d.contractError(nil)
		}
		resp, ok := asResponse(result)
		if !ok {
			if result.Kind() == reflect.Ptr && result.IsNil() && result.Type().AssignableTo(responseType) {
				return nil, nil
			}
			return nil, d.contractError(result.Type())
		}
		return resp, nil

	case ObjectResult:
		if absent(result) {
			return nvelope.NoContent(), nil
		}
		if resp, ok := asResponse(result); ok {
			return resp, nil
		}
		return nvelope.OK(result.Interface()), nil

	case TypedResult:
		if absent(result) {
			return nvelope.NoContent(), nil
		}
		return nvelope.OK(result.Interface()), nil

	default:
		return nil, errors.Errorf("%s: dispatcher was not created by a Provider", d.invocable.name)
	}
}

func (d *Dispatcher) targetValue(target interface{}) (reflect.Value, error) {
	inv := d.invocable
	if inv.receiver == nil {
		return reflect.Value{}, nil
	}
	if target == nil {
		return reflect.Value{}, &ContractError{
			Handler:  inv.name,
			Expected: inv.receiver,
			What:     "dispatch target",
		}
	}
	tv := reflect.ValueOf(target)
	if !tv.Type().AssignableTo(inv.receiver) {
		return reflect.Value{}, &ContractError{
			Handler:  inv.name,
			Expected: inv.receiver,
			Got:      tv.Type(),
			What:     "dispatch target",
		}
	}
	return tv, nil
}

// paramValues asks each provider, in parameter order, for the value
// to use in this call.
func (d *Dispatcher) paramValues(r *http.Request) ([]reflect.Value, error) {
	inv := d.invocable
	args := make([]reflect.Value, len(d.providers))
	for i, vp := range d.providers {
		want := inv.in[i]
		v, err := vp.Provide(r)
		if err != nil {
			return nil, errors.Wrapf(err, "%s parameter %d (%s)", inv.name, i, reflectutils.TypeName(want))
		}
		switch {
		case !v.IsValid():
			v = reflect.Zero(want)
		case !v.Type().AssignableTo(want):
			return nil, &ContractError{
				Handler:  inv.name,
				Expected: want,
				Got:      v.Type(),
				What:     "parameter value",
			}
		}
		args[i] = v
	}
	return args, nil
}

func (d *Dispatcher) contractError(got reflect.Type) error {
	return &ContractError{
		Handler:  d.invocable.name,
		Expected: responseType,
		Got:      got,
		What:     "handler result",
	}
}

// asResponse returns the *nvelope.Response held in v, if that is what
// v holds.  A nil *nvelope.Response does not count.
func asResponse(v reflect.Value) (*nvelope.Response, bool) {
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	if !v.Type().AssignableTo(responseType) {
		return nil, false
	}
	if v.IsNil() {
		return nil, false
	}
	if v.Type() != responseType {
		v = v.Convert(responseType)
	}
	return v.Interface().(*nvelope.Response), true
}

// absent is Go's version of "null": no value, a nil interface, or a
// nil pointer, map, slice, channel, or function.
func absent(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	// nolint:exhaustive
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return true
		}
		return absent(v.Elem())
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return v.IsNil()
	default:
		return false
	}
}
