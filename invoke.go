package ndispatch

import (
	"net/http"
	"reflect"

	"github.com/muir/ndispatch/nvelope"
)

// ValueProvider supplies the value of one formal parameter.  It is
// called on every dispatch so that the value reflects the current
// request.  Implementations must be safe for concurrent use.
type ValueProvider interface {
	Provide(r *http.Request) (reflect.Value, error)
}

// ValueProviderFunc adapts a function to ValueProvider
type ValueProviderFunc func(r *http.Request) (reflect.Value, error)

func (f ValueProviderFunc) Provide(r *http.Request) (reflect.Value, error) { return f(r) }

// ValueProviderFactory creates the ValueProviders for an Invocable,
// one per formal parameter, in parameter order.  Returning nil means
// that no providers can be made for this Invocable.  A nil element
// means that particular parameter cannot be provided.
type ValueProviderFactory interface {
	CreateValueProviders(inv *Invocable) []ValueProvider
}

// ValueProviderFactoryFunc adapts a function to ValueProviderFactory
type ValueProviderFactoryFunc func(inv *Invocable) []ValueProvider

func (f ValueProviderFactoryFunc) CreateValueProviders(inv *Invocable) []ValueProvider {
	return f(inv)
}

// InvocationHandler actually calls the handler.  The target is the
// receiver for methods and is invalid for functions.  The result is
// the declared return value, or an invalid reflect.Value when the
// handler returns nothing.
type InvocationHandler interface {
	Invoke(inv *Invocable, target reflect.Value, args []reflect.Value) (reflect.Value, error)
}

// InvocationHandlerFunc adapts a function to InvocationHandler
type InvocationHandlerFunc func(inv *Invocable, target reflect.Value, args []reflect.Value) (reflect.Value, error)

func (f InvocationHandlerFunc) Invoke(inv *Invocable, target reflect.Value, args []reflect.Value) (reflect.Value, error) {
	return f(inv, target, args)
}

// DirectInvoker is the default InvocationHandler.  It calls the
// handler in the current goroutine.  A non-nil error result and a
// panic both become a *ProcessingError.
var DirectInvoker InvocationHandler = directInvoker{}

type directInvoker struct{}

func (directInvoker) Invoke(inv *Invocable, target reflect.Value, args []reflect.Value) (reflect.Value, error) {
	var out []reflect.Value
	err := nvelope.Capture(nil, func() error {
		out = inv.call(target, args)
		return nil
	})
	if err != nil {
		return reflect.Value{}, &ProcessingError{Handler: inv.name, cause: err}
	}
	return inv.splitResults(out)
}

// splitResults separates the declared return value from the trailing
// error, if any.
func (inv *Invocable) splitResults(out []reflect.Value) (reflect.Value, error) {
	want := 0
	if inv.returnType != nil {
		want++
	}
	if inv.returnsError {
		want++
	}
	if len(out) != want {
		return reflect.Value{}, &ContractError{
			Handler:  inv.name,
			Expected: inv.returnType,
			What:     "wrong number of results",
		}
	}
	if inv.returnsError {
		ev := out[len(out)-1]
		if !absent(ev) {
			e, ok := ev.Interface().(error)
			if !ok {
				return reflect.Value{}, &ContractError{
					Handler:  inv.name,
					Expected: errorType,
					Got:      ev.Type(),
					What:     "error result",
				}
			}
			return reflect.Value{}, &ProcessingError{Handler: inv.name, cause: e}
		}
	}
	if inv.returnType == nil {
		return reflect.Value{}, nil
	}
	return out[0], nil
}
