package ndispatch

import (
	"reflect"
	"strings"

	"github.com/muir/reflectutils"
	"github.com/pkg/errors"
)

// Invocable describes a handler: what it takes, what it returns,
// and how to call it.  Invocables are immutable once built.
//
// The declared return type is the single non-error result.  Handlers
// may have any of these result lists:
//
//	()
//	(error)
//	(T)
//	(T, error)
type Invocable struct {
	name         string
	fn           reflect.Value
	reflective   Reflective
	receiver     reflect.Type
	in           []reflect.Type
	returnType   reflect.Type
	returnsError bool
	variadic     bool
}

// MethodInvocable describes the named method of receiver.  The
// receiver must be a concrete type and the method must be
// exported.
func MethodInvocable(receiver reflect.Type, method string) (*Invocable, error) {
	if receiver == nil {
		return nil, errors.New("nil receiver type")
	}
	if receiver.Kind() == reflect.Interface {
		return nil, errors.Errorf("receiver %s is an interface, a concrete type is required",
			reflectutils.TypeName(receiver))
	}
	m, ok := receiver.MethodByName(method)
	if !ok {
		return nil, errors.Errorf("%s has no exported method %s", reflectutils.TypeName(receiver), method)
	}
	t := m.Func.Type()
	inv := &Invocable{
		name:     reflectutils.TypeName(receiver) + "." + method,
		fn:       m.Func,
		receiver: receiver,
		in:       typesIn(t)[1:],
		variadic: t.IsVariadic(),
	}
	if err := inv.setResults(typesOut(t)); err != nil {
		return nil, err
	}
	return inv, nil
}

// FuncInvocable describes a plain function.  Functions have no
// receiver so the target given to Dispatch is ignored.
func FuncInvocable(name string, fn interface{}) (*Invocable, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return nil, errors.Errorf("%s: %T is not a function", name, fn)
	}
	if v.IsNil() {
		return nil, errors.Errorf("%s: nil function", name)
	}
	t := v.Type()
	inv := &Invocable{
		name:     name,
		fn:       v,
		in:       typesIn(t),
		variadic: t.IsVariadic(),
	}
	if err := inv.setResults(typesOut(t)); err != nil {
		return nil, err
	}
	return inv, nil
}

// ReflectiveInvocable describes a handler whose signature is
// only known at runtime.
func ReflectiveInvocable(name string, r Reflective) (*Invocable, error) {
	if r == nil {
		return nil, errors.Errorf("%s: nil Reflective", name)
	}
	inv := &Invocable{
		name:       name,
		reflective: r,
		in:         reflectiveIn(r),
	}
	if err := inv.setResults(reflectiveOut(r)); err != nil {
		return nil, err
	}
	return inv, nil
}

func (inv *Invocable) setResults(out []reflect.Type) error {
	switch len(out) {
	case 0:
	case 1:
		if out[0] == errorType {
			inv.returnsError = true
		} else {
			inv.returnType = out[0]
		}
	case 2:
		if out[1] != errorType {
			return errors.Errorf("%s: second return value must be error, not %s",
				inv.name, reflectutils.TypeName(out[1]))
		}
		inv.returnType = out[0]
		inv.returnsError = true
	default:
		return errors.Errorf("%s: too many return values (%d), at most a value and an error are allowed",
			inv.name, len(out))
	}
	return nil
}

// Name is used in error messages
func (inv *Invocable) Name() string { return inv.name }

// NumIn is the number of formal parameters, not counting the receiver
func (inv *Invocable) NumIn() int { return len(inv.in) }

// In returns the type of the i'th formal parameter
func (inv *Invocable) In(i int) reflect.Type { return inv.in[i] }

// ReturnType is the declared non-error result type.  It is nil
// for handlers that return nothing (or only an error).
func (inv *Invocable) ReturnType() reflect.Type { return inv.returnType }

func (inv *Invocable) IsVoid() bool       { return inv.returnType == nil }
func (inv *Invocable) ReturnsError() bool { return inv.returnsError }
func (inv *Invocable) IsVariadic() bool   { return inv.variadic }

// Receiver is the receiver type for methods and nil for functions
func (inv *Invocable) Receiver() reflect.Type { return inv.receiver }

func (inv *Invocable) HasReceiver() bool { return inv.receiver != nil }

func (inv *Invocable) String() string {
	in := make([]string, len(inv.in))
	for i, t := range inv.in {
		in[i] = reflectutils.TypeName(t)
	}
	var out []string
	if inv.returnType != nil {
		out = append(out, reflectutils.TypeName(inv.returnType))
	}
	if inv.returnsError {
		out = append(out, "error")
	}
	s := inv.name + "(" + strings.Join(in, ", ") + ")"
	switch len(out) {
	case 0:
		return s
	case 1:
		return s + " " + out[0]
	default:
		return s + " (" + strings.Join(out, ", ") + ")"
	}
}

// call does the raw invocation.  It may panic.
func (inv *Invocable) call(target reflect.Value, args []reflect.Value) []reflect.Value {
	if inv.receiver != nil {
		in := make([]reflect.Value, 0, len(args)+1)
		in = append(in, target)
		args = append(in, args...)
	}
	if inv.reflective != nil {
		return inv.reflective.Call(args)
	}
	if inv.variadic {
		return inv.fn.CallSlice(args)
	}
	return inv.fn.Call(args)
}

func typesIn(t reflect.Type) []reflect.Type {
	in := make([]reflect.Type, t.NumIn())
	for i := 0; i < t.NumIn(); i++ {
		in[i] = t.In(i)
	}
	return in
}

func typesOut(t reflect.Type) []reflect.Type {
	out := make([]reflect.Type, t.NumOut())
	for i := 0; i < t.NumOut(); i++ {
		out[i] = t.Out(i)
	}
	return out
}
