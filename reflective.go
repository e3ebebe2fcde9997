package ndispatch

import (
	"reflect"
)

// Reflective is an alternative to a Go func for describing a
// handler.  Its methods are called to simulate the Reflective
// being a function: In/NumIn give the formal parameters and
// Out/NumOut give the results.
type Reflective interface {
	ReflectiveArgs
	Call(in []reflect.Value) []reflect.Value
}

// ReflectiveArgs is the part of a Reflective that defines the inputs
// and outputs.
type ReflectiveArgs interface {
	In(i int) reflect.Type
	NumIn() int
	Out(i int) reflect.Type
	NumOut() int
}

// MakeReflective is a simple utility to create a Reflective
func MakeReflective(
	inputs []reflect.Type,
	outputs []reflect.Type,
	function func([]reflect.Value) []reflect.Value,
) Reflective {
	return thinReflective{
		inputs:  inputs,
		outputs: outputs,
		fun:     function,
	}
}

type thinReflective struct {
	inputs  []reflect.Type
	outputs []reflect.Type
	fun     func([]reflect.Value) []reflect.Value
}

var _ Reflective = thinReflective{}

func (r thinReflective) In(i int) reflect.Type                   { return r.inputs[i] }
func (r thinReflective) NumIn() int                              { return len(r.inputs) }
func (r thinReflective) Out(i int) reflect.Type                  { return r.outputs[i] }
func (r thinReflective) NumOut() int                             { return len(r.outputs) }
func (r thinReflective) Call(in []reflect.Value) []reflect.Value { return r.fun(in) }

func reflectiveIn(r ReflectiveArgs) []reflect.Type {
	in := make([]reflect.Type, r.NumIn())
	for i := range in {
		in[i] = r.In(i)
	}
	return in
}

func reflectiveOut(r ReflectiveArgs) []reflect.Type {
	out := make([]reflect.Type, r.NumOut())
	for i := range out {
		out[i] = r.Out(i)
	}
	return out
}
