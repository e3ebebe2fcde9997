package ndispatch

// The kind of Dispatcher is decided here.  The registry is checked
// in order and the first classification whose predicates all pass
// wins.  Only static type information is used.

import (
	"reflect"

	"github.com/muir/ndispatch/nvelope"
)

// Kind identifies how a Dispatcher turns the raw result of a call
// into a response.
type Kind int

const (
	unsetKind      Kind = iota // ?
	VoidResult                 // void-result
	ResponseResult             // response-result
	ObjectResult               // object-result
	TypedResult                // typed-result
)

var kindNames = map[Kind]string{
	unsetKind:      "?",
	VoidResult:     "void-result",
	ResponseResult: "response-result",
	ObjectResult:   "object-result",
	TypedResult:    "typed-result",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Kind(?)"
}

var (
	responseType         = reflect.TypeOf((*nvelope.Response)(nil))
	genericEntityType    = reflect.TypeOf(nvelope.GenericEntity{})
	genericEntityPtrType = reflect.TypeOf((*nvelope.GenericEntity)(nil))
	emptyInterfaceType   = reflect.TypeOf((*interface{})(nil)).Elem()
	errorType            = reflect.TypeOf((*error)(nil)).Elem()
)

type predicateType struct {
	message string
	test    func(inv *Invocable) bool
}

type predicates []predicateType

// predicate tests an Invocable.  The message is used when the Invocable
// fails that test so the message should be the opposite of what the
// Invocable does.
func predicate(message string, test func(inv *Invocable) bool) predicateType {
	return predicateType{
		message: message,
		test:    test,
	}
}

var (
	isVoid  = predicate("returns a value", func(inv *Invocable) bool { return inv.returnType == nil })
	notVoid = predicate("returns nothing", func(inv *Invocable) bool { return inv.returnType != nil })

	returnsResponse = predicate("does not return *nvelope.Response", func(inv *Invocable) bool {
		return inv.returnType.AssignableTo(responseType)
	})

	returnsObject = predicate("does not return interface{} or nvelope.GenericEntity", func(inv *Invocable) bool {
		t := inv.returnType
		return t == emptyInterfaceType ||
			t.AssignableTo(genericEntityType) ||
			t.AssignableTo(genericEntityPtrType)
	})
)

type classification struct {
	name  string
	tests predicates
	kind  Kind
}

var returnRegistry = []classification{
	{
		name:  "response",
		tests: predicates{notVoid, returnsResponse},
		kind:  ResponseResult,
	},
	{
		name:  "void",
		tests: predicates{isVoid},
		kind:  VoidResult,
	},
	{
		name:  "object",
		tests: predicates{notVoid, returnsObject},
		kind:  ObjectResult,
	},
	{
		name:  "typed",
		tests: predicates{notVoid},
		kind:  TypedResult,
	},
}

// classify returns the Kind for inv along with the reasons that
// earlier classifications were passed over.
func classify(inv *Invocable) (Kind, []string) {
	var rejected []string
Registry:
	for _, c := range returnRegistry {
		for _, p := range c.tests {
			if !p.test(inv) {
				rejected = append(rejected, "not "+c.name+": "+p.message)
				continue Registry
			}
		}
		return c.kind, rejected
	}
	// not reached: "typed" and "void" cover every Invocable
	return unsetKind, rejected
}
