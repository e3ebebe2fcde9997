package ndispatch

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/muir/reflectutils"
	"github.com/pkg/errors"
)

// ErrNoValueProviders is returned by Bind when the ValueProviderFactory
// cannot produce providers for the handler at all.
var ErrNoValueProviders = errors.New("no value providers can be created")

// ErrProviderCount is returned by Bind when the ValueProviderFactory
// produced the wrong number of providers.
var ErrProviderCount = errors.New("value provider count does not match parameter count")

// MissingParameter identifies one formal parameter that has no
// ValueProvider.
type MissingParameter struct {
	Index int
	Type  reflect.Type
}

// MissingDependencyError is returned by Bind when one or more
// parameters have no ValueProvider.
type MissingDependencyError struct {
	Handler string
	Missing []MissingParameter
}

func (err *MissingDependencyError) Error() string {
	if len(err.Missing) == 1 {
		return fmt.Sprintf("cannot dispatch %s: no value provider for parameter %d (%s)",
			err.Handler, err.Missing[0].Index, reflectutils.TypeName(err.Missing[0].Type))
	}
	return fmt.Sprintf("cannot dispatch %s: %d parameters have no value provider",
		err.Handler, len(err.Missing))
}

// Details lists every missing parameter, one per line.
func (err *MissingDependencyError) Details() string {
	lines := make([]string, len(err.Missing))
	for i, m := range err.Missing {
		lines[i] = fmt.Sprintf("\tparameter %d: %s has no value provider", m.Index, reflectutils.TypeName(m.Type))
	}
	return strings.Join(lines, "\n")
}

type detailer interface {
	Details() string
}

// DetailedError transforms errors into strings.  If
// the error happens to be an error returned by Bind()
// then it will return a much more detailed error than
// just calling err.Error()
func DetailedError(err error) string {
	if err == nil {
		return ""
	}
	var d detailer
	if errors.As(err, &d) {
		return err.Error() + "\n\n" + d.Details()
	}
	return err.Error()
}

// ProcessingError is a failure of the handler itself: either it
// returned a non-nil error or it panicked.  The original error is
// available from Cause() and Unwrap().
type ProcessingError struct {
	Handler string
	cause   error
}

func (err *ProcessingError) Error() string {
	return err.Handler + ": " + err.cause.Error()
}

func (err *ProcessingError) Cause() error  { return err.cause }
func (err *ProcessingError) Unwrap() error { return err.cause }

// ContractError means a value did not have the type that the
// handler's signature promised.  It fails the one request.
type ContractError struct {
	Handler  string
	Expected reflect.Type
	Got      reflect.Type
	What     string
}

func (err *ContractError) Error() string {
	return fmt.Sprintf("%s: %s: expected %s, got %s",
		err.Handler, err.What, typeNameOrNothing(err.Expected), typeNameOrNothing(err.Got))
}

func typeNameOrNothing(t reflect.Type) string {
	if t == nil {
		return "nothing"
	}
	return reflectutils.TypeName(t)
}
