package nvelope

import (
	"fmt"
	"runtime/debug"

	"github.com/pkg/errors"
)

// LogFlusher is used to check if a logger implements
// Flush().  This is useful as part of a panic handler.
type LogFlusher interface {
	Flush()
}

// PanicError is what SetErrorOnPanic leaves behind when it
// catches a panic.
type PanicError struct {
	Recovered interface{}
	Stack     string
}

func (err *PanicError) Error() string {
	return "panic: " + fmt.Sprint(err.Recovered)
}

// SetErrorOnPanic should be called as a defer.  It sets an error
// value if there is a panic.  The log may be nil.
func SetErrorOnPanic(ep *error, log BasicLogger) {
	r := recover()
	if r == nil {
		return
	}
	pe := &PanicError{
		Recovered: r,
		Stack:     string(debug.Stack()),
	}
	*ep = errors.WithStack(pe)
	if log == nil {
		return
	}
	log.Error("panic!", map[string]interface{}{
		"msg":   fmt.Sprint(r),
		"stack": pe.Stack,
	})
	if flusher, ok := log.(LogFlusher); ok {
		flusher.Flush()
	}
}

// Capture calls fn and turns a panic inside fn into an error.
func Capture(log BasicLogger, fn func() error) (err error) {
	defer SetErrorOnPanic(&err, log)
	return fn()
}

// RecoverInterface returns the interface{} that recover()
// originally provided.  Or it returns nil if the
// error isn't a from a panic recovery.
func RecoverInterface(err error) interface{} {
	if pe, ok := isPanicError(err); ok {
		return pe.Recovered
	}
	return nil
}

// RecoverStack returns the stack from when recover()
// originally caught the panic.  Or it returns "" if the
// error isn't a from a panic recovery.
func RecoverStack(err error) string {
	if pe, ok := isPanicError(err); ok {
		return pe.Stack
	}
	return ""
}

func isPanicError(err error) (*PanicError, bool) {
	var pe *PanicError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
