package nserve

import (
	"sync"
	"sync/atomic"
)

var hookCounter int32

type hookOrder string

const (
	ForwardOrder hookOrder = "forward"
	ReverseOrder hookOrder = "reverse"
)

type hookID int32

// Hook names a list of callbacks that run together, such as the
// callbacks that start things or the ones that stop them.
type Hook struct {
	ID            hookID
	lock          sync.Mutex
	Name          string
	Order         hookOrder
	InvokeOnError []*Hook
	ContinuePast  bool
	ErrorCombiner func(first, second error) error
}

// NewHook creates a new category of callbacks.
func NewHook(name string, order hookOrder) *Hook {
	return &Hook{
		ID:    hookID(atomic.AddInt32(&hookCounter, 1)),
		Name:  name,
		Order: order,
	}
}

// Copy makes a copy of a hook with a new ID.  Callbacks registered
// for the original are not run for the copy.
func (h *Hook) Copy() *Hook {
	h.lock.Lock()
	defer h.lock.Unlock()
	return &Hook{
		ID:            hookID(atomic.AddInt32(&hookCounter, 1)),
		Name:          h.Name,
		Order:         h.Order,
		InvokeOnError: append([]*Hook(nil), h.InvokeOnError...),
		ContinuePast:  h.ContinuePast,
		ErrorCombiner: h.ErrorCombiner,
	}
}

// OnError adds a hook to run when this hook fails.  Call with nil to
// clear the list.
func (h *Hook) OnError(e *Hook) *Hook {
	h.lock.Lock()
	defer h.lock.Unlock()
	if e == nil {
		h.InvokeOnError = nil
	} else {
		h.InvokeOnError = append(h.InvokeOnError, e)
	}
	return h
}

// SetErrorCombiner sets how two errors become one.  Without a
// combiner only the first error is kept.
func (h *Hook) SetErrorCombiner(f func(first, second error) error) *Hook {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.ErrorCombiner = f
	return h
}

// ContinuePastError sets if callbacks should continue to be invoked
// if there has already been an error.
func (h *Hook) ContinuePastError(b bool) *Hook {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.ContinuePast = b
	return h
}

func (h *Hook) settings() (hookOrder, bool, func(first, second error) error, []*Hook) {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.Order, h.ContinuePast, h.ErrorCombiner, append([]*Hook(nil), h.InvokeOnError...)
}

func (h *Hook) String() string {
	return "hook " + h.Name
}

// The standard hooks.  A failed Start runs Stop; Stop runs every
// callback even after errors and then runs Shutdown if there were any.
var (
	Shutdown = NewHook("shutdown", ReverseOrder)
	Stop     = NewHook("stop", ReverseOrder).OnError(Shutdown).ContinuePastError(true)
	Start    = NewHook("start", ForwardOrder).OnError(Stop)
)
