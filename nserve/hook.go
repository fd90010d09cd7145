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

// Hook is the handle/name for a list of callbacks to invoke.
type Hook struct {
	ID            hookID
	lock          sync.Mutex
	Name          string
	Order         hookOrder
	InvokeOnError []*Hook
	ContinuePast  bool
	ErrorCombiner func(first, second error) error
}

// Copy makes a deep copy of a hook and the new hook gets a new ID.
// Copy is thread-safe.
func (h *Hook) Copy() *Hook {
	h.lock.Lock()
	defer h.lock.Unlock()
	oe := make([]*Hook, len(h.InvokeOnError))
	copy(oe, h.InvokeOnError)
	return &Hook{
		ID:            hookID(atomic.AddInt32(&hookCounter, 1)),
		Name:          h.Name,
		Order:         h.Order,
		InvokeOnError: oe,
		ContinuePast:  h.ContinuePast,
		ErrorCombiner: h.ErrorCombiner,
	}
}

// NewHook creates a new category of callbacks.
func NewHook(name string, order hookOrder) *Hook {
	return &Hook{
		ID:    hookID(atomic.AddInt32(&hookCounter, 1)),
		Name:  name,
		Order: order,
	}
}

// OnError adds to the set of hooks to invoke when this hook
// returns an error. Call with nil to clear the set.
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

// SetErrorCombiner sets a function to combine two errors into one when
// more than one callback fails.
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

func (h *Hook) String() string {
	return "hook " + h.Name
}

func (h *Hook) settings() (order hookOrder, cont bool, combine func(error, error) error, onError []*Hook) {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.Order, h.ContinuePast, h.ErrorCombiner, append([]*Hook(nil), h.InvokeOnError...)
}

// The standard lifecycle: a failed Start runs Stop, and Stop runs
// Shutdown when any stop callback fails.
var (
	Shutdown = NewHook("shutdown", ReverseOrder)
	Stop     = NewHook("stop", ReverseOrder).OnError(Shutdown).ContinuePastError(true)
	Start    = NewHook("start", ForwardOrder).OnError(Stop)
)
