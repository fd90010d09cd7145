package nevent

import (
	"sort"
	"sync"
)

// Listener priorities. Higher runs first.
const (
	PriorityHigh   = 100
	PriorityNormal = 0
	PriorityLow    = -100
)

// DispatcherID is the container id for the *Dispatcher
const DispatcherID = "event.dispatcher"

// Listener receives a dispatched event. Returning an error aborts the
// dispatch.
type Listener func(Event) error

// Typed adapts a listener for one concrete event type. Events of other
// types are ignored.
func Typed[E Event](f func(E) error) Listener {
	return func(e Event) error {
		te, ok := e.(E)
		if !ok {
			return nil
		}
		return f(te)
	}
}

// Subscription registers one listener for one event.
type Subscription struct {
	Event    string
	Priority int
	Listener Listener
}

// Subscriber declares the subscriptions it wants.
type Subscriber interface {
	SubscribedEvents() []Subscription
}

// SubscriberFunc adapts a plain list to Subscriber
type SubscriberFunc func() []Subscription

func (f SubscriberFunc) SubscribedEvents() []Subscription { return f() }

type registration struct {
	priority int
	seq      int
	listener Listener
}

// Dispatcher calls listeners synchronously in descending priority,
// registration order within a priority.
type Dispatcher struct {
	lock      sync.RWMutex
	seq       int
	listeners map[string][]registration
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{listeners: make(map[string][]registration)}
}

func (d *Dispatcher) AddListener(event string, l Listener, priority int) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.seq++
	regs := append(d.listeners[event], registration{
		priority: priority,
		seq:      d.seq,
		listener: l,
	})
	sort.SliceStable(regs, func(i, j int) bool {
		if regs[i].priority != regs[j].priority {
			return regs[i].priority > regs[j].priority
		}
		return regs[i].seq < regs[j].seq
	})
	d.listeners[event] = regs
}

func (d *Dispatcher) AddSubscriber(s Subscriber) {
	for _, sub := range s.SubscribedEvents() {
		d.AddListener(sub.Event, sub.Listener, sub.Priority)
	}
}

// Listeners returns the listeners for event in the order they run.
func (d *Dispatcher) Listeners(event string) []Listener {
	d.lock.RLock()
	defer d.lock.RUnlock()
	regs := d.listeners[event]
	out := make([]Listener, len(regs))
	for i, r := range regs {
		out[i] = r.listener
	}
	return out
}

func (d *Dispatcher) HasListeners(event string) bool {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return len(d.listeners[event]) > 0
}

// Dispatch runs the listeners for e.EventName() and returns e. The first
// listener error stops the dispatch and is returned as is.
func (d *Dispatcher) Dispatch(e Event) (Event, error) {
	stoppable, _ := e.(Stoppable)
	for _, l := range d.Listeners(e.EventName()) {
		if stoppable != nil && stoppable.IsPropagationStopped() {
			break
		}
		if err := l(e); err != nil {
			return e, err
		}
	}
	return e, nil
}
