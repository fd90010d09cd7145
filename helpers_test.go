package nkernel_test

import (
	"github.com/muir/nkernel"
	"github.com/muir/nkernel/ncontainer"
	"github.com/muir/nkernel/nevent"
	"github.com/muir/nkernel/nmsg"
	"github.com/muir/nkernel/nresolve"
)

var allEvents = []string{
	nevent.RequestName,
	nevent.ControllerName,
	nevent.ControllerParamsName,
	nevent.ViewName,
	nevent.ResponseName,
	nevent.FinishRequestName,
	nevent.ExceptionName,
}

// recorder subscribes at low priority to every event and remembers the
// order they were seen in.
type recorder struct {
	seen []string
}

func (r *recorder) SubscribedEvents() []nevent.Subscription {
	subs := make([]nevent.Subscription, len(allEvents))
	for i, name := range allEvents {
		subs[i] = nevent.Subscription{
			Event:    name,
			Priority: nevent.PriorityLow - 1,
			Listener: func(e nevent.Event) error {
				r.seen = append(r.seen, e.EventName())
				return nil
			},
		}
	}
	return subs
}

func newEventKernel(subs ...nevent.Subscriber) (*nkernel.EventKernel, *ncontainer.Registry, *recorder) {
	reg := nkernel.RegisterDefaults(ncontainer.NewRegistry())
	k, err := nkernel.BuildEventKernel(reg)
	if err != nil {
		panic(err.Error())
	}
	rec := &recorder{}
	_ = k.SetCallbacks(append(subs, rec)...)
	return k, reg, rec
}

func routed(path string, controller any, params map[string]any) *nmsg.Request {
	r := nmsg.MustRequest("GET", path, nil).WithAttribute(nmsg.ControllerAttribute, controller)
	if params != nil {
		r = r.WithAttribute(nmsg.ParamsAttribute, params)
	}
	return r
}

func named(fn any, names ...string) *nresolve.Callable {
	return nresolve.MustCallable(fn, nresolve.Named(names...))
}
