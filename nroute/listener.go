package nroute

import (
	"github.com/muir/nkernel"
	"github.com/muir/nkernel/nevent"
	"github.com/muir/nkernel/nmsg"
)

// Priority of the routing listener on the request event. It runs ahead of
// the stock high priority listeners so they can see the route.
const Priority = nevent.PriorityHigh + 50

// Listener routes requests for the event kernel. Requests that already
// carry a controller are left alone.
type Listener struct {
	Matcher Matcher
}

func (l Listener) SubscribedEvents() []nevent.Subscription {
	return []nevent.Subscription{{
		Event:    nevent.RequestName,
		Priority: Priority,
		Listener: nevent.Typed(func(e *nevent.RequestEvent) error {
			req := e.Request()
			if c, ok := req.Attribute(nmsg.ControllerAttribute); ok && c != nil {
				return nil
			}
			m, err := l.Matcher.Match(req)
			if err != nil {
				return err
			}
			e.SetRequest(m.Apply(req))
			return nil
		}),
	}}
}

// Middleware routes requests inside a middleware stack. On a miss the
// error is returned unless passThrough is set, in which case the request
// continues unrouted.
func Middleware(m Matcher, passThrough bool) nkernel.Unit {
	return nkernel.Func(func(req *nmsg.Request, next nkernel.HandlerFunc) (*nmsg.Response, error) {
		if c, ok := req.Attribute(nmsg.ControllerAttribute); ok && c != nil {
			return next(req)
		}
		match, err := m.Match(req)
		if err != nil {
			if passThrough {
				return next(req)
			}
			return nil, err
		}
		return next(match.Apply(req))
	})
}
