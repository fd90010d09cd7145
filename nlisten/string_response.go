package nlisten

import (
	"net/http"

	"github.com/muir/nkernel/nevent"
	"github.com/muir/nkernel/nmsg"
)

// StringResponse turns a string controller result into a 200 response.
// Other results are left for later ViewEvent listeners.
type StringResponse struct{}

func (StringResponse) SubscribedEvents() []nevent.Subscription {
	return []nevent.Subscription{{
		Event:    nevent.ViewName,
		Priority: nevent.PriorityHigh,
		Listener: nevent.Typed(func(e *nevent.ViewEvent) error {
			if s, ok := e.Result().(string); ok {
				e.SetResponse(nmsg.NewResponse(http.StatusOK, s))
			}
			return nil
		}),
	}}
}
