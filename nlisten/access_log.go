package nlisten

import (
	"github.com/muir/nkernel/nevent"
	"github.com/muir/nkernel/nlog"
	"github.com/muir/nkernel/nmsg"
	"github.com/rs/zerolog"
)

// AccessLog logs each finished request and each failure.
type AccessLog struct {
	Logger zerolog.Logger
}

func (a AccessLog) SubscribedEvents() []nevent.Subscription {
	return []nevent.Subscription{
		{
			Event:    nevent.ExceptionName,
			Priority: nevent.PriorityHigh + 1,
			Listener: nevent.Typed(func(e *nevent.ExceptionEvent) error {
				a.with(e.Request(), a.Logger.Warn()).
					Err(e.Err()).
					Int("status", nmsg.StatusCode(e.Err())).
					Msg("request failed")
				return nil
			}),
		},
		{
			Event:    nevent.FinishRequestName,
			Priority: nevent.PriorityLow,
			Listener: nevent.Typed(func(e *nevent.FinishRequestEvent) error {
				ev := a.with(e.Request(), a.Logger.Info())
				if resp := e.Response(); resp != nil {
					ev = ev.Int("status", resp.StatusCode()).Int("bytes", len(resp.Body()))
				}
				ev.Msg("request finished")
				return nil
			}),
		},
	}
}

func (a AccessLog) with(req *nmsg.Request, ev *zerolog.Event) *zerolog.Event {
	if req == nil {
		return ev
	}
	ev = ev.Str("method", req.Method()).Str("path", req.Path())
	if id := nlog.RequestIDFromContext(req.Context()); id != "" {
		ev = ev.Str("request_id", id)
	}
	return ev
}
