package nlisten

import (
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/muir/nkernel/nevent"
	"github.com/muir/nkernel/nmsg"
)

// ErrorResponse answers every ExceptionEvent with a JSON body. The status
// comes from nmsg.StatusCode. Messages of 5xx errors are hidden unless
// Expose is set.
type ErrorResponse struct {
	Expose bool
}

type errorBody struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

func (er ErrorResponse) SubscribedEvents() []nevent.Subscription {
	return []nevent.Subscription{{
		Event:    nevent.ExceptionName,
		Priority: nevent.PriorityLow,
		Listener: nevent.Typed(er.onException),
	}}
}

func (er ErrorResponse) onException(e *nevent.ExceptionEvent) error {
	status := nmsg.StatusCode(e.Err())
	msg := e.Err().Error()
	if status >= 500 && !er.Expose {
		msg = http.StatusText(status)
	}
	body, err := sonic.Marshal(errorBody{Error: msg, Status: status})
	if err != nil {
		return err
	}
	e.SetResponse(nmsg.NewResponse(status, string(body)).
		WithHeader("Content-Type", "application/json"))
	return nil
}
