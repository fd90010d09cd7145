package nlisten

import (
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/muir/nkernel/nevent"
	"github.com/muir/nkernel/nmsg"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Encoder is a ViewEvent listener that marshals controller results into
// responses of one content type.
type Encoder struct {
	contentType string
	marshal     func(any) ([]byte, error)
	enforce     func(enc []byte, req *nmsg.Request) error
	nil204      bool
}

type EncoderOption func(*Encoder)

// WithAPIEnforcer specifies a function that can check if the encoded
// response is valid for the request that produced it. This is where
// schema enforcement could be added. The default is not to check.
func WithAPIEnforcer(f func(enc []byte, req *nmsg.Request) error) EncoderOption {
	return func(e *Encoder) { e.enforce = f }
}

// WithNil204 makes a nil controller result a 204 with no body. Without
// it nil results are left for other listeners.
func WithNil204() EncoderOption {
	return func(e *Encoder) { e.nil204 = true }
}

// MakeResponseEncoder builds an Encoder from a marshaller.
func MakeResponseEncoder(contentType string, marshal func(any) ([]byte, error), opts ...EncoderOption) *Encoder {
	e := &Encoder{
		contentType: contentType,
		marshal:     marshal,
		enforce:     func([]byte, *nmsg.Request) error { return nil },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// JSONResponse encodes results with sonic.
func JSONResponse(opts ...EncoderOption) *Encoder {
	return MakeResponseEncoder("application/json", sonic.Marshal, opts...)
}

// YAMLResponse encodes results with yaml.v3.
func YAMLResponse(opts ...EncoderOption) *Encoder {
	return MakeResponseEncoder("application/yaml", yaml.Marshal, opts...)
}

// JSON encodes v as a JSON response.
func JSON(status int, v any) (*nmsg.Response, error) {
	return JSONResponse().Encode(status, v, nil)
}

// Encode marshals v into a response with the given status. req is passed
// to the API enforcer and may be nil.
func (e *Encoder) Encode(status int, v any, req *nmsg.Request) (*nmsg.Response, error) {
	enc, err := e.marshal(v)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot marshal %T as %s", v, e.contentType)
	}
	if err := e.enforce(enc, req); err != nil {
		return nil, nmsg.ReturnCode(errors.Wrap(err, "invalid API response"), http.StatusInternalServerError)
	}
	return nmsg.NewResponse(status, string(enc)).
		WithHeader("Content-Type", e.contentType), nil
}

func (e *Encoder) SubscribedEvents() []nevent.Subscription {
	return []nevent.Subscription{{
		Event:    nevent.ViewName,
		Priority: nevent.PriorityNormal,
		Listener: nevent.Typed(e.onView),
	}}
}

func (e *Encoder) onView(ev *nevent.ViewEvent) error {
	if ev.Result() == nil {
		if e.nil204 {
			ev.SetResponse(nmsg.NewResponse(http.StatusNoContent, ""))
		}
		return nil
	}
	resp, err := e.Encode(http.StatusOK, ev.Result(), ev.Request())
	if err != nil {
		return err
	}
	ev.SetResponse(resp)
	return nil
}
