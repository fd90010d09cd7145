package nlisten

import (
	"context"

	"github.com/muir/nkernel/nevent"
	"github.com/muir/nkernel/nmsg"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/muir/nkernel/nlisten"

// Tracing wraps each request in a server span. Incoming trace context is
// taken from the request headers.
type Tracing struct {
	Tracer     trace.Tracer
	Propagator propagation.TextMapPropagator
}

// NewTracing uses the global tracer provider and propagator.
func NewTracing() Tracing {
	return Tracing{
		Tracer:     otel.Tracer(tracerName),
		Propagator: otel.GetTextMapPropagator(),
	}
}

func (t Tracing) SubscribedEvents() []nevent.Subscription {
	return []nevent.Subscription{
		{
			Event:    nevent.RequestName,
			Priority: nevent.PriorityHigh + 20,
			Listener: nevent.Typed(t.onRequest),
		},
		{
			Event:    nevent.ControllerName,
			Priority: nevent.PriorityLow,
			Listener: nevent.Typed(func(e *nevent.ControllerEvent) error {
				if c := e.Controller(); c != nil {
					span(e.Request()).SetAttributes(attribute.String("nkernel.controller", c.Signature().Name))
				}
				return nil
			}),
		},
		{
			Event:    nevent.ExceptionName,
			Priority: nevent.PriorityHigh + 1,
			Listener: nevent.Typed(func(e *nevent.ExceptionEvent) error {
				s := span(e.Request())
				s.RecordError(e.Err())
				s.SetStatus(codes.Error, e.Err().Error())
				return nil
			}),
		},
		{
			Event:    nevent.FinishRequestName,
			Priority: nevent.PriorityLow - 10,
			Listener: nevent.Typed(func(e *nevent.FinishRequestEvent) error {
				s := span(e.Request())
				if resp := e.Response(); resp != nil {
					s.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode()))
					if resp.StatusCode() >= 500 {
						s.SetStatus(codes.Error, "server error")
					}
				}
				s.End()
				return nil
			}),
		},
	}
}

func (t Tracing) onRequest(e *nevent.RequestEvent) error {
	req := e.Request()
	ctx := req.Context()
	if t.Propagator != nil {
		ctx = t.Propagator.Extract(ctx, propagation.HeaderCarrier(req.Header()))
	}
	ctx, _ = t.Tracer.Start(ctx, req.Method()+" "+req.Path(),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method()),
			attribute.String("url.path", req.Path()),
		))
	e.SetRequest(req.WithContext(ctx))
	return nil
}

func span(req *nmsg.Request) trace.Span {
	if req == nil {
		return trace.SpanFromContext(context.Background())
	}
	return trace.SpanFromContext(req.Context())
}
