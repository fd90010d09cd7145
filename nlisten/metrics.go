package nlisten

import (
	"strconv"
	"time"

	"github.com/muir/nkernel/nevent"
	"github.com/muir/nkernel/nmsg"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const startAttribute = "_metrics.start"

// Metrics records request counts, durations and failures in prometheus.
type Metrics struct {
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	exceptions *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nkernel",
			Name:      "requests_total",
			Help:      "Requests handled, by method and status.",
		}, []string{"method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nkernel",
			Name:      "request_duration_seconds",
			Help:      "Time from request event to finish event.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		exceptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nkernel",
			Name:      "exceptions_total",
			Help:      "Failures seen by the exception event, by status.",
		}, []string{"status"}),
	}
	for _, c := range []prometheus.Collector{m.requests, m.duration, m.exceptions} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "register metrics")
		}
	}
	return m, nil
}

func (m *Metrics) Requests() *prometheus.CounterVec   { return m.requests }
func (m *Metrics) Duration() *prometheus.HistogramVec { return m.duration }
func (m *Metrics) Exceptions() *prometheus.CounterVec { return m.exceptions }

func (m *Metrics) SubscribedEvents() []nevent.Subscription {
	return []nevent.Subscription{
		{
			Event:    nevent.RequestName,
			Priority: nevent.PriorityHigh + 10,
			Listener: nevent.Typed(func(e *nevent.RequestEvent) error {
				e.SetRequest(e.Request().WithAttribute(startAttribute, time.Now()))
				return nil
			}),
		},
		{
			Event:    nevent.ExceptionName,
			Priority: nevent.PriorityHigh + 1,
			Listener: nevent.Typed(func(e *nevent.ExceptionEvent) error {
				m.exceptions.WithLabelValues(strconv.Itoa(nmsg.StatusCode(e.Err()))).Inc()
				return nil
			}),
		},
		{
			Event:    nevent.FinishRequestName,
			Priority: nevent.PriorityLow,
			Listener: nevent.Typed(m.onFinish),
		},
	}
}

func (m *Metrics) onFinish(e *nevent.FinishRequestEvent) error {
	req := e.Request()
	if req == nil {
		return nil
	}
	status := "none"
	if resp := e.Response(); resp != nil {
		status = strconv.Itoa(resp.StatusCode())
	}
	m.requests.WithLabelValues(req.Method(), status).Inc()
	if v, ok := req.Attribute(startAttribute); ok {
		if start, ok := v.(time.Time); ok {
			m.duration.WithLabelValues(req.Method()).Observe(time.Since(start).Seconds())
		}
	}
	return nil
}
