package runtime

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Dispatch outcomes recorded per RPC request.
const (
	OutcomeHandled      = "handled"
	OutcomeNoMethod     = "no_method"
	OutcomeNoMatch      = "no_match"
	OutcomeDeclined     = "declined"
	OutcomeOverflow     = "overflow"
	OutcomeBadRequestID = "bad_request_id"
	OutcomeEncodeError  = "encode_error"
	OutcomeDecodeError  = "decode_error"
	OutcomePublishError = "publish_error"
)

// Metrics collects Prometheus counters for the dispatch pipeline. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	inbound    prometheus.Counter
	dispatches *prometheus.CounterVec
	published  prometheus.Counter
}

// NewMetrics registers the devlink collectors on reg and returns them.
// Passing nil uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		inbound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "devlink",
			Name:      "inbound_messages_total",
			Help:      "Messages received from the broker.",
		}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devlink",
			Name:      "rpc_dispatches_total",
			Help:      "RPC dispatch attempts by outcome.",
		}, []string{"outcome"}),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "devlink",
			Name:      "published_responses_total",
			Help:      "Responses published back to the server.",
		}),
	}

	reg.MustRegister(m.inbound, m.dispatches, m.published)
	return m
}

// ObserveInbound counts one message received from the broker.
func (m *Metrics) ObserveInbound() {
	if m == nil {
		return
	}
	m.inbound.Inc()
}

// ObserveDispatch counts one dispatch with its outcome.
func (m *Metrics) ObserveDispatch(outcome string) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(outcome).Inc()
}

// ObservePublished counts one published response.
func (m *Metrics) ObservePublished() {
	if m == nil {
		return
	}
	m.published.Inc()
}
