// Package metrics exposes polling outcomes as Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "translator"

// Recorder implements poller.Metrics.
type Recorder struct {
	polls    *prometheus.CounterVec
	sessions *prometheus.CounterVec
	duration *prometheus.HistogramVec
	gatherer prometheus.Gatherer
}

// New registers the polling collectors on reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	r := &Recorder{
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_requests_total",
			Help:      "Status requests issued by polling sessions, by outcome.",
		}, []string{"outcome"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_sessions_total",
			Help:      "Finished polling sessions, by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_session_duration_seconds",
			Help:      "Wall-clock duration of polling sessions.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 250, 500},
		}, []string{"outcome"}),
		gatherer: reg,
	}

	for _, c := range []prometheus.Collector{r.polls, r.sessions, r.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) ObservePoll(outcome string) {
	r.polls.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveSession(outcome string, elapsed time.Duration) {
	r.sessions.WithLabelValues(outcome).Inc()
	r.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
