package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the store and catalog collectors. A nil *Recorder is valid
// and records nothing, so components can be built without metrics.
type Recorder struct {
	storeOps     *prometheus.CounterVec
	storeLatency *prometheus.HistogramVec
	lookups      *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		storeOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "store_operations_total",
				Help: "Document store operations by operation and outcome.",
			},
			[]string{"op", "outcome"},
		),
		storeLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "store_operation_duration_seconds",
				Help:    "Document store operation latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_lookups_total",
				Help: "Catalog reference lookups by kind and result.",
			},
			[]string{"kind", "result"},
		),
	}

	for _, c := range []prometheus.Collector{r.storeOps, r.storeLatency, r.lookups} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObserveStoreOp records one store call. outcome is a short label such as
// "ok", "not_found" or "error".
func (r *Recorder) ObserveStoreOp(op, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.storeOps.WithLabelValues(op, outcome).Inc()
	r.storeLatency.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveLookup records one catalog existence check.
func (r *Recorder) ObserveLookup(kind string, found bool) {
	if r == nil {
		return
	}
	result := "missing"
	if found {
		result = "found"
	}
	r.lookups.WithLabelValues(kind, result).Inc()
}
