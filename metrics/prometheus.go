// Package metrics provides a Prometheus implementation of types.Metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/krisalay/cached-property/types"
)

// Prometheus counts cell events per property name.
type Prometheus struct {
	Hits         *prometheus.CounterVec
	Misses       *prometheus.CounterVec
	Expirations  *prometheus.CounterVec
	Computations *prometheus.CounterVec
	StoreErrors  *prometheus.CounterVec
}

// NewPrometheus creates the counters under namespace and registers them with
// reg. A nil reg leaves them unregistered.
func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	f := promauto.With(reg)
	labels := []string{"property"}

	return &Prometheus{
		Hits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "property_hits_total",
			Help:      "Accesses answered from a fresh memoized value",
		}, labels),
		Misses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "property_misses_total",
			Help:      "Accesses that found no memoized value",
		}, labels),
		Expirations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "property_expirations_total",
			Help:      "Accesses that found a memoized value past its TTL",
		}, labels),
		Computations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "property_computations_total",
			Help:      "Successful runs of the property computation",
		}, labels),
		StoreErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "property_store_errors_total",
			Help:      "Failed writes to the durable store",
		}, labels),
	}
}

func (p *Prometheus) Hit(property string)     { p.Hits.WithLabelValues(property).Inc() }
func (p *Prometheus) Miss(property string)    { p.Misses.WithLabelValues(property).Inc() }
func (p *Prometheus) Expire(property string)  { p.Expirations.WithLabelValues(property).Inc() }
func (p *Prometheus) Compute(property string) { p.Computations.WithLabelValues(property).Inc() }

func (p *Prometheus) StoreError(property string) {
	p.StoreErrors.WithLabelValues(property).Inc()
}

var _ types.Metrics = (*Prometheus)(nil)
