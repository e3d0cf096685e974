package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns its registry so tests can build as many as they like.
type Recorder struct {
	registry *prometheus.Registry

	calculations *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	lastVaR      *prometheus.GaugeVec
	excluded     prometheus.Counter
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		calculations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "varbot",
				Subsystem: "calc",
				Name:      "total",
				Help:      "VaR calculations by front end and outcome",
			},
			[]string{"source", "outcome"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "varbot",
				Subsystem: "calc",
				Name:      "latency_seconds",
				Help:      "Latency of a full calculation including price loading",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		lastVaR: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "varbot",
				Subsystem: "calc",
				Name:      "last_var",
				Help:      "Most recent VaR estimate by method",
			},
			[]string{"method"},
		),
		excluded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "varbot",
				Subsystem: "calc",
				Name:      "excluded_instruments_total",
				Help:      "Instruments dropped for missing price data",
			},
		),
	}
	r.registry.MustRegister(
		r.calculations, r.latency, r.lastVaR, r.excluded,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Observe records one finished calculation. outcome is ok, invalid or no_result.
func (r *Recorder) Observe(source, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.calculations.WithLabelValues(source, outcome).Inc()
	r.latency.WithLabelValues(source).Observe(elapsed.Seconds())
}

// SetVaR stores the last value of a method. Nil estimates are skipped.
func (r *Recorder) SetVaR(method string, v *float64) {
	if r == nil || v == nil {
		return
	}
	r.lastVaR.WithLabelValues(method).Set(*v)
}

func (r *Recorder) AddExcluded(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.excluded.Add(float64(n))
}

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
