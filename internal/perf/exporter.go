package perf

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Exporter publishes Metrics snapshots as Prometheus series labelled by
// operation and strategy. It owns its registry so several exporters can
// coexist in one process.
type Exporter struct {
	registry *prometheus.Registry

	instructions *prometheus.CounterVec
	memory       *prometheus.CounterVec
	utilization  *prometheus.GaugeVec
	bandwidth    *prometheus.GaugeVec
	seconds      *prometheus.HistogramVec
}

func NewExporter() *Exporter {
	labels := []string{"operation", "strategy"}
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		instructions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nld_instructions_total",
			Help: "Modelled instructions executed, split by kind (scalar, vector, tail)",
		}, append(labels, "kind")),
		memory: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nld_memory_accesses_total",
			Help: "Q15 element loads and stores",
		}, labels),
		utilization: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nld_vector_utilization_percent",
			Help: "Share of vector instructions in the last measurement session",
		}, labels),
		bandwidth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nld_memory_bandwidth_bytes_per_second",
			Help: "Effective memory bandwidth of the last measurement session",
		}, labels),
		seconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nld_processing_seconds",
			Help:    "Wall time of measurement sessions",
			Buckets: prometheus.ExponentialBuckets(1e-5, 4, 10),
		}, labels),
	}
	e.registry.MustRegister(e.instructions, e.memory, e.utilization, e.bandwidth, e.seconds)
	return e
}

// Observe records one session's metrics.
func (e *Exporter) Observe(operation, strategy string, m Metrics) {
	scalar := m.TotalInstructions - m.VectorInstructions - m.TailInstructions
	e.instructions.WithLabelValues(operation, strategy, "scalar").Add(float64(scalar))
	e.instructions.WithLabelValues(operation, strategy, "vector").Add(float64(m.VectorInstructions))
	e.instructions.WithLabelValues(operation, strategy, "tail").Add(float64(m.TailInstructions))
	e.memory.WithLabelValues(operation, strategy).Add(float64(m.MemoryAccesses))
	e.utilization.WithLabelValues(operation, strategy).Set(m.VectorUtilization)
	e.bandwidth.WithLabelValues(operation, strategy).Set(m.MemoryBandwidth)
	e.seconds.WithLabelValues(operation, strategy).Observe(m.ProcessingTime.Seconds())
}

// Registry exposes the underlying registry, e.g. for promhttp or tests.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// WriteText dumps all series in the Prometheus text exposition format.
func (e *Exporter) WriteText(w io.Writer) error {
	families, err := e.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
