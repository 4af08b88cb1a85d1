package report

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "smcluster"

// Metrics describes one node-process run for the textfile exporter.
type Metrics struct {
	JobID    string
	Rank     int
	Timings  []Timing
	Runtime  float64
	ExitCode int
	Cores    int
	MemoryMB int
}

// Registry returns a registry holding the run gauges.
func (m Metrics) Registry() *prometheus.Registry {
	labels := prometheus.Labels{"job": m.JobID, "rank": strconv.Itoa(m.Rank)}
	registry := prometheus.NewRegistry()

	phases := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "phase_duration_seconds",
		Help:        "Duration of a bootstrap phase.",
		ConstLabels: labels,
	}, []string{"phase"})
	for _, timing := range m.Timings {
		phases.WithLabelValues(timing.Phase).Set(timing.Seconds)
	}
	registry.MustRegister(phases)

	for name, value := range map[string]float64{
		"runtime_seconds":  m.Runtime,
		"exit_code":        float64(m.ExitCode),
		"worker_cores":     float64(m.Cores),
		"worker_memory_mb": float64(m.MemoryMB),
	} {
		gauge := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        name,
			Help:        "Node-process " + name + ".",
			ConstLabels: labels,
		})
		gauge.Set(value)
		registry.MustRegister(gauge)
	}
	return registry
}

// WriteTextfile writes the metrics in textfile collector format.
func (m Metrics) WriteTextfile(filename string) error {
	if err := prometheus.WriteToTextfile(filename, m.Registry()); err != nil {
		return fmt.Errorf("failed to write metrics %v: %w", filename, err)
	}
	return nil
}
