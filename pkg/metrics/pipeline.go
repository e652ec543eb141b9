package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records per-execution metadata for the automation worker.
type PipelineMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	dueJobs  prometheus.Gauge
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pipeline_execution_duration_seconds",
		Help:    "Duration of assemble-then-upload executions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"category"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_execution_success",
		Help: "Successful pipeline executions.",
	}, []string{"category"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_execution_failure",
		Help: "Failed pipeline executions.",
	}, []string{"category"})
	dueJobs := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pipeline_due_jobs",
		Help: "Number of due jobs discovered in the latest cycle.",
	})
	reg.MustRegister(duration, success, failure, dueJobs)
	return &PipelineMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		dueJobs:  dueJobs,
	}
}

// ObserveDuration records the duration of one execution for the category.
func (p *PipelineMetrics) ObserveDuration(category string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(category)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the category.
func (p *PipelineMetrics) IncSuccess(category string) {
	if p == nil || p.success == nil {
		return
	}
	p.success.WithLabelValues(normalizeLabel(category)).Inc()
}

// IncFailure increments the failure counter for the category.
func (p *PipelineMetrics) IncFailure(category string) {
	if p == nil || p.failure == nil {
		return
	}
	p.failure.WithLabelValues(normalizeLabel(category)).Inc()
}

// SetDueJobs records how many jobs the latest discovery found.
func (p *PipelineMetrics) SetDueJobs(count int) {
	if p == nil || p.dueJobs == nil {
		return
	}
	p.dueJobs.Set(float64(count))
}

func normalizeLabel(category string) string {
	if category == "" {
		return "unknown"
	}
	return category
}
