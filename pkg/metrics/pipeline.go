package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records outcomes for transcode pipeline runs.
type PipelineMetrics struct {
	stageDuration *prometheus.HistogramVec
	runSuccess    *prometheus.CounterVec
	runFailure    *prometheus.CounterVec
	polls         *prometheus.CounterVec
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	stageDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "transcode_stage_duration_seconds",
		Help:    "Duration of transcode pipeline stages in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.1, 4, 10),
	}, []string{"stage"})
	runSuccess := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transcode_run_success",
		Help: "Completed transcode pipeline runs.",
	}, []string{"trigger"})
	runFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transcode_run_failure",
		Help: "Failed transcode pipeline runs.",
	}, []string{"trigger"})
	polls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transcode_status_polls",
		Help: "Status polls issued against the encoding provider.",
	}, []string{"resource"})
	reg.MustRegister(stageDuration, runSuccess, runFailure, polls)
	return &PipelineMetrics{
		stageDuration: stageDuration,
		runSuccess:    runSuccess,
		runFailure:    runFailure,
		polls:         polls,
	}
}

// ObserveStage records the duration for the named pipeline stage.
func (p *PipelineMetrics) ObserveStage(stage string, duration time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(normalizeLabel(stage)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named trigger.
func (p *PipelineMetrics) IncSuccess(trigger string) {
	if p == nil || p.runSuccess == nil {
		return
	}
	p.runSuccess.WithLabelValues(normalizeLabel(trigger)).Inc()
}

// IncFailure increments the failure counter for the named trigger.
func (p *PipelineMetrics) IncFailure(trigger string) {
	if p == nil || p.runFailure == nil {
		return
	}
	p.runFailure.WithLabelValues(normalizeLabel(trigger)).Inc()
}

// IncPoll counts one status poll against the named provider resource.
func (p *PipelineMetrics) IncPoll(resource string) {
	if p == nil || p.polls == nil {
		return
	}
	p.polls.WithLabelValues(normalizeLabel(resource)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
