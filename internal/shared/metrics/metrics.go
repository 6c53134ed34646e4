package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AI generation outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

var (
	registry = prometheus.NewRegistry()

	assessmentsSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "revops_assessments_submitted_total",
		Help: "Total assessments submitted",
	})
	aiGenerations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "revops_ai_generations_total",
		Help: "AI enrichment runs by outcome",
	}, []string{"outcome"})
	aiDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "revops_ai_generation_duration_ms",
		Help:    "AI enrichment duration in milliseconds",
		Buckets: []float64{250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000},
	})
	eventsTracked = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "revops_events_tracked_total",
		Help: "Analytics events tracked by result",
	}, []string{"result"})
	aiQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "revops_ai_queue_depth",
		Help: "AI jobs waiting in the in-process queue",
	})
	rateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "revops_rate_limited_total",
		Help: "Requests rejected by the API rate limiter",
	})
)

func init() {
	registry.MustRegister(
		assessmentsSubmitted,
		aiGenerations,
		aiDuration,
		eventsTracked,
		aiQueueDepth,
		rateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// IncAssessmentSubmitted increments the submitted counter.
func IncAssessmentSubmitted() {
	assessmentsSubmitted.Inc()
}

// IncAIGeneration counts one AI enrichment run with the given outcome.
func IncAIGeneration(outcome string) {
	aiGenerations.WithLabelValues(outcome).Inc()
}

// ObserveAIDurationMs records an AI enrichment duration in milliseconds.
func ObserveAIDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	aiDuration.Observe(value)
}

// IncEventTracked counts an analytics event write; ok=false counts a failure.
func IncEventTracked(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	eventsTracked.WithLabelValues(result).Inc()
}

// SetAIQueueDepth records the current AI queue depth.
func SetAIQueueDepth(n int) {
	aiQueueDepth.Set(float64(n))
}

// IncRateLimited counts a rejected request.
func IncRateLimited() {
	rateLimited.Inc()
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

// NowMillis returns the current time in milliseconds.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}
