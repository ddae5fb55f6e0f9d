package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	pipelineStartedTotal   atomic.Uint64
	pipelineCompletedTotal atomic.Uint64
	pipelineFailedTotal    atomic.Uint64
	scoringDefectsTotal    atomic.Uint64

	structuringAttemptsTotal atomic.Uint64

	pipelineJobsReceivedTotal            atomic.Uint64
	pipelineJobsCompletedTotal           atomic.Uint64
	pipelineJobsFailedTotal              atomic.Uint64
	pipelineJobsDeletedUnrecoverableTotal atomic.Uint64

	pipelineDuration    = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
	structuringDuration = newHistogram([]float64{250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncPipelineStarted increments the started counter.
func IncPipelineStarted() {
	pipelineStartedTotal.Add(1)
}

// IncPipelineCompleted increments the completed counter.
func IncPipelineCompleted() {
	pipelineCompletedTotal.Add(1)
}

// IncPipelineFailed increments the failed counter.
func IncPipelineFailed() {
	pipelineFailedTotal.Add(1)
}

// IncScoringDefect counts scoring failures, which indicate a violated
// data-shape guarantee upstream rather than a transient fault.
func IncScoringDefect() {
	scoringDefectsTotal.Add(1)
}

// IncStructuringAttempt counts individual structuring LLM attempts.
func IncStructuringAttempt() {
	structuringAttemptsTotal.Add(1)
}

// IncPipelineJobsReceived counts queue messages picked up by the worker.
func IncPipelineJobsReceived() {
	pipelineJobsReceivedTotal.Add(1)
}

// IncPipelineJobsCompleted counts queue jobs that finished successfully.
func IncPipelineJobsCompleted() {
	pipelineJobsCompletedTotal.Add(1)
}

// IncPipelineJobsFailed counts queue jobs that failed processing.
func IncPipelineJobsFailed() {
	pipelineJobsFailedTotal.Add(1)
}

// IncPipelineJobsDeletedUnrecoverable counts malformed messages deleted without processing.
func IncPipelineJobsDeletedUnrecoverable() {
	pipelineJobsDeletedUnrecoverableTotal.Add(1)
}

// ObservePipelineDurationMs records a full pipeline run duration in milliseconds.
func ObservePipelineDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	pipelineDuration.Observe(value)
}

// ObserveStructuringDurationMs records the structuring stage duration in milliseconds.
func ObserveStructuringDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	structuringDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "pipeline_started_total", "Total pipeline runs started", pipelineStartedTotal.Load())
	writeCounter(&buf, "pipeline_completed_total", "Total pipeline runs completed", pipelineCompletedTotal.Load())
	writeCounter(&buf, "pipeline_failed_total", "Total pipeline runs failed", pipelineFailedTotal.Load())
	writeCounter(&buf, "pipeline_scoring_defects_total", "Scoring failures indicating upstream data-shape defects", scoringDefectsTotal.Load())
	writeCounter(&buf, "structuring_attempts_total", "Total structuring LLM attempts", structuringAttemptsTotal.Load())
	writeCounter(&buf, "pipeline_jobs_received_total", "Queue jobs received by the worker", pipelineJobsReceivedTotal.Load())
	writeCounter(&buf, "pipeline_jobs_completed_total", "Queue jobs completed by the worker", pipelineJobsCompletedTotal.Load())
	writeCounter(&buf, "pipeline_jobs_failed_total", "Queue jobs failed in the worker", pipelineJobsFailedTotal.Load())
	writeCounter(&buf, "pipeline_jobs_deleted_unrecoverable_total", "Malformed queue jobs deleted without processing", pipelineJobsDeletedUnrecoverableTotal.Load())
	writeHistogram(&buf, "pipeline_duration_ms", "Pipeline run duration in milliseconds", pipelineDuration.Snapshot())
	writeHistogram(&buf, "structuring_duration_ms", "Structuring stage duration in milliseconds", structuringDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// NowMillis returns current time in milliseconds, useful for callers without time utilities.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}
