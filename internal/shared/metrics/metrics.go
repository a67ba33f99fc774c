package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	ingestStartedTotal   atomic.Uint64
	ingestCompletedTotal atomic.Uint64
	ingestFailedTotal    atomic.Uint64
	ingestFallbackTotal  atomic.Uint64

	answerCompletedTotal   atomic.Uint64
	answerFallbackTotal    atomic.Uint64
	answerFailedTotal      atomic.Uint64
	answerNoKnowledgeTotal atomic.Uint64

	durationBuckets = []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000}
	ingestDuration  = newHistogram(durationBuckets)
	answerDuration  = newHistogram(durationBuckets)
)

// IncIngestStarted counts an ingestion that passed the upload step.
func IncIngestStarted() { ingestStartedTotal.Add(1) }

// IncIngestCompleted counts a document finalized as completed.
func IncIngestCompleted() { ingestCompletedTotal.Add(1) }

// IncIngestFailed counts an ingestion that ended in failure, for any reason.
func IncIngestFailed() { ingestFailedTotal.Add(1) }

// IncIngestFallback counts invocations of the fallback extraction.
func IncIngestFallback() { ingestFallbackTotal.Add(1) }

// IncAnswerCompleted counts persisted answers.
func IncAnswerCompleted() { answerCompletedTotal.Add(1) }

// IncAnswerFallback counts answers replaced by the fallback text.
func IncAnswerFallback() { answerFallbackTotal.Add(1) }

// IncAnswerFailed counts generation failures.
func IncAnswerFailed() { answerFailedTotal.Add(1) }

// IncAnswerNoKnowledgeBase counts questions rejected for lack of documents.
func IncAnswerNoKnowledgeBase() { answerNoKnowledgeTotal.Add(1) }

// ObserveIngestDurationMs records an ingestion duration in milliseconds.
func ObserveIngestDurationMs(value float64) {
	ingestDuration.Observe(clamp(value))
}

// ObserveAnswerDurationMs records an answer duration in milliseconds.
func ObserveAnswerDurationMs(value float64) {
	answerDuration.Observe(clamp(value))
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
	writeCounter(&buf, "ingest_started_total", "Total ingestions started", ingestStartedTotal.Load())
	writeCounter(&buf, "ingest_completed_total", "Total documents finalized as completed", ingestCompletedTotal.Load())
	writeCounter(&buf, "ingest_failed_total", "Total ingestions that failed", ingestFailedTotal.Load())
	writeCounter(&buf, "ingest_fallback_total", "Total fallback extractions", ingestFallbackTotal.Load())
	writeHistogram(&buf, "ingest_duration_ms", "Ingestion duration in milliseconds", ingestDuration.Snapshot())
	writeCounter(&buf, "answer_completed_total", "Total answers persisted", answerCompletedTotal.Load())
	writeCounter(&buf, "answer_fallback_total", "Total answers replaced by fallback text", answerFallbackTotal.Load())
	writeCounter(&buf, "answer_failed_total", "Total answer generation failures", answerFailedTotal.Load())
	writeCounter(&buf, "answer_no_knowledge_base_total", "Total questions asked without documents", answerNoKnowledgeTotal.Load())
	writeHistogram(&buf, "answer_duration_ms", "Answer duration in milliseconds", answerDuration.Snapshot())
	return buf.String()
}

func clamp(value float64) float64 {
	if value < 0 {
		return 0
	}
	return value
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

// Observe stores the value in the first bucket whose bound covers it.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
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
