package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/moreai/moreai/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	for _, status := range sortedKeys(snap.ChatTurns) {
		writeMetric(w, "moreai_chat_turns_total{status=%q} %d\n", status, snap.ChatTurns[status])
	}
	writeMetric(w, "moreai_completion_duration_seconds_count %d\n", snap.CompletionDurationCount)
	writeMetric(w, "moreai_completion_duration_seconds_sum %.6f\n", snap.CompletionDurationTotal.Seconds())

	writeMetric(w, "moreai_summary_runs_total %d\n", snap.SummaryRuns)
	for _, status := range sortedKeys(snap.SummaryEntries) {
		writeMetric(w, "moreai_summary_entries_total{status=%q} %d\n", status, snap.SummaryEntries[status])
	}

	for _, key := range sortedKeys(snap.VoiceCalls) {
		writeMetric(w, "moreai_voice_calls_total{call=%q} %d\n", key, snap.VoiceCalls[key])
	}
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
