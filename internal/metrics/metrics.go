// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Chat orchestrator metrics
	IncChatTurn(status string) // status: "completed", "duplicate", "fallback"
	ObserveCompletionDuration(duration time.Duration)

	// Summarizer metrics
	IncSummaryRun()
	IncSummaryEntry(status string) // status: "written", "failed"

	// Voice bridge metrics
	IncVoiceCall(kind, status string) // kind: "stt"/"tts", status: "success"/"failed"
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
