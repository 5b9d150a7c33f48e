package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncChatTurn is a no-op.
func (n *NoopRecorder) IncChatTurn(status string) {}

// ObserveCompletionDuration is a no-op.
func (n *NoopRecorder) ObserveCompletionDuration(duration time.Duration) {}

// IncSummaryRun is a no-op.
func (n *NoopRecorder) IncSummaryRun() {}

// IncSummaryEntry is a no-op.
func (n *NoopRecorder) IncSummaryEntry(status string) {}

// IncVoiceCall is a no-op.
func (n *NoopRecorder) IncVoiceCall(kind, status string) {}
