package metrics

import (
	"sync"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	ChatTurns                map[string]uint64
	CompletionDurationCount  uint64
	CompletionDurationTotal  time.Duration
	SummaryRuns              uint64
	SummaryEntries           map[string]uint64
	VoiceCalls               map[string]uint64 // keyed kind:status
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu                      sync.Mutex
	chatTurns               map[string]uint64
	completionDurationCount uint64
	completionDurationTotal time.Duration
	summaryRuns             uint64
	summaryEntries          map[string]uint64
	voiceCalls              map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		chatTurns:      make(map[string]uint64),
		summaryEntries: make(map[string]uint64),
		voiceCalls:     make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		ChatTurns:               make(map[string]uint64, len(m.chatTurns)),
		CompletionDurationCount: m.completionDurationCount,
		CompletionDurationTotal: m.completionDurationTotal,
		SummaryRuns:             m.summaryRuns,
		SummaryEntries:          make(map[string]uint64, len(m.summaryEntries)),
		VoiceCalls:              make(map[string]uint64, len(m.voiceCalls)),
	}
	for k, v := range m.chatTurns {
		s.ChatTurns[k] = v
	}
	for k, v := range m.summaryEntries {
		s.SummaryEntries[k] = v
	}
	for k, v := range m.voiceCalls {
		s.VoiceCalls[k] = v
	}
	return s
}

// IncChatTurn increments the chat turn counter for a status.
func (m *InMemoryRecorder) IncChatTurn(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chatTurns[status]++
}

// ObserveCompletionDuration records a completion call duration.
func (m *InMemoryRecorder) ObserveCompletionDuration(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completionDurationCount++
	m.completionDurationTotal += duration
}

// IncSummaryRun increments the summarizer pass counter.
func (m *InMemoryRecorder) IncSummaryRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaryRuns++
}

// IncSummaryEntry increments the per-user summary result counter.
func (m *InMemoryRecorder) IncSummaryEntry(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaryEntries[status]++
}

// IncVoiceCall increments the voice call counter for a kind and status.
func (m *InMemoryRecorder) IncVoiceCall(kind, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voiceCalls[kind+":"+status]++
}
