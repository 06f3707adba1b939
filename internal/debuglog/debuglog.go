// Package debuglog keeps the append-only debug trail of orchestration steps.
// The trail is for observability only; nothing reads it to make decisions.
package debuglog

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Entry is one debug line. Timestamp is the wall-clock time of day as shown
// to the user; Time keeps the full instant for sinks.
type Entry struct {
	Time           time.Time `json:"time"`
	Timestamp      string    `json:"timestamp"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Message        string    `json:"message"`
}

// Recorder persists entries outside the process.
// Implementations must be safe for concurrent use.
type Recorder interface {
	Append(entry Entry) error
}

type Log struct {
	mu      sync.RWMutex
	entries []Entry
	sink    Recorder
	logger  zerolog.Logger
	now     func() time.Time
}

// New creates an empty log. sink may be nil.
func New(logger zerolog.Logger, sink Recorder) *Log {
	return &Log{
		sink:   sink,
		logger: logger.With().Str("component", "debuglog").Logger(),
		now:    time.Now,
	}
}

// Add appends message, tagged with the conversation it belongs to.
func (l *Log) Add(conversationID, message string) Entry {
	now := l.now()
	e := Entry{Time: now, Timestamp: now.Format("15:04:05"), ConversationID: conversationID, Message: message}

	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()

	l.logger.Debug().Str("conversation", conversationID).Msg(message)
	if l.sink != nil {
		if err := l.sink.Append(e); err != nil {
			l.logger.Warn().Err(err).Msg("failed to record debug entry")
		}
	}
	return e
}

// Entries returns a copy of the trail in insertion order.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Tail returns at most the n most recent entries.
func (l *Log) Tail(n int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	start := len(l.entries) - n
	if start < 0 {
		start = 0
	}
	out := make([]Entry, len(l.entries)-start)
	copy(out, l.entries[start:])
	return out
}
