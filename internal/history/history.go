package history

import "sync"

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// Message is an immutable conversation record.
type Message struct {
	Role    Role
	Content string
}

// Log is the append-only message history of one conversation. Supplemental
// info lives in a side map keyed by message index so records are never
// mutated after they are appended.
type Log struct {
	mu           sync.RWMutex
	messages     []Message
	supplemental map[int]string
}

func NewLog() *Log {
	return &Log{supplemental: make(map[int]string)}
}

// Append adds msg to the end of the history and returns its index.
func (l *Log) Append(role Role, content string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, Message{Role: role, Content: content})
	return len(l.messages) - 1
}

func (l *Log) Get(i int) (Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i < 0 || i >= len(l.messages) {
		return Message{}, false
	}
	return l.messages[i], true
}

// All returns a copy of the history in insertion order.
func (l *Log) All() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Supplemental returns the cached supplemental info of message i.
func (l *Log) Supplemental(i int) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.supplemental[i]
	return s, ok
}

// SetSupplemental stores text for message i unless a value is already
// cached, and returns whichever value ends up stored. ok is false when i is
// out of range.
func (l *Log) SetSupplemental(i int, text string) (stored string, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i < 0 || i >= len(l.messages) {
		return "", false
	}
	if prev, exists := l.supplemental[i]; exists {
		return prev, true
	}
	l.supplemental[i] = text
	return text, true
}

func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = nil
	l.supplemental = make(map[int]string)
}
