// Package speech implements the two optional speech side channels: dictation
// into the answer draft and read-aloud of message text. Both sit on top of
// host capabilities that may be absent; a nil capability turns every call
// into a logged no-op.
package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCapabilityUnavailable = errors.New("speech capability is not available")
	ErrAlreadySpeaking       = errors.New("an utterance is already playing")
	ErrNotListening          = errors.New("dictation is not active")
)

// RuntimeError reports a failure inside a running recognition or synthesis
// session.
type RuntimeError struct {
	Op  string
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("speech %s: %v", e.Op, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

type RecognitionOptions struct {
	Continuous     bool
	InterimResults bool
}

// Result is one recognized segment. Alternatives are ordered best first.
type Result struct {
	Alternatives []string
	Final        bool
}

// Recognizer is the speech-to-text capability. onResults receives every
// result of the session so far, not only the newest one.
type Recognizer interface {
	Start(opts RecognitionOptions, onResults func([]Result), onError func(error)) error
	Stop()
}

type Utterance struct {
	Text string
	Rate float64
}

// Synthesizer is the text-to-speech capability. Speak blocks until the
// utterance has finished or ctx is cancelled.
type Synthesizer interface {
	Speak(ctx context.Context, u Utterance) error
}

// Transcript joins the top alternative of every result.
func Transcript(results []Result) string {
	var b strings.Builder
	for _, r := range results {
		if len(r.Alternatives) == 0 {
			continue
		}
		b.WriteString(r.Alternatives[0])
	}
	return b.String()
}
