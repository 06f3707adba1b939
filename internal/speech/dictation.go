package speech

import (
	"sync"

	"github.com/rs/zerolog"
)

// DraftWriter receives the accumulated transcript.
type DraftWriter interface {
	SetDraft(text string)
}

// Dictation is the idle/listening state machine. Each results event
// overwrites the draft with the full transcript.
type Dictation struct {
	rec    Recognizer
	draft  DraftWriter
	logger zerolog.Logger

	mu        sync.Mutex
	listening bool
	// session guards against callbacks from a recognizer run that has
	// already been stopped.
	session uint64
	lastErr error
}

// NewDictation accepts a nil recognizer when the host has none.
func NewDictation(rec Recognizer, draft DraftWriter, logger zerolog.Logger) *Dictation {
	return &Dictation{
		rec:    rec,
		draft:  draft,
		logger: logger.With().Str("component", "dictation").Logger(),
	}
}

func (d *Dictation) Available() bool { return d.rec != nil }

func (d *Dictation) Start() error {
	if d.rec == nil {
		d.logger.Info().Msg("speech recognition not supported")
		return ErrCapabilityUnavailable
	}

	d.mu.Lock()
	if d.listening {
		d.mu.Unlock()
		return nil
	}
	d.session++
	s := d.session
	d.listening = true
	d.lastErr = nil
	d.mu.Unlock()

	err := d.rec.Start(RecognitionOptions{Continuous: true, InterimResults: true},
		func(results []Result) { d.onResults(s, results) },
		func(err error) { d.onError(s, err) },
	)
	if err != nil {
		d.mu.Lock()
		if d.session == s {
			d.listening = false
		}
		d.mu.Unlock()
		d.logger.Error().Err(err).Msg("failed to start recognition")
		return &RuntimeError{Op: "recognition start", Err: err}
	}
	d.logger.Debug().Msg("🎙️ dictation started")
	return nil
}

// Stop ends dictation. From idle it changes nothing and returns
// ErrNotListening.
func (d *Dictation) Stop() error {
	d.mu.Lock()
	if !d.listening {
		d.mu.Unlock()
		return ErrNotListening
	}
	d.listening = false
	d.session++
	d.mu.Unlock()

	d.rec.Stop()
	d.logger.Debug().Msg("dictation stopped")
	return nil
}

func (d *Dictation) Listening() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.listening
}

// Err returns the error that ended the last session, if any.
func (d *Dictation) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

func (d *Dictation) onResults(s uint64, results []Result) {
	d.mu.Lock()
	if !d.listening || d.session != s {
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()
	d.draft.SetDraft(Transcript(results))
}

func (d *Dictation) onError(s uint64, err error) {
	d.mu.Lock()
	if d.session != s {
		d.mu.Unlock()
		return
	}
	d.listening = false
	d.session++
	d.lastErr = &RuntimeError{Op: "recognition", Err: err}
	d.mu.Unlock()
	d.logger.Error().Err(err).Msg("speech recognition error")
}
