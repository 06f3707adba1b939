package speech

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"seneclass/internal/settings"
)

// SettingsReader is the part of the settings store read-aloud needs.
type SettingsReader interface {
	Snapshot() settings.Settings
}

// ReadAloud is the idle/speaking state machine. One utterance plays at a
// time; its rate is fixed when it starts.
type ReadAloud struct {
	synth    Synthesizer
	settings SettingsReader
	logger   zerolog.Logger

	mu       sync.Mutex
	speaking bool
	current  uint64
	cancel   context.CancelFunc
}

// NewReadAloud accepts a nil synthesizer when the host has none.
func NewReadAloud(synth Synthesizer, store SettingsReader, logger zerolog.Logger) *ReadAloud {
	return &ReadAloud{
		synth:    synth,
		settings: store,
		logger:   logger.With().Str("component", "read_aloud").Logger(),
	}
}

func (r *ReadAloud) Available() bool { return r.synth != nil }

// Speak starts text in the background. The returned channel yields the
// outcome once the utterance ends: nil on completion, context.Canceled
// after Stop, or the synthesizer error.
func (r *ReadAloud) Speak(ctx context.Context, text string) (<-chan error, error) {
	if r.synth == nil {
		r.logger.Info().Msg("speech synthesis not supported")
		return nil, ErrCapabilityUnavailable
	}

	r.mu.Lock()
	if r.speaking {
		r.mu.Unlock()
		return nil, ErrAlreadySpeaking
	}
	r.current++
	id := r.current
	ctx, cancel := context.WithCancel(ctx)
	r.speaking = true
	r.cancel = cancel
	u := Utterance{Text: text, Rate: r.settings.Snapshot().SpeechRate}
	r.mu.Unlock()

	r.logger.Debug().Float64("rate", u.Rate).Int("chars", len(text)).Msg("🔊 speaking")
	done := make(chan error, 1)
	go func() {
		err := r.synth.Speak(ctx, u)
		cancel()
		r.finish(id, err)
		done <- err
		close(done)
	}()
	return done, nil
}

// Stop cancels the active utterance and returns to idle at once.
func (r *ReadAloud) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.speaking {
		return
	}
	r.cancel()
	r.speaking = false
	r.cancel = nil
	r.logger.Debug().Msg("speech cancelled")
}

func (r *ReadAloud) Speaking() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.speaking
}

func (r *ReadAloud) finish(id uint64, err error) {
	r.mu.Lock()
	if r.current == id && r.speaking {
		r.speaking = false
		r.cancel = nil
	}
	r.mu.Unlock()
	if err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Error().Err(err).Msg("speech synthesis error")
	}
}
