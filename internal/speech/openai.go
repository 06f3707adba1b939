package speech

import (
	"context"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

const (
	minSpeechSpeed = 0.25
	maxSpeechSpeed = 4.0
)

// Transcriber is satisfied by *openai.Client.
type Transcriber interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

// WhisperRecognizer turns voice clips into recognition results. Clips are
// pushed with Feed while a session is active; every clip adds one final
// result and the whole list is reported again.
type WhisperRecognizer struct {
	client Transcriber
	model  string
	logger zerolog.Logger

	// feedMu keeps clips in arrival order across the API call.
	feedMu sync.Mutex

	mu        sync.Mutex
	active    bool
	results   []Result
	onResults func([]Result)
	onError   func(error)
}

func NewWhisperRecognizer(client Transcriber, model string, logger zerolog.Logger) *WhisperRecognizer {
	if model == "" {
		model = openai.Whisper1
	}
	return &WhisperRecognizer{
		client: client,
		model:  model,
		logger: logger.With().Str("component", "whisper").Logger(),
	}
}

func (w *WhisperRecognizer) Start(_ RecognitionOptions, onResults func([]Result), onError func(error)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.active = true
	w.results = nil
	w.onResults = onResults
	w.onError = onError
	return nil
}

func (w *WhisperRecognizer) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.active = false
	w.onResults = nil
	w.onError = nil
}

// Feed transcribes one clip. name must carry an extension the API
// recognizes (e.g. voice.ogg).
func (w *WhisperRecognizer) Feed(ctx context.Context, name string, audio io.Reader) error {
	w.feedMu.Lock()
	defer w.feedMu.Unlock()

	w.mu.Lock()
	if !w.active {
		w.mu.Unlock()
		return ErrNotListening
	}
	w.mu.Unlock()

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: name,
		Reader:   audio,
	})
	if err != nil {
		w.mu.Lock()
		onError := w.onError
		w.active = false
		w.mu.Unlock()
		if onError != nil {
			onError(err)
		}
		return &RuntimeError{Op: "transcription", Err: err}
	}

	text := strings.TrimSpace(resp.Text)
	w.mu.Lock()
	if !w.active {
		w.mu.Unlock()
		return nil
	}
	if text != "" {
		if len(w.results) > 0 {
			text = " " + text
		}
		w.results = append(w.results, Result{Alternatives: []string{text}, Final: true})
	}
	snapshot := make([]Result, len(w.results))
	copy(snapshot, w.results)
	onResults := w.onResults
	w.mu.Unlock()

	w.logger.Debug().Int("results", len(snapshot)).Msg("clip transcribed")
	if onResults != nil {
		onResults(snapshot)
	}
	return nil
}

// SpeechCreator is satisfied by *openai.Client.
type SpeechCreator interface {
	CreateSpeech(ctx context.Context, request openai.CreateSpeechRequest) (openai.RawResponse, error)
}

// AudioSink plays or delivers synthesized audio.
type AudioSink interface {
	PlayAudio(ctx context.Context, name string, audio io.Reader) error
}

type OpenAISynthesizer struct {
	client SpeechCreator
	model  string
	voice  string
	sink   AudioSink
}

func NewOpenAISynthesizer(client SpeechCreator, model, voice string, sink AudioSink) *OpenAISynthesizer {
	if model == "" {
		model = string(openai.TTSModel1)
	}
	if voice == "" {
		voice = string(openai.VoiceAlloy)
	}
	return &OpenAISynthesizer{client: client, model: model, voice: voice, sink: sink}
}

func (s *OpenAISynthesizer) Speak(ctx context.Context, u Utterance) error {
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.model),
		Input:          u.Text,
		Voice:          openai.SpeechVoice(s.voice),
		ResponseFormat: openai.SpeechResponseFormatOpus,
		Speed:          clampSpeed(u.Rate),
	})
	if err != nil {
		return &RuntimeError{Op: "synthesis", Err: err}
	}
	defer resp.Close()

	if err := ctx.Err(); err != nil {
		return err
	}
	return s.sink.PlayAudio(ctx, "speech.ogg", resp)
}

func clampSpeed(rate float64) float64 {
	switch {
	case math.IsNaN(rate) || rate <= 0:
		return 1
	case rate < minSpeechSpeed:
		return minSpeechSpeed
	case rate > maxSpeechSpeed:
		return maxSpeechSpeed
	default:
		return rate
	}
}
