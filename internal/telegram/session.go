package telegram

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	openai "github.com/sashabaranov/go-openai"

	"seneclass/internal/conversation"
	"seneclass/internal/debuglog"
	"seneclass/internal/settings"
	"seneclass/internal/speech"
)

// session is the per-chat state. It lives until the idle sweep drops it;
// nothing in it is persisted.
type session struct {
	chatID      int64
	ctl         *conversation.Controller
	settings    *settings.Store
	dictation   *speech.Dictation
	whisper     *speech.WhisperRecognizer
	reader      *speech.ReadAloud
	unsubscribe func()

	mu         sync.Mutex
	credential string
	lastSeen   time.Time
}

func (s *session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

func (s *session) seen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *session) setCredential(c string) {
	c = strings.TrimSpace(c)
	s.mu.Lock()
	s.credential = c
	s.mu.Unlock()
	s.ctl.SetCredential(c)
}

func (s *session) getCredential() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credential
}

func (s *session) close() {
	_ = s.dictation.Stop()
	s.reader.Stop()
	s.unsubscribe()
	s.ctl.Reset()
}

// session returns the chat's session, creating it on first contact.
func (b *Bot) session(chatID int64) *session {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	if s, ok := b.sessions[chatID]; ok {
		s.touch(now)
		return s
	}
	s := b.newSession(chatID, now)
	b.sessions[chatID] = s
	b.logger.Info().Int64("chat_id", chatID).Msg("🆕 session created")
	return s
}

func (b *Bot) newSession(chatID int64, now time.Time) *session {
	logger := b.logger.With().Int64("chat_id", chatID).Logger()
	store, err := settings.NewStore(b.opts.Defaults)
	if err != nil {
		logger.Warn().Err(err).Msg("invalid session defaults, falling back to built-in ones")
		store, _ = settings.NewStore(settings.Defaults())
	}

	s := &session{chatID: chatID, settings: store, lastSeen: now}
	s.ctl = conversation.New(b.gen, store, debuglog.New(logger, b.opts.DebugSink), logger)
	s.setCredential(b.opts.Credential)

	var rec speech.Recognizer
	var synth speech.Synthesizer
	if b.opts.Speech.Enabled {
		audio := openAIAudio{baseURL: b.opts.Speech.BaseURL, credential: s.getCredential}
		s.whisper = speech.NewWhisperRecognizer(audio, b.opts.Speech.STTModel, logger)
		rec = s.whisper
		synth = speech.NewOpenAISynthesizer(audio, b.opts.Speech.TTSModel, b.opts.Speech.TTSVoice, chatAudio{s: b.s, chatID: chatID})
	}
	s.dictation = speech.NewDictation(rec, draftEcho{b: b, s: s}, logger)
	s.reader = speech.NewReadAloud(synth, store, logger)
	s.unsubscribe = store.Subscribe(func(cur settings.Settings) {
		logger.Debug().
			Str("backend", string(cur.Backend)).
			Str("direction", string(cur.Direction)).
			Int("difficulty", cur.Difficulty).
			Float64("rate", cur.SpeechRate).
			Msg("⚙️ settings changed")
	})
	return s
}

// SweepIdle drops sessions untouched for longer than the configured TTL and
// returns how many were dropped.
func (b *Bot) SweepIdle(_ context.Context, now time.Time) int {
	if b.opts.SessionTTL <= 0 {
		return 0
	}
	b.mu.Lock()
	var expired []*session
	for id, s := range b.sessions {
		if now.Sub(s.seen()) > b.opts.SessionTTL {
			expired = append(expired, s)
			delete(b.sessions, id)
		}
	}
	b.mu.Unlock()

	for _, s := range expired {
		s.close()
	}
	return len(expired)
}

// draftEcho writes dictation results into the answer draft and shows the
// draft in the chat.
type draftEcho struct {
	b *Bot
	s *session
}

func (d draftEcho) SetDraft(text string) {
	d.s.ctl.SetDraft(text)
	d.b.sendDraft(d.s, text)
}

// openAIAudio builds a client from the session key on every call so a key
// set with /key takes effect immediately.
type openAIAudio struct {
	baseURL    string
	credential func() string
}

func (a openAIAudio) client() (*openai.Client, error) {
	key := a.credential()
	if key == "" {
		return nil, conversation.ErrCredentialRequired
	}
	cfg := openai.DefaultConfig(key)
	if a.baseURL != "" {
		cfg.BaseURL = a.baseURL
	}
	return openai.NewClientWithConfig(cfg), nil
}

func (a openAIAudio) CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error) {
	c, err := a.client()
	if err != nil {
		return openai.AudioResponse{}, err
	}
	return c.CreateTranscription(ctx, req)
}

func (a openAIAudio) CreateSpeech(ctx context.Context, req openai.CreateSpeechRequest) (openai.RawResponse, error) {
	c, err := a.client()
	if err != nil {
		return openai.RawResponse{}, err
	}
	return c.CreateSpeech(ctx, req)
}

// chatAudio delivers synthesized speech as a voice message.
type chatAudio struct {
	s      sender
	chatID int64
}

func (c chatAudio) PlayAudio(ctx context.Context, name string, audio io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.s.Send(tgbotapi.NewVoice(c.chatID, tgbotapi.FileReader{Name: name, Reader: audio}))
	return err
}
