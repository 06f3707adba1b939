// Package telegram is the chat front end. Every chat gets its own
// ephemeral session: a conversation, its settings and its speech channels.
package telegram

import (
	"context"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"seneclass/internal/debuglog"
	"seneclass/internal/llm"
	"seneclass/internal/settings"
)

const (
	resetCmd        = "reset_ctx"
	stopSpeakingCmd = "stop_speaking"
	submitDraftCmd  = "submit_draft"
	infoPrefix      = "info:"
	readPrefix      = "read:"
	readInfoPrefix  = "readinfo:"
	ideaPrefix      = "idea:"
)

type SpeechConfig struct {
	Enabled  bool
	BaseURL  string
	STTModel string
	TTSModel string
	TTSVoice string
}

type Options struct {
	// Defaults seeds the settings of every new session.
	Defaults settings.Settings
	// Credential is preloaded into new sessions; users may override it with /key.
	Credential string
	// SessionTTL is how long an untouched session survives. Zero keeps
	// sessions forever.
	SessionTTL time.Duration
	Speech     SpeechConfig
	DebugSink  debuglog.Recorder
}

type Bot struct {
	api    *tgbotapi.BotAPI
	s      sender
	gen    llm.Generator
	opts   Options
	logger zerolog.Logger
	http   *http.Client
	now    func() time.Time

	mu       sync.Mutex
	sessions map[int64]*session
}

func New(botToken string, gen llm.Generator, opts Options, logger zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	b := newBot(botAPISender{api: api}, gen, opts, logger)
	b.api = api
	return b, nil
}

func newBot(s sender, gen llm.Generator, opts Options, logger zerolog.Logger) *Bot {
	return &Bot{
		s:        s,
		gen:      gen,
		opts:     opts,
		logger:   logger.With().Str("component", "telegram").Logger(),
		http:     &http.Client{Timeout: time.Minute},
		now:      time.Now,
		sessions: make(map[int64]*session),
	}
}

// Start polls for updates until ctx is cancelled. Updates are handled
// concurrently so a chat can stop speech or see the busy notice while a
// reply is still being generated.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info().Str("bot", b.api.Self.UserName).Msg("🤖 bot started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message != nil {
		b.handleIncomingMessage(ctx, update.Message)
		return
	}
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	b.sendWithKeyboard(chatID, text, nil)
}

// sendWithKeyboard splits long texts; the keyboard goes on the last part.
func (b *Bot) sendWithKeyboard(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	parts := splitMessage(text, maxMessageLen)
	for i, part := range parts {
		msg := tgbotapi.NewMessage(chatID, part)
		if kb != nil && i == len(parts)-1 {
			msg.ReplyMarkup = *kb
		}
		if _, err := b.s.Send(msg); err != nil {
			b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send message")
		}
	}
}

func (b *Bot) request(c tgbotapi.Chattable) {
	if _, err := b.s.Request(c); err != nil {
		b.logger.Debug().Err(err).Msg("request failed")
	}
}
