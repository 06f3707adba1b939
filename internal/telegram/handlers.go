package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"seneclass/internal/conversation"
	"seneclass/internal/llm"
	"seneclass/internal/settings"
	"seneclass/internal/speech"
)

func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil {
		return
	}
	s := b.session(msg.Chat.ID)
	ev := b.logger.Info().Int64("chat_id", msg.Chat.ID)
	if msg.From != nil {
		ev = ev.Str("user", msg.From.UserName)
	}
	ev.Msg("📩 incoming message")

	switch {
	case msg.IsCommand():
		b.handleCommand(ctx, s, msg)
	case msg.Voice != nil:
		b.handleVoice(ctx, s, msg)
	case strings.TrimSpace(msg.Text) != "":
		b.handleText(ctx, s, msg.Text)
	}
}

// handleText routes free text by phase: a topic while idle, an answer once
// the student has asked something.
func (b *Bot) handleText(ctx context.Context, s *session, text string) {
	switch s.ctl.Phase() {
	case conversation.PhaseIdle:
		b.submitTopic(ctx, s, text)
	case conversation.PhaseAwaitingAnswer:
		b.submitAnswer(ctx, s, text)
	default:
		b.sendMessage(s.chatID, busyText)
	}
}

func (b *Bot) submitTopic(ctx context.Context, s *session, topic string) {
	b.request(tgbotapi.NewChatAction(s.chatID, tgbotapi.ChatTyping))
	m, err := s.ctl.SubmitTopic(ctx, topic)
	switch {
	case err == nil:
		b.sendStudentMessage(s, m)
	case errors.Is(err, conversation.ErrCredentialRequired):
		b.sendMessage(s.chatID, missingKeyText)
	case errors.Is(err, conversation.ErrNotIdle):
		if s.ctl.Busy() {
			b.sendMessage(s.chatID, busyText)
			return
		}
		b.sendMessage(s.chatID, "A conversation is already running. Use /restart to pick a new topic.")
	case errors.Is(err, conversation.ErrDiscarded), errors.Is(err, conversation.ErrEmptyTopic):
		b.logger.Debug().Err(err).Int64("chat_id", s.chatID).Msg("topic ignored")
	default:
		b.logger.Error().Err(err).Int64("chat_id", s.chatID).Msg("submit topic failed")
	}
}

func (b *Bot) submitAnswer(ctx context.Context, s *session, answer string) {
	if strings.TrimSpace(answer) == "" {
		return
	}
	b.request(tgbotapi.NewChatAction(s.chatID, tgbotapi.ChatTyping))
	msgs, err := s.ctl.SubmitAnswer(ctx, answer)
	switch {
	case err == nil:
		if len(msgs) > 0 {
			b.sendStudentMessage(s, msgs[len(msgs)-1])
		}
	case errors.Is(err, conversation.ErrBusy):
		b.sendMessage(s.chatID, busyText)
	case errors.Is(err, conversation.ErrCredentialRequired):
		b.sendMessage(s.chatID, missingKeyText)
	case errors.Is(err, conversation.ErrNoConversation):
		b.sendMessage(s.chatID, "Pick a topic first. Send one or use /start for ideas.")
	case errors.Is(err, conversation.ErrDiscarded):
		b.logger.Debug().Int64("chat_id", s.chatID).Msg("follow-up discarded after reset")
	default:
		b.logger.Error().Err(err).Int64("chat_id", s.chatID).Msg("submit answer failed")
	}
}

func (b *Bot) handleCommand(ctx context.Context, s *session, msg *tgbotapi.Message) {
	args := strings.TrimSpace(msg.CommandArguments())
	switch msg.Command() {
	case "start":
		intro := "👋 Teach me something! Send a topic and I will ask you questions about it, or pick one of these ideas:"
		if !s.ctl.CanSubmitTopic() && s.ctl.Phase() == conversation.PhaseIdle {
			intro += "\n\n" + missingKeyText
		}
		b.sendIdeas(s, intro)
	case "key":
		b.request(tgbotapi.NewDeleteMessage(s.chatID, msg.MessageID))
		if args == "" {
			b.sendMessage(s.chatID, "Usage: /key <api key>")
			return
		}
		s.setCredential(args)
		b.sendMessage(s.chatID, "🔑 API key saved.")
	case "backend":
		b.handleBackendCommand(s, args)
	case "difficulty":
		d, err := strconv.Atoi(args)
		if err != nil {
			b.sendMessage(s.chatID, "Usage: /difficulty <1-10>")
			return
		}
		cur, err := s.settings.SetDifficulty(d)
		if err != nil {
			b.sendMessage(s.chatID, fmt.Sprintf("⚠️ %v", err))
			return
		}
		b.sendMessage(s.chatID, fmt.Sprintf("Difficulty: %d/10", cur.Difficulty))
	case "rate":
		r, err := strconv.ParseFloat(args, 64)
		if err != nil {
			b.sendMessage(s.chatID, "Usage: /rate <0.1-10>")
			return
		}
		cur, err := s.settings.SetSpeechRate(r)
		if err != nil {
			b.sendMessage(s.chatID, fmt.Sprintf("⚠️ %v", err))
			return
		}
		b.sendMessage(s.chatID, fmt.Sprintf("Speech rate: %.1f", cur.SpeechRate))
	case "direction":
		b.handleDirectionCommand(s, args)
	case "device":
		b.handleDeviceCommand(s, args)
	case "dictate":
		b.startDictation(s)
	case "stop":
		b.stopSpeech(s)
	case "submit":
		b.submitAnswer(ctx, s, s.ctl.Draft())
	case "restart":
		b.restart(s)
	case "debug":
		b.sendMessage(s.chatID, formatDebug(s.ctl.DebugTail(debugTailLen)))
	case "settings":
		b.sendMessage(s.chatID, formatSettings(s.settings.Snapshot(), s.ctl.HasCredential()))
	default:
		b.sendMessage(s.chatID, "Unknown command. Try /start, /settings or /debug.")
	}
}

func (b *Bot) handleBackendCommand(s *session, args string) {
	if args == "" {
		b.sendMessage(s.chatID, formatBackends(s.settings.Snapshot().Backend))
		return
	}
	be, err := llm.ParseBackend(args)
	if err != nil {
		b.sendMessage(s.chatID, fmt.Sprintf("⚠️ %v\n\n%s", err, formatBackends(s.settings.Snapshot().Backend)))
		return
	}
	cur, err := s.settings.SetBackend(be)
	if err != nil {
		b.sendMessage(s.chatID, fmt.Sprintf("⚠️ %v", err))
		return
	}
	text := "Backend: " + cur.Backend.Title()
	if cur.Backend.RequiresCredential() && !s.ctl.HasCredential() {
		text += "\n\n" + missingKeyText
	}
	b.sendMessage(s.chatID, text)
}

func (b *Bot) handleDirectionCommand(s *session, args string) {
	var dir settings.Direction
	if args == "" {
		dir = settings.Vertical
		if s.settings.Snapshot().Direction == settings.Vertical {
			dir = settings.Horizontal
		}
	} else {
		d, err := settings.ParseDirection(args)
		if err != nil {
			b.sendMessage(s.chatID, "Usage: /direction [vertical|horizontal]")
			return
		}
		dir = d
	}
	cur, err := s.settings.SetDirection(dir)
	if err != nil {
		b.sendMessage(s.chatID, fmt.Sprintf("⚠️ %v", err))
		return
	}
	b.sendMessage(s.chatID, "Panel direction: "+string(cur.Direction))
}

func (b *Bot) handleDeviceCommand(s *session, args string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		b.sendMessage(s.chatID, "Usage: /device <width> [user agent]")
		return
	}
	width, err := strconv.Atoi(fields[0])
	if err != nil || width <= 0 {
		b.sendMessage(s.chatID, "Usage: /device <width> [user agent]")
		return
	}
	cur := s.settings.ApplyDevice(strings.Join(fields[1:], " "), width)
	b.sendMessage(s.chatID, "Panel direction: "+string(cur.Direction))
}

func (b *Bot) restart(s *session) {
	_ = s.dictation.Stop()
	s.reader.Stop()
	s.ctl.Reset()
	b.sendIdeas(s, "🔄 Conversation reset. Send a new topic or pick an idea:")
}

func (b *Bot) startDictation(s *session) {
	err := s.dictation.Start()
	switch {
	case err == nil:
		b.sendMessage(s.chatID, "🎙️ Listening. Send voice notes; /stop ends dictation and /submit sends the draft.")
	case errors.Is(err, speech.ErrCapabilityUnavailable):
		b.sendMessage(s.chatID, "Speech recognition is not available.")
	default:
		b.sendMessage(s.chatID, fmt.Sprintf("⚠️ %v", err))
	}
}

func (b *Bot) stopSpeech(s *session) {
	var stopped []string
	if err := s.dictation.Stop(); err == nil {
		stopped = append(stopped, "dictation")
	}
	if s.reader.Speaking() {
		s.reader.Stop()
		stopped = append(stopped, "speech")
	}
	if len(stopped) == 0 {
		b.sendMessage(s.chatID, "Nothing to stop.")
		return
	}
	b.sendMessage(s.chatID, "⏹ Stopped "+strings.Join(stopped, " and ")+".")
}

func (b *Bot) handleVoice(ctx context.Context, s *session, msg *tgbotapi.Message) {
	if s.whisper == nil {
		b.sendMessage(s.chatID, "Speech recognition is not available.")
		return
	}
	if !s.dictation.Listening() {
		b.sendDictationOff(s)
		return
	}

	url, err := b.s.GetFileDirectURL(msg.Voice.FileID)
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to resolve voice file")
		b.sendMessage(s.chatID, "⚠️ Could not download the voice note.")
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to build download request")
		return
	}
	resp, err := b.http.Do(req)
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to download voice file")
		b.sendMessage(s.chatID, "⚠️ Could not download the voice note.")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b.logger.Error().Int("status", resp.StatusCode).Msg("voice download failed")
		b.sendMessage(s.chatID, "⚠️ Could not download the voice note.")
		return
	}

	if err := s.whisper.Feed(ctx, "voice.ogg", resp.Body); err != nil {
		if errors.Is(err, speech.ErrNotListening) {
			b.sendDictationOff(s)
			return
		}
		b.sendMessage(s.chatID, fmt.Sprintf("⚠️ Dictation stopped: %v", err))
	}
}

// sendDictationOff tells the user dictation is idle, naming the error that
// ended the last session if there was one.
func (b *Bot) sendDictationOff(s *session) {
	if err := s.dictation.Err(); err != nil {
		b.sendMessage(s.chatID, fmt.Sprintf("🎙️ Dictation stopped after an error: %v\nUse /dictate to start it again.", err))
		return
	}
	b.sendMessage(s.chatID, "🎙️ Dictation is off. Use /dictate to start it.")
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	b.request(tgbotapi.NewCallback(cb.ID, ""))
	s := b.session(cb.Message.Chat.ID)

	switch {
	case cb.Data == resetCmd:
		b.restart(s)
	case cb.Data == stopSpeakingCmd:
		s.reader.Stop()
	case cb.Data == submitDraftCmd:
		b.submitAnswer(ctx, s, s.ctl.Draft())
	case strings.HasPrefix(cb.Data, infoPrefix):
		if i, ok := parseIndex(cb.Data, infoPrefix); ok {
			b.learnMore(ctx, s, i)
		}
	case strings.HasPrefix(cb.Data, readInfoPrefix):
		if i, ok := parseIndex(cb.Data, readInfoPrefix); ok {
			if m, found := s.ctl.Message(i); found && m.AdditionalInfo != "" {
				b.speak(ctx, s, m.AdditionalInfo)
			}
		}
	case strings.HasPrefix(cb.Data, readPrefix):
		if i, ok := parseIndex(cb.Data, readPrefix); ok {
			if m, found := s.ctl.Message(i); found {
				b.speak(ctx, s, m.Content)
			}
		}
	case strings.HasPrefix(cb.Data, ideaPrefix):
		if i, ok := parseIndex(cb.Data, ideaPrefix); ok && i < len(ideas) {
			b.submitTopic(ctx, s, ideas[i].Topic)
		}
	}
}

func (b *Bot) learnMore(ctx context.Context, s *session, index int) {
	b.request(tgbotapi.NewChatAction(s.chatID, tgbotapi.ChatTyping))
	info, err := s.ctl.RequestAdditionalInfo(ctx, index)
	switch {
	case err == nil:
		b.sendAdditionalInfo(s, index, info)
	case errors.Is(err, conversation.ErrCredentialRequired):
		b.sendMessage(s.chatID, missingKeyText)
	case errors.Is(err, conversation.ErrDiscarded), errors.Is(err, conversation.ErrMessageNotFound):
		b.logger.Debug().Err(err).Int64("chat_id", s.chatID).Msg("additional info dropped")
	default:
		b.sendMessage(s.chatID, fmt.Sprintf("⚠️ Could not load additional info: %v", err))
	}
}

func (b *Bot) speak(ctx context.Context, s *session, text string) {
	stopKb := keyboard(s.settings.Snapshot().Direction,
		tgbotapi.NewInlineKeyboardButtonData("⏹ Stop Speaking", stopSpeakingCmd))
	done, err := s.reader.Speak(ctx, text)
	switch {
	case errors.Is(err, speech.ErrAlreadySpeaking):
		b.sendWithKeyboard(s.chatID, "🔊 Already speaking.", &stopKb)
		return
	case errors.Is(err, speech.ErrCapabilityUnavailable):
		b.sendMessage(s.chatID, "Speech synthesis is not available.")
		return
	case err != nil:
		b.sendMessage(s.chatID, fmt.Sprintf("⚠️ %v", err))
		return
	}
	b.sendWithKeyboard(s.chatID, "🔊 Speaking...", &stopKb)

	go func() {
		if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
			b.sendMessage(s.chatID, fmt.Sprintf("⚠️ Speech failed: %v", err))
		}
	}()
}

func parseIndex(data, prefix string) (int, bool) {
	i, err := strconv.Atoi(strings.TrimPrefix(data, prefix))
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}
