package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"seneclass/internal/conversation"
	"seneclass/internal/debuglog"
	"seneclass/internal/llm"
	"seneclass/internal/settings"
)

const (
	maxMessageLen  = 4096
	debugTailLen   = 20
	busyText       = "⏳ Processing..."
	missingKeyText = "You need an API key to use ChatGPT. Send it with /key <your key> or pick another backend with /backend."
)

type idea struct {
	Title       string
	Description string
	Topic       string
}

var ideas = []idea{
	{"Roman Republic", "Explore the politics and society of the late Republic of Rome",
		"Let's discuss ancient Rome. For example, ask what SPQR means or why the Republic fell."},
	{"Quantum Physics", "Dive into the mysterious world of quantum mechanics",
		"Let's explore quantum physics. You could ask about the double-slit experiment or quantum entanglement."},
	{"Financial Markets", "Understand the intricacies of global financial systems",
		"Let's discuss finance. For instance, ask about stock market indices or how cryptocurrencies work."},
	{"Artificial Intelligence", "Explore the cutting-edge field of AI and machine learning",
		"Let's talk about AI. You might ask about neural networks or the ethical implications of AI."},
	{"Climate Change", "Examine the causes and impacts of global climate change",
		"Let's discuss climate change. You could ask about greenhouse gases or potential solutions to global warming."},
	{"Neuroscience", "Unravel the mysteries of the human brain",
		"Let's discuss neuroscience. For instance, ask about neuroplasticity or the nature of consciousness."},
}

// keyboard lays buttons out in one row (horizontal) or one per row (vertical).
func keyboard(dir settings.Direction, buttons ...tgbotapi.InlineKeyboardButton) tgbotapi.InlineKeyboardMarkup {
	if dir == settings.Vertical {
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
		for _, btn := range buttons {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(btn))
		}
		return tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(buttons...))
}

func (b *Bot) sendStudentMessage(s *session, m conversation.Message) {
	buttons := []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("📚 Learn More", infoPrefix+strconv.Itoa(m.Index)),
	}
	if s.reader.Available() {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData("🔊 Read", readPrefix+strconv.Itoa(m.Index)))
	}
	buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData("🔄 New Topic", resetCmd))
	kb := keyboard(s.settings.Snapshot().Direction, buttons...)
	b.sendWithKeyboard(s.chatID, "🧑‍🎓 "+m.Content, &kb)
}

func (b *Bot) sendAdditionalInfo(s *session, index int, info string) {
	text := "📚 " + info
	if !s.reader.Available() {
		b.sendMessage(s.chatID, text)
		return
	}
	kb := keyboard(s.settings.Snapshot().Direction,
		tgbotapi.NewInlineKeyboardButtonData("🔊 Read Additional Info", readInfoPrefix+strconv.Itoa(index)))
	b.sendWithKeyboard(s.chatID, text, &kb)
}

func (b *Bot) sendDraft(s *session, text string) {
	kb := keyboard(s.settings.Snapshot().Direction,
		tgbotapi.NewInlineKeyboardButtonData("✅ Submit Answer", submitDraftCmd))
	b.sendWithKeyboard(s.chatID, "📝 "+text, &kb)
}

func (b *Bot) sendIdeas(s *session, intro string) {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(ideas))
	var bld strings.Builder
	bld.WriteString(intro)
	for i, it := range ideas {
		bld.WriteString(fmt.Sprintf("\n\n• %s: %s", it.Title, it.Description))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(it.Title, ideaPrefix+strconv.Itoa(i))))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	b.sendWithKeyboard(s.chatID, bld.String(), &kb)
}

func formatDebug(entries []debuglog.Entry) string {
	if len(entries) == 0 {
		return "No debug messages yet."
	}
	var bld strings.Builder
	bld.WriteString("🐞 Debug log:")
	for _, e := range entries {
		bld.WriteString(fmt.Sprintf("\n[%s] %s", e.Timestamp, e.Message))
	}
	return bld.String()
}

func formatSettings(cur settings.Settings, hasKey bool) string {
	key := "not set"
	if hasKey {
		key = "set"
	}
	return fmt.Sprintf("⚙️ Settings\nBackend: %s\nDifficulty: %d/10\nSpeech rate: %.1f\nPanel direction: %s\nAPI key: %s",
		cur.Backend.Title(), cur.Difficulty, cur.SpeechRate, cur.Direction, key)
}

func formatBackends(current llm.Backend) string {
	var bld strings.Builder
	bld.WriteString("Available backends:")
	for _, be := range llm.Backends() {
		mark := "  "
		if be == current {
			mark = "✅"
		}
		bld.WriteString(fmt.Sprintf("\n%s %s (%s)", mark, be, be.Title()))
	}
	bld.WriteString("\n\nUsage: /backend <name>")
	return bld.String()
}

// splitMessage cuts text into parts of at most limit bytes, preferring
// line breaks and never splitting a rune.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var parts []string
	for len(text) > limit {
		cut := strings.LastIndex(text[:limit], "\n")
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		parts = append(parts, text[:cut])
		text = strings.TrimPrefix(text[cut:], "\n")
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}
