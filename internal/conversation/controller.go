// Package conversation drives the teach-to-learn loop: it turns the topic,
// difficulty and answers into prompts, sends them to the model gateway and
// folds the replies back into the message history.
package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"seneclass/internal/debuglog"
	"seneclass/internal/history"
	"seneclass/internal/llm"
	"seneclass/internal/prompt"
	"seneclass/internal/settings"
)

type Phase string

const (
	PhaseIdle               Phase = "idle"
	PhaseGeneratingQuestion Phase = "generating_question"
	PhaseAwaitingAnswer     Phase = "awaiting_answer"
	PhaseGeneratingFollowUp Phase = "generating_follow_up"
)

const (
	promptPreviewLen = 50
	answerFallback   = "It seems I made a mistake, could you check the debug log?"
)

// Message is a history entry joined with its cached supplemental info.
type Message struct {
	Index          int
	Role           history.Role
	Content        string
	AdditionalInfo string
}

// Controller owns one conversation. All methods are safe for concurrent
// use; at most one question/answer generation is in flight at a time.
type Controller struct {
	gen      llm.Generator
	settings *settings.Store
	debug    *debuglog.Log
	logger   zerolog.Logger

	mu         sync.Mutex
	history    *history.Log
	topic      string
	phase      Phase
	busy       bool
	draft      string
	credential string
	// epoch changes on every Reset; replies from an older epoch are dropped.
	epoch uint64
	id    string

	info singleflight.Group
}

func New(gen llm.Generator, store *settings.Store, debug *debuglog.Log, logger zerolog.Logger) *Controller {
	return &Controller{
		gen:      gen,
		settings: store,
		debug:    debug,
		logger:   logger.With().Str("component", "conversation").Logger(),
		history:  history.NewLog(),
		phase:    PhaseIdle,
		id:       uuid.NewString(),
	}
}

// SubmitTopic starts a conversation and asks the backend for the first
// student question. A backend failure is reported as the student's message.
func (c *Controller) SubmitTopic(ctx context.Context, topic string) (Message, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Message{}, ErrEmptyTopic
	}

	c.mu.Lock()
	if c.phase != PhaseIdle || c.busy {
		c.mu.Unlock()
		return Message{}, ErrNotIdle
	}
	cfg := c.settings.Snapshot()
	if !c.credentialOK(cfg) {
		c.mu.Unlock()
		return Message{}, ErrCredentialRequired
	}
	c.topic = topic
	c.phase = PhaseGeneratingQuestion
	c.busy = true
	c.draft = ""
	epoch, id, credential := c.epoch, c.id, c.credential
	c.mu.Unlock()

	c.debug.Add(id, "Topic submitted: "+topic)
	out, err := c.generate(ctx, id, prompt.InitialQuestion(topic, cfg.Difficulty), cfg.Backend, credential)
	content := out
	if err != nil {
		c.debug.Add(id, "Error generating question: "+err.Error())
		c.logger.Warn().Err(err).Str("backend", string(cfg.Backend)).Msg("initial question failed")
		content = fmt.Sprintf("I'm having trouble answering the question Error: %v", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		c.debug.Add(id, "Discarding question for a conversation that was reset")
		return Message{}, ErrDiscarded
	}
	i := c.history.Append(history.RoleStudent, content)
	c.phase = PhaseAwaitingAnswer
	c.busy = false
	return Message{Index: i, Role: history.RoleStudent, Content: content}, nil
}

// SubmitAnswer records the teacher's answer and asks the backend for the
// student's follow-up. Blank answers are ignored. The returned slice holds
// the teacher message followed by the student reply.
func (c *Controller) SubmitAnswer(ctx context.Context, answer string) ([]Message, error) {
	if strings.TrimSpace(answer) == "" {
		return nil, nil
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	if c.phase != PhaseAwaitingAnswer {
		c.mu.Unlock()
		return nil, ErrNoConversation
	}
	cfg := c.settings.Snapshot()
	if !c.credentialOK(cfg) {
		c.mu.Unlock()
		return nil, ErrCredentialRequired
	}
	c.busy = true
	c.phase = PhaseGeneratingFollowUp
	epoch, id, credential, topic := c.epoch, c.id, c.credential, c.topic
	c.debug.Add(id, "Answer submitted")
	ti := c.history.Append(history.RoleTeacher, answer)
	c.mu.Unlock()

	teacher := Message{Index: ti, Role: history.RoleTeacher, Content: answer}
	out, err := c.generate(ctx, id, prompt.FollowUp(answer, cfg.Difficulty, topic), cfg.Backend, credential)
	content := out
	if err != nil {
		c.debug.Add(id, "Error generating question: "+err.Error())
		c.logger.Warn().Err(err).Str("backend", string(cfg.Backend)).Msg("follow-up failed")
		content = answerFallback
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		c.debug.Add(id, "Discarding follow-up for a conversation that was reset")
		return []Message{teacher}, ErrDiscarded
	}
	si := c.history.Append(history.RoleStudent, content)
	if err == nil {
		c.draft = ""
	}
	c.phase = PhaseAwaitingAnswer
	c.busy = false
	return []Message{teacher, {Index: si, Role: history.RoleStudent, Content: content}}, nil
}

// RequestAdditionalInfo returns a detailed explanation for the student
// message at index. The first successful result is cached; later calls and
// concurrent duplicates never reach the backend again.
func (c *Controller) RequestAdditionalInfo(ctx context.Context, index int) (string, error) {
	c.mu.Lock()
	msg, ok := c.history.Get(index)
	if !ok {
		c.mu.Unlock()
		return "", ErrMessageNotFound
	}
	if msg.Role != history.RoleStudent {
		c.mu.Unlock()
		return "", ErrNotStudentMessage
	}
	if info, ok := c.history.Supplemental(index); ok {
		c.mu.Unlock()
		return info, nil
	}
	cfg := c.settings.Snapshot()
	if !c.credentialOK(cfg) {
		c.mu.Unlock()
		return "", ErrCredentialRequired
	}
	epoch, id, credential, topic := c.epoch, c.id, c.credential, c.topic
	c.mu.Unlock()

	key := fmt.Sprintf("%d/%d", epoch, index)
	v, err, _ := c.info.Do(key, func() (any, error) {
		if info, ok := c.cachedInfo(epoch, index); ok {
			return info, nil
		}
		c.debug.Add(id, fmt.Sprintf("Additional info requested for message %d", index))
		out, err := c.generate(ctx, id, prompt.SupplementalInfo(topic, msg.Content), cfg.Backend, credential)
		if err != nil {
			c.debug.Add(id, "Error generating additional info: "+err.Error())
			return "", err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.epoch != epoch {
			c.debug.Add(id, "Discarding additional info for a conversation that was reset")
			return "", ErrDiscarded
		}
		stored, _ := c.history.SetSupplemental(index, out)
		return stored, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Reset clears the topic and history and returns to idle. Replies to calls
// issued before the reset are discarded when they arrive.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.debug.Add(c.id, "Conversation reset")
	c.epoch++
	c.id = uuid.NewString()
	c.topic = ""
	c.phase = PhaseIdle
	c.busy = false
	c.draft = ""
	c.history.Reset()
}

func (c *Controller) cachedInfo(epoch uint64, index int) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return "", false
	}
	return c.history.Supplemental(index)
}

func (c *Controller) generate(ctx context.Context, id, p string, backend llm.Backend, credential string) (string, error) {
	c.debug.Add(id, "Generating response based on: "+preview(p, promptPreviewLen)+"...")
	return c.gen.Generate(ctx, p, backend, credential)
}

// credentialOK must be called with c.mu held.
func (c *Controller) credentialOK(cfg settings.Settings) bool {
	return !cfg.Backend.RequiresCredential() || strings.TrimSpace(c.credential) != ""
}

func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
