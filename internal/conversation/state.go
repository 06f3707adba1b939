package conversation

import (
	"strings"

	"seneclass/internal/debuglog"
)

func (c *Controller) SetCredential(credential string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.credential = strings.TrimSpace(credential)
}

func (c *Controller) HasCredential() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.credential != ""
}

// CanSubmitTopic reports whether SubmitTopic would be accepted right now
// for a non-empty topic.
func (c *Controller) CanSubmitTopic() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase == PhaseIdle && !c.busy && c.credentialOK(c.settings.Snapshot())
}

// SetDraft overwrites the answer draft.
func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = text
}

func (c *Controller) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

func (c *Controller) Topic() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.topic
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// ID identifies the current conversation; it changes on Reset.
func (c *Controller) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// Messages returns the history in display order.
func (c *Controller) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	all := c.history.All()
	out := make([]Message, len(all))
	for i, m := range all {
		info, _ := c.history.Supplemental(i)
		out[i] = Message{Index: i, Role: m.Role, Content: m.Content, AdditionalInfo: info}
	}
	return out
}

func (c *Controller) Message(i int) (Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.history.Get(i)
	if !ok {
		return Message{}, false
	}
	info, _ := c.history.Supplemental(i)
	return Message{Index: i, Role: m.Role, Content: m.Content, AdditionalInfo: info}, true
}

func (c *Controller) DebugEntries() []debuglog.Entry {
	return c.debug.Entries()
}

// DebugTail returns at most the n most recent debug entries.
func (c *Controller) DebugTail(n int) []debuglog.Entry {
	return c.debug.Tail(n)
}
