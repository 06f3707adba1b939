package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"seneclass/internal/debuglog"
	"seneclass/internal/history"
	"seneclass/internal/llm"
	"seneclass/internal/settings"
)

type generateCall struct {
	prompt     string
	backend    llm.Backend
	credential string
}

type fakeGenerator struct {
	mu    sync.Mutex
	calls []generateCall
	reply func(prompt string) (string, error)
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string, backend llm.Backend, credential string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, generateCall{prompt: prompt, backend: backend, credential: credential})
	reply := f.reply
	f.mu.Unlock()
	if reply == nil {
		return "ok", nil
	}
	return reply(prompt)
}

func (f *fakeGenerator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeGenerator) last() generateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func newController(t *testing.T, gen llm.Generator) (*Controller, *settings.Store) {
	t.Helper()
	store, err := settings.NewStore(settings.Defaults())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	c := New(gen, store, debuglog.New(zerolog.Nop(), nil), zerolog.Nop())
	c.SetCredential("sk-test")
	return c, store
}

func hasEntry(entries []debuglog.Entry, prefix string) bool {
	for _, e := range entries {
		if strings.HasPrefix(e.Message, prefix) {
			return true
		}
	}
	return false
}

func countEntries(entries []debuglog.Entry, prefix string) int {
	n := 0
	for _, e := range entries {
		if strings.HasPrefix(e.Message, prefix) {
			n++
		}
	}
	return n
}

func TestPhotosynthesisScenario(t *testing.T) {
	gen := &fakeGenerator{reply: func(p string) (string, error) {
		if strings.Contains(p, "Plants convert light to energy") {
			return "Why do leaves look green?", nil
		}
		return "What is photosynthesis?", nil
	}}
	c, _ := newController(t, gen)

	first, err := c.SubmitTopic(context.Background(), "Photosynthesis")
	if err != nil {
		t.Fatalf("submit topic: %v", err)
	}
	if first.Role != history.RoleStudent || first.Content != "What is photosynthesis?" {
		t.Fatalf("unexpected first message: %+v", first)
	}
	if !strings.Contains(gen.last().prompt, "Photosynthesis") || !strings.Contains(gen.last().prompt, "5/10") {
		t.Fatalf("initial prompt missing topic or difficulty: %q", gen.last().prompt)
	}
	if c.Phase() != PhaseAwaitingAnswer || c.Busy() {
		t.Fatalf("expected awaiting answer, got %s busy=%v", c.Phase(), c.Busy())
	}

	c.SetDraft("Plants convert light to energy")
	pair, err := c.SubmitAnswer(context.Background(), c.Draft())
	if err != nil {
		t.Fatalf("submit answer: %v", err)
	}
	if len(pair) != 2 || pair[0].Role != history.RoleTeacher || pair[1].Content != "Why do leaves look green?" {
		t.Fatalf("unexpected reply pair: %+v", pair)
	}

	msgs := c.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	want := []history.Role{history.RoleStudent, history.RoleTeacher, history.RoleStudent}
	for i, r := range want {
		if msgs[i].Role != r {
			t.Fatalf("message %d role = %s, want %s", i, msgs[i].Role, r)
		}
	}
	if c.Draft() != "" {
		t.Fatalf("draft should be cleared after a successful answer, got %q", c.Draft())
	}
	if c.Topic() != "Photosynthesis" {
		t.Fatalf("topic = %q", c.Topic())
	}

	entries := c.DebugEntries()
	if !hasEntry(entries, "Topic submitted: Photosynthesis") || !hasEntry(entries, "Answer submitted") {
		t.Fatalf("missing debug entries: %+v", entries)
	}
	if countEntries(entries, "Generating response based on: ") != 2 {
		t.Fatalf("expected two generation entries: %+v", entries)
	}
}

func TestSubmitTopicValidation(t *testing.T) {
	gen := &fakeGenerator{}
	c, _ := newController(t, gen)

	if _, err := c.SubmitTopic(context.Background(), "   "); !errors.Is(err, ErrEmptyTopic) {
		t.Fatalf("expected ErrEmptyTopic, got %v", err)
	}
	if _, err := c.SubmitTopic(context.Background(), "Gravity"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := c.SubmitTopic(context.Background(), "Magnets"); !errors.Is(err, ErrNotIdle) {
		t.Fatalf("expected ErrNotIdle, got %v", err)
	}
	if gen.count() != 1 {
		t.Fatalf("expected 1 gateway call, got %d", gen.count())
	}
}

func TestEmptyCredentialRejectedBeforeGateway(t *testing.T) {
	gen := &fakeGenerator{}
	c, _ := newController(t, gen)
	c.SetCredential("  ")

	if c.CanSubmitTopic() {
		t.Fatalf("topic submission should be disabled without a key")
	}
	if _, err := c.SubmitTopic(context.Background(), "Photosynthesis"); !errors.Is(err, ErrCredentialRequired) {
		t.Fatalf("expected ErrCredentialRequired, got %v", err)
	}
	if gen.count() != 0 || len(c.Messages()) != 0 {
		t.Fatalf("expected no gateway call and no messages")
	}
	if c.Phase() != PhaseIdle {
		t.Fatalf("phase = %s", c.Phase())
	}
}

func TestLocalBackendNeedsNoCredential(t *testing.T) {
	gen := &fakeGenerator{}
	c, store := newController(t, gen)
	c.SetCredential("")
	if _, err := store.SetBackend(llm.BackendLocalModel); err != nil {
		t.Fatalf("set backend: %v", err)
	}
	if !c.CanSubmitTopic() {
		t.Fatalf("local backend should not need a key")
	}
	if _, err := c.SubmitTopic(context.Background(), "Tides"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := gen.last(); got.backend != llm.BackendLocalModel || got.credential != "" {
		t.Fatalf("unexpected call: %+v", got)
	}
}

func TestSettingsReadAtInvocation(t *testing.T) {
	gen := &fakeGenerator{}
	c, store := newController(t, gen)
	if _, err := store.SetDifficulty(9); err != nil {
		t.Fatalf("set difficulty: %v", err)
	}
	if _, err := c.SubmitTopic(context.Background(), "Volcanoes"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !strings.Contains(gen.last().prompt, "9/10") {
		t.Fatalf("prompt should carry difficulty 9: %q", gen.last().prompt)
	}
}

func TestInitialQuestionFailureBecomesMessage(t *testing.T) {
	gen := &fakeGenerator{reply: func(string) (string, error) {
		return "", &llm.RequestFailedError{StatusCode: 500, StatusText: "Internal Server Error"}
	}}
	c, _ := newController(t, gen)

	msg, err := c.SubmitTopic(context.Background(), "Photosynthesis")
	if err != nil {
		t.Fatalf("failures must not surface as errors: %v", err)
	}
	want := "I'm having trouble answering the question Error: API request failed: Internal Server Error"
	if msg.Content != want {
		t.Fatalf("content = %q, want %q", msg.Content, want)
	}
	if len(c.Messages()) != 1 {
		t.Fatalf("expected exactly one message, got %d", len(c.Messages()))
	}
	if n := countEntries(c.DebugEntries(), "Error generating question: "); n != 1 {
		t.Fatalf("expected one failure entry, got %d", n)
	}
	if c.Busy() {
		t.Fatalf("busy flag should be cleared")
	}
}

func TestFollowUpFailureAppendsFallback(t *testing.T) {
	fail := false
	gen := &fakeGenerator{reply: func(string) (string, error) {
		if fail {
			return "", llm.ErrBackendUnavailable
		}
		return "Question?", nil
	}}
	c, _ := newController(t, gen)
	if _, err := c.SubmitTopic(context.Background(), "Rain"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	fail = true
	c.SetDraft("Water falls")

	pair, err := c.SubmitAnswer(context.Background(), "Water falls")
	if err != nil {
		t.Fatalf("submit answer: %v", err)
	}
	if len(pair) != 2 || pair[1].Content != answerFallback {
		t.Fatalf("unexpected pair: %+v", pair)
	}
	if len(c.Messages()) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(c.Messages()))
	}
	if c.Draft() != "Water falls" {
		t.Fatalf("draft should survive a failed follow-up, got %q", c.Draft())
	}
	if c.Phase() != PhaseAwaitingAnswer || c.Busy() {
		t.Fatalf("phase = %s busy = %v", c.Phase(), c.Busy())
	}
}

func TestBlankAnswerIsNoop(t *testing.T) {
	gen := &fakeGenerator{}
	c, _ := newController(t, gen)
	if _, err := c.SubmitTopic(context.Background(), "Rain"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	before := len(c.DebugEntries())

	pair, err := c.SubmitAnswer(context.Background(), " \n\t")
	if err != nil || pair != nil {
		t.Fatalf("expected silent no-op, got %v %v", pair, err)
	}
	if gen.count() != 1 || len(c.Messages()) != 1 || len(c.DebugEntries()) != before {
		t.Fatalf("blank answer must not change state")
	}
}

func TestAnswerWithoutConversation(t *testing.T) {
	c, _ := newController(t, &fakeGenerator{})
	if _, err := c.SubmitAnswer(context.Background(), "hello"); !errors.Is(err, ErrNoConversation) {
		t.Fatalf("expected ErrNoConversation, got %v", err)
	}
}

func TestBusyRejectsSecondAnswer(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	gen := &fakeGenerator{reply: func(p string) (string, error) {
		if strings.Contains(p, "first answer") {
			close(started)
			<-release
		}
		return "next?", nil
	}}
	c, _ := newController(t, gen)
	if _, err := c.SubmitTopic(context.Background(), "Rain"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := c.SubmitAnswer(context.Background(), "first answer")
		done <- err
	}()
	<-started

	if !c.Busy() || c.Phase() != PhaseGeneratingFollowUp {
		t.Fatalf("expected busy follow-up phase, got %s busy=%v", c.Phase(), c.Busy())
	}
	if _, err := c.SubmitAnswer(context.Background(), "second answer"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first answer: %v", err)
	}
	if gen.count() != 2 {
		t.Fatalf("expected 2 gateway calls, got %d", gen.count())
	}
	if len(c.Messages()) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(c.Messages()))
	}
}

func TestResetClearsConversation(t *testing.T) {
	c, _ := newController(t, &fakeGenerator{})
	oldID := c.ID()
	if _, err := c.SubmitTopic(context.Background(), "Rain"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	c.SetDraft("partial")

	c.Reset()

	if c.Phase() != PhaseIdle || c.Busy() || c.Topic() != "" || c.Draft() != "" || len(c.Messages()) != 0 {
		t.Fatalf("reset left state behind")
	}
	if c.ID() == oldID {
		t.Fatalf("reset should start a new conversation id")
	}
	if !c.HasCredential() {
		t.Fatalf("reset must keep the credential")
	}
	if _, err := c.SubmitTopic(context.Background(), "Snow"); err != nil {
		t.Fatalf("submit after reset: %v", err)
	}
}

func TestStaleResponseAfterResetIsDiscarded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	gen := &fakeGenerator{reply: func(string) (string, error) {
		close(started)
		<-release
		return "late question", nil
	}}
	c, _ := newController(t, gen)

	done := make(chan error, 1)
	go func() {
		_, err := c.SubmitTopic(context.Background(), "Rain")
		done <- err
	}()
	<-started
	c.Reset()
	close(release)

	if err := <-done; !errors.Is(err, ErrDiscarded) {
		t.Fatalf("expected ErrDiscarded, got %v", err)
	}
	if len(c.Messages()) != 0 || c.Phase() != PhaseIdle || c.Busy() {
		t.Fatalf("stale reply leaked into the new conversation")
	}
	if !hasEntry(c.DebugEntries(), "Discarding question") {
		t.Fatalf("expected a discard entry")
	}
}

func TestAdditionalInfoIsMemoized(t *testing.T) {
	gen := &fakeGenerator{reply: func(p string) (string, error) {
		if strings.HasPrefix(p, "Provide detailed information") {
			return "Chlorophyll absorbs red and blue light.", nil
		}
		return "What is photosynthesis?", nil
	}}
	c, _ := newController(t, gen)
	if _, err := c.SubmitTopic(context.Background(), "Photosynthesis"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	calls := gen.count()

	first, err := c.RequestAdditionalInfo(context.Background(), 0)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	second, err := c.RequestAdditionalInfo(context.Background(), 0)
	if err != nil {
		t.Fatalf("info again: %v", err)
	}
	if first != second {
		t.Fatalf("cached info changed: %q vs %q", first, second)
	}
	if gen.count() != calls+1 {
		t.Fatalf("expected one extra gateway call, got %d", gen.count()-calls)
	}
	if msg, _ := c.Message(0); msg.AdditionalInfo != first {
		t.Fatalf("message should carry cached info")
	}
}

func TestAdditionalInfoConcurrentRequestsShareOneCall(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	gen := &fakeGenerator{}
	c, _ := newController(t, gen)
	if _, err := c.SubmitTopic(context.Background(), "Magnets"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	gen.mu.Lock()
	gen.reply = func(string) (string, error) {
		once.Do(func() { close(started) })
		<-release
		return "details", nil
	}
	gen.mu.Unlock()

	var wg sync.WaitGroup
	results := make([]string, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			info, err := c.RequestAdditionalInfo(context.Background(), 0)
			if err != nil {
				t.Errorf("info: %v", err)
			}
			results[i] = info
		}(i)
	}
	<-started
	close(release)
	wg.Wait()

	if gen.count() != 2 {
		t.Fatalf("expected a single info call, got %d total calls", gen.count())
	}
	if results[0] != "details" || results[1] != "details" {
		t.Fatalf("unexpected results: %v", results)
	}
}

func TestAdditionalInfoFailureIsNotCached(t *testing.T) {
	fail := true
	gen := &fakeGenerator{}
	c, _ := newController(t, gen)
	if _, err := c.SubmitTopic(context.Background(), "Magnets"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	gen.mu.Lock()
	gen.reply = func(string) (string, error) {
		if fail {
			return "", llm.ErrBackendUnavailable
		}
		return "details", nil
	}
	gen.mu.Unlock()

	if _, err := c.RequestAdditionalInfo(context.Background(), 0); !errors.Is(err, llm.ErrBackendUnavailable) {
		t.Fatalf("expected backend error, got %v", err)
	}
	fail = false
	info, err := c.RequestAdditionalInfo(context.Background(), 0)
	if err != nil || info != "details" {
		t.Fatalf("retry: %q %v", info, err)
	}
}

func TestAdditionalInfoPreconditions(t *testing.T) {
	c, _ := newController(t, &fakeGenerator{})
	if _, err := c.RequestAdditionalInfo(context.Background(), 0); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
	if _, err := c.SubmitTopic(context.Background(), "Rain"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := c.SubmitAnswer(context.Background(), "clouds"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if _, err := c.RequestAdditionalInfo(context.Background(), 1); !errors.Is(err, ErrNotStudentMessage) {
		t.Fatalf("expected ErrNotStudentMessage, got %v", err)
	}
}

func TestPreviewTruncatesRunes(t *testing.T) {
	s := strings.Repeat("é", 60)
	if got := preview(s, 50); len([]rune(got)) != 50 {
		t.Fatalf("preview length = %d", len([]rune(got)))
	}
	if got := preview("short", 50); got != "short" {
		t.Fatalf("preview = %q", got)
	}
}
