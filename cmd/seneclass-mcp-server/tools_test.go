package main

import (
	"context"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"seneclass/internal/llm"
)

type fakeGenerator struct {
	prompt     string
	credential string
	out        string
	err        error
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string, _ llm.Backend, credential string) (string, error) {
	f.prompt, f.credential = prompt, credential
	return f.out, f.err
}

func resultText(t *testing.T, res *mcp.CallToolResultFor[any]) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("expected one content item, got %d", len(res.Content))
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", res.Content[0])
	}
	return tc.Text
}

func TestInitialQuestionPrompt(t *testing.T) {
	s := &studentServer{logger: zerolog.Nop()}
	res, err := s.InitialQuestionPrompt(context.Background(), nil, &mcp.CallToolParamsFor[InitialQuestionParams]{
		Arguments: InitialQuestionParams{Topic: "Photosynthesis", Difficulty: 3},
	})
	if err != nil || res.IsError {
		t.Fatalf("unexpected failure: %v", err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "Photosynthesis") || !strings.Contains(text, "3/10") {
		t.Fatalf("prompt missing topic or difficulty: %q", text)
	}
}

func TestPromptToolsRejectBadInput(t *testing.T) {
	s := &studentServer{logger: zerolog.Nop()}
	ctx := context.Background()

	res, _ := s.InitialQuestionPrompt(ctx, nil, &mcp.CallToolParamsFor[InitialQuestionParams]{
		Arguments: InitialQuestionParams{Topic: "Rain", Difficulty: 11},
	})
	if !res.IsError {
		t.Fatalf("difficulty 11 should be an error result")
	}
	res, _ = s.FollowUpPrompt(ctx, nil, &mcp.CallToolParamsFor[FollowUpParams]{
		Arguments: FollowUpParams{Answer: " ", Difficulty: 5, Topic: "Rain"},
	})
	if !res.IsError {
		t.Fatalf("blank answer should be an error result")
	}
	res, _ = s.SupplementalInfoPrompt(ctx, nil, &mcp.CallToolParamsFor[SupplementalInfoParams]{
		Arguments: SupplementalInfoParams{Topic: "Rain"},
	})
	if !res.IsError {
		t.Fatalf("missing question should be an error result")
	}
}

func TestFollowUpAndSupplementalPrompts(t *testing.T) {
	s := &studentServer{logger: zerolog.Nop()}
	ctx := context.Background()

	res, _ := s.FollowUpPrompt(ctx, nil, &mcp.CallToolParamsFor[FollowUpParams]{
		Arguments: FollowUpParams{Answer: "Plants convert light to energy", Difficulty: 5, Topic: "Photosynthesis"},
	})
	if text := resultText(t, res); !strings.Contains(text, "Plants convert light to energy") {
		t.Fatalf("follow-up prompt missing answer: %q", text)
	}

	res, _ = s.SupplementalInfoPrompt(ctx, nil, &mcp.CallToolParamsFor[SupplementalInfoParams]{
		Arguments: SupplementalInfoParams{Topic: "Photosynthesis", Question: "Why are leaves green?"},
	})
	if text := resultText(t, res); !strings.Contains(text, "Why are leaves green?") {
		t.Fatalf("supplemental prompt missing question: %q", text)
	}
}

func TestAskStudent(t *testing.T) {
	gen := &fakeGenerator{out: "What is photosynthesis?"}
	s := &studentServer{gen: gen, backend: llm.BackendHostedChat, credential: "sk-server", logger: zerolog.Nop()}

	res, err := s.AskStudent(context.Background(), nil, &mcp.CallToolParamsFor[AskStudentParams]{
		Arguments: AskStudentParams{Topic: "Photosynthesis", Difficulty: 5},
	})
	if err != nil || res.IsError {
		t.Fatalf("unexpected failure: %v", err)
	}
	if resultText(t, res) != "What is photosynthesis?" {
		t.Fatalf("unexpected text: %q", resultText(t, res))
	}
	if gen.credential != "sk-server" || !strings.Contains(gen.prompt, "Photosynthesis") {
		t.Fatalf("unexpected call: %+v", gen)
	}
}

func TestAskStudentErrors(t *testing.T) {
	gen := &fakeGenerator{err: &llm.RequestFailedError{StatusCode: 500, StatusText: "Internal Server Error"}}
	s := &studentServer{gen: gen, backend: llm.BackendHostedChat, logger: zerolog.Nop()}
	ctx := context.Background()

	res, _ := s.AskStudent(ctx, nil, &mcp.CallToolParamsFor[AskStudentParams]{
		Arguments: AskStudentParams{Topic: "Rain", Difficulty: 5},
	})
	if !res.IsError || gen.prompt != "" {
		t.Fatalf("missing key must fail before the gateway")
	}

	res, _ = s.AskStudent(ctx, nil, &mcp.CallToolParamsFor[AskStudentParams]{
		Arguments: AskStudentParams{Topic: "Rain", Difficulty: 5, Credential: "sk-user"},
	})
	if !res.IsError || !strings.Contains(resultText(t, res), "API request failed: Internal Server Error") {
		t.Fatalf("gateway error should surface: %q", resultText(t, res))
	}

	s.backend = llm.BackendLocalModel
	gen.err = nil
	gen.out = "Local question?"
	res, _ = s.AskStudent(ctx, nil, &mcp.CallToolParamsFor[AskStudentParams]{
		Arguments: AskStudentParams{Topic: "Rain", Difficulty: 5},
	})
	if res.IsError || resultText(t, res) != "Local question?" {
		t.Fatalf("local backend needs no key: %q", resultText(t, res))
	}
}
