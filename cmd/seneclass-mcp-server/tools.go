package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"seneclass/internal/llm"
	"seneclass/internal/prompt"
	"seneclass/internal/settings"
)

type InitialQuestionParams struct {
	Topic      string `json:"topic" mcp:"the topic the user wants to teach"`
	Difficulty int    `json:"difficulty" mcp:"difficulty from 1 (easiest) to 10 (hardest)"`
}

type FollowUpParams struct {
	Answer     string `json:"answer" mcp:"the teacher's latest answer"`
	Difficulty int    `json:"difficulty" mcp:"difficulty from 1 to 10"`
	Topic      string `json:"topic" mcp:"the conversation topic"`
}

type SupplementalInfoParams struct {
	Topic    string `json:"topic" mcp:"the conversation topic"`
	Question string `json:"question" mcp:"the student question to explain"`
}

type AskStudentParams struct {
	Topic      string `json:"topic" mcp:"the topic the user wants to teach"`
	Difficulty int    `json:"difficulty" mcp:"difficulty from 1 to 10"`
	Credential string `json:"credential,omitempty" mcp:"API key for the hosted backend; defaults to the server key"`
}

// studentServer exposes the prompt templates and a one-shot student
// question over MCP.
type studentServer struct {
	gen        llm.Generator
	backend    llm.Backend
	credential string
	logger     zerolog.Logger
}

func textResult(text string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(format string, args ...any) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: "❌ " + fmt.Sprintf(format, args...)}},
	}
}

func checkDifficulty(d int) error {
	if d < settings.MinDifficulty || d > settings.MaxDifficulty {
		return fmt.Errorf("difficulty must be between %d and %d, got %d", settings.MinDifficulty, settings.MaxDifficulty, d)
	}
	return nil
}

func (s *studentServer) InitialQuestionPrompt(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[InitialQuestionParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	if strings.TrimSpace(args.Topic) == "" {
		return errorResult("topic is required"), nil
	}
	if err := checkDifficulty(args.Difficulty); err != nil {
		return errorResult("%v", err), nil
	}
	return textResult(prompt.InitialQuestion(args.Topic, args.Difficulty)), nil
}

func (s *studentServer) FollowUpPrompt(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[FollowUpParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	if strings.TrimSpace(args.Answer) == "" {
		return errorResult("answer is required"), nil
	}
	if err := checkDifficulty(args.Difficulty); err != nil {
		return errorResult("%v", err), nil
	}
	return textResult(prompt.FollowUp(args.Answer, args.Difficulty, args.Topic)), nil
}

func (s *studentServer) SupplementalInfoPrompt(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[SupplementalInfoParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	if strings.TrimSpace(args.Question) == "" {
		return errorResult("question is required"), nil
	}
	return textResult(prompt.SupplementalInfo(args.Topic, args.Question)), nil
}

func (s *studentServer) AskStudent(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[AskStudentParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	if strings.TrimSpace(args.Topic) == "" {
		return errorResult("topic is required"), nil
	}
	if err := checkDifficulty(args.Difficulty); err != nil {
		return errorResult("%v", err), nil
	}
	credential := strings.TrimSpace(args.Credential)
	if credential == "" {
		credential = s.credential
	}
	if s.backend.RequiresCredential() && credential == "" {
		return errorResult("an API key is required for %s", s.backend.Title()), nil
	}

	s.logger.Info().Str("backend", string(s.backend)).Str("topic", args.Topic).Msg("🎓 asking student")
	out, err := s.gen.Generate(ctx, prompt.InitialQuestion(args.Topic, args.Difficulty), s.backend, credential)
	if err != nil {
		s.logger.Warn().Err(err).Msg("student question failed")
		return errorResult("failed to generate question: %v", err), nil
	}
	return textResult(out), nil
}

func register(server *mcp.Server, s *studentServer) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "initial_question_prompt",
		Description: "Renders the prompt that asks the student's first question about a topic",
	}, s.InitialQuestionPrompt)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "follow_up_prompt",
		Description: "Renders the prompt that turns the teacher's answer into the student's next question",
	}, s.FollowUpPrompt)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "supplemental_info_prompt",
		Description: "Renders the prompt that asks for a detailed explanation of a student question",
	}, s.SupplementalInfoPrompt)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_student",
		Description: "Asks the simulated student for its first question about a topic",
	}, s.AskStudent)
}
