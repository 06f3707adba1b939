package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Backend selects the text-generation provider for a call.
type Backend string

const (
	BackendHostedChat   Backend = "hosted_chat"
	BackendLocalSession Backend = "local_session"
	BackendLocalModel   Backend = "local_model"
	BackendYandexGPT    Backend = "yandex_gpt"
)

var backendAliases = map[string]Backend{
	"hosted_chat":   BackendHostedChat,
	"hosted":        BackendHostedChat,
	"chatgpt":       BackendHostedChat,
	"openai":        BackendHostedChat,
	"local_session": BackendLocalSession,
	"session":       BackendLocalSession,
	"canary":        BackendLocalSession,
	"local_model":   BackendLocalModel,
	"model":         BackendLocalModel,
	"phi":           BackendLocalModel,
	"ollama":        BackendLocalModel,
	"yandex_gpt":    BackendYandexGPT,
	"yandex":        BackendYandexGPT,
}

// ParseBackend resolves a backend name or one of its aliases.
func ParseBackend(s string) (Backend, error) {
	b, ok := backendAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, s)
	}
	return b, nil
}

// RequiresCredential reports whether calls on b need a caller-supplied credential.
func (b Backend) RequiresCredential() bool { return b == BackendHostedChat }

// Title is the human-readable provider name.
func (b Backend) Title() string {
	switch b {
	case BackendHostedChat:
		return "ChatGPT"
	case BackendLocalSession:
		return "Local session"
	case BackendLocalModel:
		return "Local model"
	case BackendYandexGPT:
		return "YandexGPT"
	default:
		return string(b)
	}
}

// Backends lists every known backend in display order.
func Backends() []Backend {
	return []Backend{BackendHostedChat, BackendLocalSession, BackendLocalModel, BackendYandexGPT}
}

var (
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrUnknownBackend     = errors.New("unknown backend")
)

// RequestFailedError is returned when the hosted backend answers with a
// non-success HTTP status.
type RequestFailedError struct {
	StatusCode int
	StatusText string
}

func (e *RequestFailedError) Error() string {
	return "API request failed: " + e.StatusText
}

// Generator turns a prompt into text on the chosen backend.
type Generator interface {
	Generate(ctx context.Context, prompt string, backend Backend, credential string) (string, error)
}
