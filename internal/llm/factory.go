package llm

import (
	"context"
	"errors"
	"fmt"
)

// Options configures every backend the gateway can dispatch to.
type Options struct {
	HostedChat HostedChatConfig
	// Sessions backs local_session; nil leaves the backend unavailable.
	Sessions SessionProvider
	// Ollama and LocalModel back local_model; a nil Ollama leaves it unavailable.
	Ollama     *Ollama
	LocalModel string
	Yandex     YandexConfig
}

type handler func(ctx context.Context, prompt, credential string) (string, error)

// Gateway dispatches generation calls to the selected backend. It keeps no
// state between calls apart from the lazily built Yandex client.
type Gateway struct {
	handlers map[Backend]handler
}

func NewGateway(opts Options) *Gateway {
	hosted := newHostedChat(opts.HostedChat)
	yandex := &yandexBackend{cfg: opts.Yandex}
	g := &Gateway{handlers: make(map[Backend]handler)}

	g.handlers[BackendHostedChat] = func(ctx context.Context, prompt, credential string) (string, error) {
		return hosted.generate(ctx, prompt, credential)
	}
	g.handlers[BackendLocalSession] = func(ctx context.Context, prompt, _ string) (string, error) {
		return generateWithSession(ctx, opts.Sessions, prompt)
	}
	g.handlers[BackendLocalModel] = func(ctx context.Context, prompt, _ string) (string, error) {
		if opts.Ollama == nil {
			return "", fmt.Errorf("%w: no local model configured", ErrBackendUnavailable)
		}
		out, _, err := opts.Ollama.Generate(ctx, opts.LocalModel, prompt, nil)
		return out, err
	}
	g.handlers[BackendYandexGPT] = func(ctx context.Context, prompt, _ string) (string, error) {
		return yandex.generate(ctx, prompt)
	}
	return g
}

// Generate implements Generator. Failures are returned as-is; the gateway
// never retries.
func (g *Gateway) Generate(ctx context.Context, prompt string, backend Backend, credential string) (string, error) {
	h, ok := g.handlers[backend]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
	return h(ctx, prompt, credential)
}

// generateWithSession opens a fresh session per prompt, so every call is a
// single independent turn. Any state a Session keeps between prompts only
// matters to callers that hold on to the session themselves.
func generateWithSession(ctx context.Context, provider SessionProvider, prompt string) (string, error) {
	if provider == nil {
		return "", fmt.Errorf("%w: local session capability is absent", ErrBackendUnavailable)
	}
	session, err := provider.CreateSession(ctx)
	if err != nil {
		if errors.Is(err, ErrBackendUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("%w: create session: %v", ErrBackendUnavailable, err)
	}
	return session.Prompt(ctx, prompt)
}
