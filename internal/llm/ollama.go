package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultOllamaURL = "http://127.0.0.1:11434"

// OllamaConfig configures the local inference server client.
type OllamaConfig struct {
	// BaseURL is the Ollama API base URL (default: http://127.0.0.1:11434)
	BaseURL string
	// Timeout bounds each HTTP call; zero means no client-side timeout.
	Timeout time.Duration
}

// Ollama talks to a local Ollama server over /api/generate.
type Ollama struct {
	baseURL    string
	httpClient *http.Client
}

type ollamaGenerateRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	Stream  bool   `json:"stream"`
	Context []int  `json:"context,omitempty"`
}

type ollamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Context  []int  `json:"context,omitempty"`
	Error    string `json:"error,omitempty"`
}

func NewOllama(cfg OllamaConfig) *Ollama {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOllamaURL
	}
	return &Ollama{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// CheckRunning verifies that the server answers on its root endpoint.
func (o *Ollama) CheckRunning(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ollama is not running: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status from ollama: %s", ErrBackendUnavailable, resp.Status)
	}
	return nil
}

// Generate runs a single non-streaming completion. history carries the
// context tokens of a previous call and may be nil.
func (o *Ollama) Generate(ctx context.Context, model, prompt string, history []int) (string, []int, error) {
	body, err := json.Marshal(ollamaGenerateRequest{Model: model, Prompt: prompt, Context: history})
	if err != nil {
		return "", nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", nil, err
		}
		return "", nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("read response: %w", err)
	}
	var out ollamaGenerateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", nil, fmt.Errorf("ollama generate: %s", resp.Status)
		}
		return "", nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || out.Error != "" {
		return "", nil, fmt.Errorf("ollama generate: %s: %s", resp.Status, out.Error)
	}
	return out.Response, out.Context, nil
}

// SessionProvider exposes model as a local_session capability.
func (o *Ollama) SessionProvider(model string) SessionProvider {
	return &ollamaSessions{ollama: o, model: model}
}

type ollamaSessions struct {
	ollama *Ollama
	model  string
}

func (p *ollamaSessions) CreateSession(ctx context.Context) (Session, error) {
	if err := p.ollama.CheckRunning(ctx); err != nil {
		return nil, err
	}
	return &ollamaSession{ollama: p.ollama, model: p.model}, nil
}

// ollamaSession keeps the server-issued context so consecutive prompts on
// the same session continue one exchange. The gateway prompts each session
// once; the carry serves callers that reuse a session.
type ollamaSession struct {
	ollama  *Ollama
	model   string
	history []int
}

func (s *ollamaSession) Prompt(ctx context.Context, text string) (string, error) {
	out, history, err := s.ollama.Generate(ctx, s.model, text, s.history)
	if err != nil {
		return "", err
	}
	s.history = history
	return out, nil
}
