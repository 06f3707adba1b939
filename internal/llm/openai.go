package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// HostedChatConfig holds everything but the credential, which arrives per call.
type HostedChatConfig struct {
	BaseURL     string
	Model       string
	Temperature float32
	Referrer    string
	Title       string
	HTTPClient  *http.Client
}

type hostedChat struct {
	cfg HostedChatConfig
}

type headerTransport struct {
	rt      http.RoundTripper
	headers http.Header
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone request to avoid mutating the original
	cl := req.Clone(req.Context())
	for k, vs := range t.headers {
		for _, v := range vs {
			cl.Header.Add(k, v)
		}
	}
	return t.rt.RoundTrip(cl)
}

func newHostedChat(cfg HostedChatConfig) *hostedChat {
	if cfg.Model == "" {
		cfg.Model = openai.GPT3Dot5Turbo
	}
	return &hostedChat{cfg: cfg}
}

func (h *hostedChat) client(credential string) *openai.Client {
	config := openai.DefaultConfig(credential)
	if h.cfg.BaseURL != "" {
		config.BaseURL = h.cfg.BaseURL
	}
	base := http.DefaultTransport
	if h.cfg.HTTPClient != nil {
		config.HTTPClient = h.cfg.HTTPClient
		if h.cfg.HTTPClient.Transport != nil {
			base = h.cfg.HTTPClient.Transport
		}
	}
	// Inject optional headers (useful for OpenRouter)
	if h.cfg.Referrer != "" || h.cfg.Title != "" {
		hdr := http.Header{}
		if h.cfg.Referrer != "" {
			hdr.Set("HTTP-Referer", h.cfg.Referrer)
		}
		if h.cfg.Title != "" {
			hdr.Set("X-Title", h.cfg.Title)
		}
		hc := &http.Client{}
		if h.cfg.HTTPClient != nil {
			c := *h.cfg.HTTPClient
			hc = &c
		}
		hc.Transport = headerTransport{rt: base, headers: hdr}
		config.HTTPClient = hc
	}
	return openai.NewClientWithConfig(config)
}

func (h *hostedChat) generate(ctx context.Context, prompt, credential string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       h.cfg.Model,
		Messages:    []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: prompt}},
		Temperature: h.cfg.Temperature,
	}
	resp, err := h.client(credential).CreateChatCompletion(ctx, req)
	if err != nil {
		if rf := asRequestFailed(err); rf != nil {
			return "", rf
		}
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func asRequestFailed(err error) *RequestFailedError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return newRequestFailed(apiErr.HTTPStatusCode, apiErr.HTTPStatus)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return newRequestFailed(reqErr.HTTPStatusCode, reqErr.HTTPStatus)
	}
	return nil
}

func newRequestFailed(code int, status string) *RequestFailedError {
	text := http.StatusText(code)
	if text == "" {
		text = strings.TrimSpace(strings.TrimPrefix(status, fmt.Sprint(code)))
	}
	return &RequestFailedError{StatusCode: code, StatusText: text}
}
