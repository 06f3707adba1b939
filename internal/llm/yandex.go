package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Morwran/yagpt"
)

// YandexConfig holds the credentials of the yandex_gpt backend.
type YandexConfig struct {
	OAuthToken string
	FolderID   string
}

type yandexClient struct {
	ya       yagpt.YaGPTFace
	iamToken string
}

// yandexBackend builds the client on first use: creating the IAM token is
// a network call and must not block startup.
type yandexBackend struct {
	cfg YandexConfig

	mu     sync.Mutex
	client *yandexClient
}

func newYandex(oauthToken, folderID string) (*yandexClient, error) {
	// Create IAM token from OAuth token
	iam, err := yagpt.NewYaIam(oauthToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init yandex iam: %w", err)
	}
	resp, err := iam.Create()
	if err != nil {
		return nil, fmt.Errorf("failed to create iam token: %w", err)
	}

	// Create YaGPT client for a folder
	ya, err := yagpt.NewYagpt(folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to init yagpt: %w", err)
	}

	return &yandexClient{
		ya:       ya,
		iamToken: resp.IamToken,
	}, nil
}

func (b *yandexBackend) get() (*yandexClient, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client != nil {
		return b.client, nil
	}
	if b.cfg.OAuthToken == "" || b.cfg.FolderID == "" {
		return nil, fmt.Errorf("%w: yandex oauth token or folder id not configured", ErrBackendUnavailable)
	}
	c, err := newYandex(b.cfg.OAuthToken, b.cfg.FolderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	b.client = c
	return c, nil
}

func (b *yandexBackend) generate(ctx context.Context, prompt string) (string, error) {
	c, err := b.get()
	if err != nil {
		return "", err
	}
	messages := []yagpt.Message{{Role: "user", Content: prompt}}
	resp, err := c.ya.CompletionWithCtx(ctx, c.iamToken, messages)
	if err != nil {
		return "", fmt.Errorf("yagpt completion failed: %w", err)
	}
	if resp == nil || len(resp.Alternatives) == 0 {
		return "", fmt.Errorf("yagpt returned empty response")
	}
	return strings.TrimSpace(resp.Alternatives[0].Message.Content), nil
}
