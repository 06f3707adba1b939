package config

import (
	"fmt"

	"seneclass/internal/llm"
	"seneclass/internal/settings"
)

// GatewayOptions maps the backend keys onto the model gateway.
func (c *Config) GatewayOptions() llm.Options {
	ollama := llm.NewOllama(llm.OllamaConfig{BaseURL: c.OllamaURL, Timeout: c.LocalTimeout})
	return llm.Options{
		HostedChat: llm.HostedChatConfig{
			BaseURL:     c.OpenAIBaseURL,
			Model:       c.OpenAIModel,
			Temperature: c.OpenAITemperature,
			Referrer:    c.OpenRouterReferrer,
			Title:       c.OpenRouterTitle,
		},
		Sessions:   ollama.SessionProvider(c.LocalSessionModel),
		Ollama:     ollama,
		LocalModel: c.LocalModel,
		Yandex:     llm.YandexConfig{OAuthToken: c.YandexOAuthToken, FolderID: c.YandexFolderID},
	}
}

// SessionDefaults returns the validated settings every new session starts with.
func (c *Config) SessionDefaults() (settings.Settings, error) {
	backend, err := llm.ParseBackend(c.DefaultBackend)
	if err != nil {
		return settings.Settings{}, fmt.Errorf("DEFAULT_BACKEND: %w", err)
	}
	dir, err := settings.ParseDirection(c.DefaultDirection)
	if err != nil {
		return settings.Settings{}, fmt.Errorf("DEFAULT_DIRECTION: %w", err)
	}
	s := settings.Settings{
		Direction:  dir,
		Backend:    backend,
		SpeechRate: c.DefaultSpeechRate,
		Difficulty: c.DefaultDifficulty,
	}
	if err := s.Validate(); err != nil {
		return settings.Settings{}, err
	}
	return s, nil
}
