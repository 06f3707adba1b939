package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`

	// Hosted chat backend
	OpenAIAPIKey      string  `env:"OPENAI_API_KEY"`
	OpenAIBaseURL     string  `env:"OPENAI_BASE_URL"`
	OpenAIModel       string  `env:"OPENAI_MODEL" envDefault:"gpt-3.5-turbo"`
	OpenAITemperature float32 `env:"OPENAI_TEMPERATURE" envDefault:"0.7"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Local backends (Ollama)
	OllamaURL         string        `env:"OLLAMA_URL" envDefault:"http://127.0.0.1:11434"`
	LocalSessionModel string        `env:"LOCAL_SESSION_MODEL" envDefault:"gemma2:2b"`
	LocalModel        string        `env:"LOCAL_MODEL" envDefault:"phi3:mini"`
	LocalTimeout      time.Duration `env:"LOCAL_TIMEOUT" envDefault:"0s"`

	YandexOAuthToken string `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string `env:"YANDEX_FOLDER_ID"`

	// Per-session defaults
	DefaultBackend    string  `env:"DEFAULT_BACKEND" envDefault:"hosted_chat"`
	DefaultDifficulty int     `env:"DEFAULT_DIFFICULTY" envDefault:"5"`
	DefaultSpeechRate float64 `env:"DEFAULT_SPEECH_RATE" envDefault:"1"`
	DefaultDirection  string  `env:"DEFAULT_DIRECTION" envDefault:"horizontal"`

	// Speech
	STTModel string `env:"STT_MODEL" envDefault:"whisper-1"`
	TTSModel string `env:"TTS_MODEL" envDefault:"tts-1"`
	TTSVoice string `env:"TTS_VOICE" envDefault:"alloy"`

	// Storage
	DebugLogPath string `env:"DEBUG_LOG_PATH"`

	// Sessions
	SessionIdleTTL   time.Duration `env:"SESSION_IDLE_TTL" envDefault:"2h"`
	SessionSweepSpec string        `env:"SESSION_SWEEP_SPEC" envDefault:"@every 10m"`

	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	MCPBackend string `env:"MCP_BACKEND" envDefault:"hosted_chat"`
}

func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func New() *Config {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("%v", err)
	}
	return cfg
}
