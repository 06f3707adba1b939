package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"seneclass/internal/config"
	"seneclass/internal/debuglog"
	"seneclass/internal/llm"
	"seneclass/internal/logging"
	"seneclass/internal/scheduler"
	"seneclass/internal/telegram"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()
	logger := logging.New(cfg.LogLevel)

	if cfg.TelegramBotToken == "" {
		logger.Fatal().Msg("TELEGRAM_BOT_TOKEN is required")
	}
	defaults, err := cfg.SessionDefaults()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid session defaults")
	}

	var sink debuglog.Recorder
	if cfg.DebugLogPath != "" {
		fr, err := debuglog.NewFileRecorder(cfg.DebugLogPath)
		if err != nil {
			logger.Warn().Err(err).Str("path", cfg.DebugLogPath).Msg("failed to init debug log file")
		} else {
			sink = fr
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := cfg.GatewayOptions()
	if err := opts.Ollama.CheckRunning(ctx); err != nil {
		logger.Warn().Err(err).Msg("⚠️ local backends unavailable until Ollama is running")
	}
	gateway := llm.NewGateway(opts)

	bot, err := telegram.New(cfg.TelegramBotToken, gateway, telegram.Options{
		Defaults:   defaults,
		Credential: cfg.OpenAIAPIKey,
		SessionTTL: cfg.SessionIdleTTL,
		Speech: telegram.SpeechConfig{
			Enabled:  cfg.STTModel != "" || cfg.TTSModel != "",
			BaseURL:  cfg.OpenAIBaseURL,
			STTModel: cfg.STTModel,
			TTSModel: cfg.TTSModel,
			TTSVoice: cfg.TTSVoice,
		},
		DebugSink: sink,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create bot")
	}

	sched := scheduler.New(logger)
	sched.SetSweepFunction(bot.SweepIdle)
	if err := sched.Start(cfg.SessionSweepSpec); err != nil {
		logger.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	bot.Start(ctx)
	logger.Info().Msg("👋 shutting down")
}
