package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"seneclass/internal/config"
	"seneclass/internal/llm"
	"seneclass/internal/logging"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()
	logger := logging.New(cfg.LogLevel).With().Str("component", "mcp").Logger()

	backend, err := llm.ParseBackend(cfg.MCPBackend)
	if err != nil {
		logger.Fatal().Err(err).Msg("❌ invalid MCP_BACKEND")
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "seneclass-mcp",
		Version: "1.0.0",
	}, nil)

	register(server, &studentServer{
		gen:        llm.NewGateway(cfg.GatewayOptions()),
		backend:    backend,
		credential: cfg.OpenAIAPIKey,
		logger:     logger,
	})
	logger.Info().Str("backend", string(backend)).Msg("🔗 starting server on stdin/stdout")

	transport := mcp.NewStdioTransport()
	if err := server.Run(context.Background(), transport); err != nil {
		logger.Fatal().Err(err).Msg("❌ server failed")
	}
}
