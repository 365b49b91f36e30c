package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"campus-agent/assistant"
	"campus-agent/chat"
	"campus-agent/config"
	"campus-agent/knowledge"
	"campus-agent/llmclient"
	"campus-agent/retrieval"
	"campus-agent/router"
	"campus-agent/web"
)

func main() {
	ctx := context.Background()

	// .env is optional; real deployments use environment variables
	godotenv.Load()

	// Initialize logger with default level to load config
	tempLogger, err := config.InitLogger("info")
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Load config (which includes log level setting)
	cfg := config.Load(tempLogger)

	// Re-initialize logger with configured level
	logger, err := config.InitLogger(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to re-initialize logger with configured level: %v\n", err)
		os.Exit(1)
	}
	defer config.Cleanup()

	corpus, err := knowledge.Load(cfg.CorpusDir)
	if err != nil {
		logger.Fatal("Failed to load knowledge corpus", zap.Error(err))
	}
	logger.Info("Knowledge corpus loaded",
		zap.Int("faqs", len(corpus.FAQs)),
		zap.Int("topics", len(corpus.Topics)))

	index, err := retrieval.NewIndex(corpus, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to build retrieval index", zap.Error(err))
	}

	policy, err := router.NewPolicy(cfg, corpus, logger)
	if err != nil {
		logger.Fatal("Invalid routing configuration", zap.Error(err))
	}

	sessions := chat.NewManager(logger)
	llm := llmclient.New(cfg, logger)
	asst := assistant.New(cfg, llm, index, policy, sessions, logger)

	// Initialize web server
	webServer := web.NewServer(asst, logger, cfg)

	// Create context that listens for interrupt signals
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Start web server
	port := fmt.Sprintf(":%d", cfg.WebPort)
	logger.Info("Starting campus assistant web server", zap.String("port", port))
	if err := webServer.Start(ctx, port); err != nil {
		logger.Error("Web server error", zap.Error(err))
		os.Exit(1)
	}
}
