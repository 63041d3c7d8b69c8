package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rwa-tokenizer/pkg/agents"
	"github.com/rwa-tokenizer/pkg/config"
	"github.com/rwa-tokenizer/pkg/db"
	"github.com/rwa-tokenizer/pkg/server"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Timestamp().Logger()
	log.Info().Msg("🏦 RWA tokenizer service starting...")

	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	zerolog.SetGlobalLevel(config.Level(cfg.LogLevel))

	store, err := db.NewStore(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("database init failed")
	}
	defer store.Close()

	llm := agents.NewLLM(cfg)
	srv := server.New(store, llm, cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() { <-sigCh; log.Info().Msg("shutting down..."); cancel() }()

	printSummary(cfg, store, llm)
	if err := srv.Run(ctx); err != nil {
		log.Error().Err(err).Msg("server error")
	}
	log.Info().Msg("goodbye 👋")
}

func printSummary(cfg *config.Server, store *db.Store, llm *agents.LLM) {
	fmt.Println("\n" + strings.Repeat("═", 60))
	fmt.Println("  🏦 RWA TOKENIZER SERVICE - RUNNING")
	fmt.Println(strings.Repeat("═", 60))
	fmt.Printf("  API:       http://localhost:%d/api\n", cfg.Port)
	fmt.Printf("  Database:  %s\n", cfg.DBPath)
	fmt.Printf("  Network:   %s (%s)\n", agents.Network, agents.TokenStandard)
	aiStatus := "❌ Disabled (set ANTHROPIC_API_KEY, OPENAI_API_KEY or OLLAMA_URL)"
	if llm.Enabled() {
		aiStatus = "✅ " + llm.Provider()
	}
	fmt.Printf("  Extractor: %s\n", aiStatus)
	if stats, err := store.GetStats(); err == nil {
		fmt.Printf("  DB: %d assets, %d verified, %d tokenized, %d users\n",
			stats.TotalAssets, stats.VerifiedAssets, stats.TokenizedAssets, stats.TotalUsers)
	}
	fmt.Println(strings.Repeat("═", 60) + "\n")
}
