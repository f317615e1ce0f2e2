package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/robobook/chatbot-backend/api"
	"github.com/robobook/chatbot-backend/db"
	"github.com/robobook/chatbot-backend/internal/auth"
	"github.com/robobook/chatbot-backend/internal/config"
	"github.com/robobook/chatbot-backend/internal/gemini"
	"github.com/robobook/chatbot-backend/internal/index"
	"github.com/robobook/chatbot-backend/internal/rag"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(parent context.Context) error {
	// Startup is fail-fast: a missing API key or secret refuses to start
	// rather than serving a backend that cannot answer.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	logger := newLogger()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	store, err := index.New(pool, cfg.CollectionName, cfg.VectorDim, logger.With("component", "index"))
	if err != nil {
		return err
	}
	// Idempotent: creates the collection only if absent. Only ingest
	// recreates destructively.
	if err := store.Ensure(ctx); err != nil {
		return err
	}

	client, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:          cfg.GeminiAPIKey,
		EmbeddingModel:  cfg.EmbeddingModel,
		GenerationModel: cfg.GenerationModel,
		VectorDim:       cfg.VectorDim,
	}, logger.With("component", "gemini"))
	if err != nil {
		return err
	}

	users, err := auth.NewPostgresStore(pool)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL())
	if err != nil {
		return err
	}

	answerer := rag.NewAnswerer(client, store, client, cfg.SearchTopK, logger.With("component", "rag"))

	server := api.NewServer(api.Deps{
		Users:     users,
		Tokens:    tokens,
		Answerer:  answerer,
		Pool:      pool,
		RateRPS:   cfg.RateRPS,
		RateBurst: cfg.RateBurst,
		Logger:    logger.With("component", "api"),
	})

	return server.Run(ctx, cfg.ListenAddr)
}
