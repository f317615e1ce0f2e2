package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/robobook/chatbot-backend/db"
	"github.com/robobook/chatbot-backend/internal/config"
	"github.com/robobook/chatbot-backend/internal/gemini"
	"github.com/robobook/chatbot-backend/internal/index"
	"github.com/robobook/chatbot-backend/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load the docs tree into the vector collection",
	Long: `ingest recreates the vector collection and loads every .md/.mdx
file under DOCS_PATH into it. This is destructive: all previously
indexed points are discarded before the new corpus is written.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runIngest(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
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

	client, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:          cfg.GeminiAPIKey,
		EmbeddingModel:  cfg.EmbeddingModel,
		GenerationModel: cfg.GenerationModel,
		VectorDim:       cfg.VectorDim,
	}, logger.With("component", "gemini"))
	if err != nil {
		return err
	}

	pipeline, err := ingest.New(client, store, ingest.Config{
		DocsPath:     cfg.DocsPath,
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
	}, logger.With("component", "ingest"))
	if err != nil {
		return err
	}

	report, err := pipeline.Run(ctx)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	logger.Info("ingestion complete",
		"files_processed", report.FilesProcessed,
		"files_failed", report.FilesFailed,
		"chunks_embedded", report.ChunksEmbedded,
		"chunks_skipped", report.ChunksSkipped,
		"duration", report.Duration)

	for _, skip := range report.Skipped {
		logger.Warn("skipped during ingestion",
			"source", skip.SourcePath,
			"chunk", skip.ChunkIndex,
			"reason", skip.Reason)
	}
	return nil
}
