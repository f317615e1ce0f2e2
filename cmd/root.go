// Package cmd wires configuration, backends, and commands together.
// All application logic lives here; main.go is a minimal entry point.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/robobook/chatbot-backend/internal/config"
	"github.com/robobook/chatbot-backend/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "chatbot",
	Short: "RAG chat backend for the Physical AI & Humanoid Robotics book",
	Long: `chatbot answers reader questions from the book's documentation.

"chatbot ingest" loads the docs tree into the vector collection;
"chatbot serve" runs the HTTP API that retrieves relevant chunks and
asks the model to answer from them.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds the process logger. DEBUG in the environment lowers the
// level to debug.
func newLogger() *slog.Logger {
	cfg := log.Config{Level: slog.LevelInfo}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
	}
	return log.New(cfg)
}

// openPool creates the shared PostgreSQL pool and verifies connectivity.
// The caller owns the pool and must Close it.
func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}
