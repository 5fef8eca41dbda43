package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/petpal/internal/api"
	"github.com/MikeSquared-Agency/petpal/internal/assistant"
	"github.com/MikeSquared-Agency/petpal/internal/hermes"
	"github.com/MikeSquared-Agency/petpal/internal/processor"
	"github.com/MikeSquared-Agency/petpal/internal/store"
	"github.com/MikeSquared-Agency/petpal/internal/tasks"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and, when configured, the NATS split worker",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides PETPAL_PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if p, _ := cmd.Flags().GetInt("port"); p != 0 {
		cfg.Port = p
	}
	logger := setupLogging(os.Stdout, cfg.LogLevel)

	logger.Info("petpal starting", "port", cfg.Port, "model", cfg.Model)

	ctx := cmd.Context()

	if cfg.APIKey == "" {
		logger.Warn("DASHSCOPE_API_KEY is not set; completion calls will fail")
	}
	llm := newLLM(logger)
	asst := assistant.New(llm, cfg.Model, logger)
	splitter := tasks.New(llm, cfg.Model, logger)

	// To-do store (optional; split still works without it, just no saving)
	var todos api.TodoStore
	var procTodos processor.TodoStore
	if cfg.DatabaseURL != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		db, err := store.New(connectCtx, cfg.DatabaseURL)
		if err == nil {
			err = db.EnsureSchema(connectCtx)
		}
		cancel()
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		todos, procTodos = db, db
		logger.Info("database connected")
	} else {
		logger.Warn("DATABASE_URL not set; running without to-do storage")
	}

	// NATS worker (optional)
	if cfg.NatsURL != "" {
		hermesClient, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, logger)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer hermesClient.Close()
		logger.Info("NATS connected", "url", cfg.NatsURL)

		proc := processor.New(ctx, splitter, procTodos, hermesClient, logger)
		if err := hermesClient.Subscribe(hermes.SubjectSplitRequested, proc.HandleSplitRequested); err != nil {
			return fmt.Errorf("subscribe split requests: %w", err)
		}

		if err := hermesClient.Publish(hermes.SubjectRegistered, map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"port":      cfg.Port,
			"model":     cfg.Model,
		}); err != nil {
			logger.Warn("failed to publish registration", "error", err)
		}
	}

	srv := api.NewServer(api.Options{
		Port:      cfg.Port,
		APIToken:  cfg.APIToken,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
		Model:     cfg.Model,
	}, asst, splitter, todos, logger)

	logger.Info("petpal ready", "port", cfg.Port)

	if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info("petpal stopped")
	return nil
}
