package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/petpal/internal/config"
	"github.com/MikeSquared-Agency/petpal/internal/qwen"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "petpal",
	Short: "Petpal pet-care assistant backend",
	Long: `Petpal serves the pet-health chat assistant and the AI task splitter.

Run "petpal serve" for the HTTP API (and the NATS worker when NATS_URL is set),
or use "ask" and "split" for one-off calls from the terminal.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		if m, _ := cmd.Flags().GetString("model"); m != "" {
			cfg.Model = m
		}
	},
}

func init() {
	rootCmd.PersistentFlags().String("model", "", "model identifier (overrides PETPAL_MODEL)")
	rootCmd.AddCommand(serveCmd, askCmd, splitCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func setupLogging(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func newLLM(logger *slog.Logger) *qwen.Client {
	return qwen.NewClient(cfg.Endpoint, cfg.APIKey, cfg.LLMTimeout, logger)
}
