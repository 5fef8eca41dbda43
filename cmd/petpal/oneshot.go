package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/petpal/internal/assistant"
	"github.com/MikeSquared-Agency/petpal/internal/tasks"
)

var askCmd = &cobra.Command{
	Use:   "ask <question...>",
	Short: "Ask the pet-health assistant one question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := setupLogging(os.Stderr, cfg.LogLevel)
		a := assistant.New(newLLM(logger), cfg.Model, logger)

		reply, err := a.Chat(cmd.Context(), assistant.NewSession(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply.Content)
		return nil
	},
}

var splitCmd = &cobra.Command{
	Use:   "split <task...>",
	Short: "Split a task into numbered sub-tasks",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := setupLogging(os.Stderr, cfg.LogLevel)
		s := tasks.New(newLLM(logger), cfg.Model, logger)

		items, err := s.Split(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		for i, item := range items {
			fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, item)
		}
		return nil
	},
}
