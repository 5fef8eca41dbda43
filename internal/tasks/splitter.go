package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MikeSquared-Agency/petpal/internal/conversation"
)

var ErrEmptyTask = errors.New("task description is empty")

// Completer is the part of the completion client the splitter needs.
type Completer interface {
	Complete(ctx context.Context, model string, messages []conversation.Message, system string) (string, error)
}

type Splitter struct {
	llm    Completer
	model  string
	logger *slog.Logger
}

func New(llm Completer, model string, logger *slog.Logger) *Splitter {
	return &Splitter{llm: llm, model: model, logger: logger}
}

// Split asks the model to decompose task and returns the normalized sub-tasks.
func (s *Splitter) Split(ctx context.Context, task string) ([]string, error) {
	if strings.TrimSpace(task) == "" {
		return nil, ErrEmptyTask
	}

	messages := []conversation.Message{
		conversation.UserMessage(fmt.Sprintf(splitUserPrompt, task)),
	}

	s.logger.Info("splitting task", "model", s.model, "task_len", len(task))

	raw, err := s.llm.Complete(ctx, s.model, messages, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("split task: %w", err)
	}

	items := Normalize(raw)

	s.logger.Info("split complete", "tasks", len(items))
	if len(items) == 0 {
		s.logger.Warn("split produced no tasks", "raw", raw)
	}

	return items, nil
}
