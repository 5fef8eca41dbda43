package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/petpal/internal/hermes"
	"github.com/MikeSquared-Agency/petpal/internal/store"
)

type Splitter interface {
	Split(ctx context.Context, task string) ([]string, error)
}

type TodoStore interface {
	AddTodos(ctx context.Context, ownerID uuid.UUID, sourceTask string, titles []string) ([]store.Todo, error)
}

type Publisher interface {
	Publish(subject string, data any) error
}

// Processor handles task-split requests arriving over NATS.
type Processor struct {
	ctx       context.Context
	splitter  Splitter
	todos     TodoStore
	publisher Publisher
	logger    *slog.Logger
}

// New builds a Processor. Requests in flight are cancelled when ctx is done.
// todos may be nil, in which case Save requests are answered with an error.
func New(ctx context.Context, sp Splitter, todos TodoStore, pub Publisher, logger *slog.Logger) *Processor {
	return &Processor{
		ctx:       ctx,
		splitter:  sp,
		todos:     todos,
		publisher: pub,
		logger:    logger,
	}
}

// HandleSplitRequested is the NATS handler for petpal.tasks.split.requested.
// Every decodable request gets exactly one SplitResult published.
func (p *Processor) HandleSplitRequested(subject string, data []byte) {
	ctx := p.ctx

	var req hermes.SplitRequest
	if err := json.Unmarshal(data, &req); err != nil {
		p.logger.Error("failed to parse split request", "subject", subject, "error", err)
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	p.logger.Info("processing split request",
		"request_id", req.RequestID,
		"owner_id", req.OwnerID,
		"save", req.Save,
	)

	result := hermes.SplitResult{
		RequestID: req.RequestID,
		OwnerID:   req.OwnerID,
		Task:      req.Task,
	}

	items, todoIDs, err := p.process(ctx, req)
	if err != nil {
		p.logger.Error("split request failed", "request_id", req.RequestID, "error", err)
		result.Error = err.Error()
	} else {
		result.Tasks = items
		result.TodoIDs = todoIDs
	}

	if err := p.publisher.Publish(hermes.SubjectSplitCompleted, result); err != nil {
		p.logger.Error("failed to publish split result", "request_id", req.RequestID, "error", err)
		return
	}

	p.logger.Info("split request processed",
		"request_id", req.RequestID,
		"tasks", len(result.Tasks),
		"saved", len(result.TodoIDs),
	)
}

func (p *Processor) process(ctx context.Context, req hermes.SplitRequest) ([]string, []string, error) {
	var owner uuid.UUID
	if req.Save {
		if p.todos == nil {
			return nil, nil, fmt.Errorf("save requested but no store is configured")
		}
		var err error
		owner, err = uuid.Parse(req.OwnerID)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid owner id %q: %w", req.OwnerID, err)
		}
	}

	items, err := p.splitter.Split(ctx, req.Task)
	if err != nil {
		return nil, nil, err
	}
	if !req.Save || len(items) == 0 {
		return items, nil, nil
	}

	todos, err := p.todos.AddTodos(ctx, owner, req.Task, items)
	if err != nil {
		return nil, nil, fmt.Errorf("save todos: %w", err)
	}
	ids := make([]string, len(todos))
	for i, t := range todos {
		ids[i] = t.ID.String()
	}
	return items, ids, nil
}
