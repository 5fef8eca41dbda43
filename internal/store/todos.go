package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Todo is one persisted to-do item.
type Todo struct {
	ID         uuid.UUID `json:"id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	SourceTask string    `json:"source_task,omitempty"`
	Title      string    `json:"title"`
	Position   int       `json:"position"`
	Done       bool      `json:"done"`
	CreatedAt  time.Time `json:"created_at"`
}

// AddTodos appends titles to the owner's list in one transaction, after any
// existing items and in the given order.
func (s *Store) AddTodos(ctx context.Context, ownerID uuid.UUID, sourceTask string, titles []string) ([]Todo, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serialise concurrent appends for the same owner.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, ownerID.String()); err != nil {
		return nil, fmt.Errorf("lock owner: %w", err)
	}

	var next int
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(position), -1) + 1 FROM todos WHERE owner_id = $1`,
		ownerID,
	).Scan(&next)
	if err != nil {
		return nil, fmt.Errorf("next position: %w", err)
	}

	todos := make([]Todo, 0, len(titles))
	for i, title := range titles {
		t := Todo{
			ID:         uuid.New(),
			OwnerID:    ownerID,
			SourceTask: sourceTask,
			Title:      title,
			Position:   next + i,
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO todos (id, owner_id, source_task, title, position)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at`,
			t.ID, t.OwnerID, t.SourceTask, t.Title, t.Position,
		).Scan(&t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("insert todo: %w", err)
		}
		todos = append(todos, t)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return todos, nil
}

// ListTodos returns the owner's items ordered by position.
func (s *Store) ListTodos(ctx context.Context, ownerID uuid.UUID) ([]Todo, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, owner_id, source_task, title, position, done, created_at
		FROM todos WHERE owner_id = $1
		ORDER BY position`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query todos: %w", err)
	}
	defer rows.Close()

	var out []Todo
	for rows.Next() {
		var t Todo
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.SourceTask, &t.Title, &t.Position, &t.Done, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SetTodoDone marks an item done or not done.
func (s *Store) SetTodoDone(ctx context.Context, id uuid.UUID, done bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE todos SET done = $1 WHERE id = $2`, done, id)
	if err != nil {
		return fmt.Errorf("update todo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
