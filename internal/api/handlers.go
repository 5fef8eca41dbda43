package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/petpal/internal/conversation"
	"github.com/MikeSquared-Agency/petpal/internal/qwen"
	"github.com/MikeSquared-Agency/petpal/internal/store"
	"github.com/MikeSquared-Agency/petpal/internal/tasks"
)

const maxBodySize = 1 << 20

// ChatRequest carries the whole conversation; the server keeps none of it.
type ChatRequest struct {
	Messages []conversation.Message `json:"messages"`
}

type ChatResponse struct {
	Reply   string               `json:"reply"`
	Message conversation.Message `json:"message"`
}

type SplitRequest struct {
	Task    string `json:"task"`
	OwnerID string `json:"owner_id,omitempty"`
	Save    bool   `json:"save,omitempty"`
}

type SplitResponse struct {
	Tasks []string     `json:"tasks"`
	Count int          `json:"count"`
	Todos []store.Todo `json:"todos,omitempty"`
}

type TodoUpdate struct {
	Done *bool `json:"done"`
}

// chat handles POST /api/v1/chat
func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages must not be empty")
		return
	}

	reply, err := s.assistant.Reply(r.Context(), req.Messages)
	if err != nil {
		s.writeCompletionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Reply:   reply,
		Message: conversation.AssistantMessage(reply),
	})
}

// splitTask handles POST /api/v1/tasks/split
func (s *Server) splitTask(w http.ResponseWriter, r *http.Request) {
	var req SplitRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	var owner uuid.UUID
	if req.Save {
		if s.todos == nil {
			writeError(w, http.StatusServiceUnavailable, "to-do store not configured")
			return
		}
		var err error
		if owner, err = uuid.Parse(req.OwnerID); err != nil {
			writeError(w, http.StatusBadRequest, "invalid owner_id")
			return
		}
	}

	items, err := s.splitter.Split(r.Context(), req.Task)
	if err != nil {
		s.writeCompletionError(w, err)
		return
	}
	if items == nil {
		items = []string{}
	}

	resp := SplitResponse{Tasks: items, Count: len(items)}
	if req.Save && len(items) > 0 {
		todos, err := s.todos.AddTodos(r.Context(), owner, req.Task, items)
		if err != nil {
			s.logger.Error("failed to save todos", "owner_id", owner, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save todos")
			return
		}
		resp.Todos = todos
	}

	writeJSON(w, http.StatusOK, resp)
}

// listTodos handles GET /api/v1/todos?owner_id=
func (s *Server) listTodos(w http.ResponseWriter, r *http.Request) {
	if s.todos == nil {
		writeError(w, http.StatusServiceUnavailable, "to-do store not configured")
		return
	}
	owner, err := uuid.Parse(r.URL.Query().Get("owner_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid owner_id")
		return
	}

	todos, err := s.todos.ListTodos(r.Context(), owner)
	if err != nil {
		s.logger.Error("failed to list todos", "owner_id", owner, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list todos")
		return
	}
	if todos == nil {
		todos = []store.Todo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"todos": todos, "count": len(todos)})
}

// updateTodo handles PATCH /api/v1/todos/{id}
func (s *Server) updateTodo(w http.ResponseWriter, r *http.Request) {
	if s.todos == nil {
		writeError(w, http.StatusServiceUnavailable, "to-do store not configured")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid todo id")
		return
	}
	var req TodoUpdate
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if req.Done == nil {
		writeError(w, http.StatusBadRequest, "done is required")
		return
	}

	if err := s.todos.SetTodoDone(r.Context(), id, *req.Done); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "todo not found")
			return
		}
		s.logger.Error("failed to update todo", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update todo")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeCompletionError maps pipeline errors onto HTTP statuses.
func (s *Server) writeCompletionError(w http.ResponseWriter, err error) {
	var (
		cfgErr  *qwen.ConfigurationError
		tErr    *qwen.TransportError
		httpErr *qwen.HTTPError
		decErr  *qwen.DecodingError
	)
	switch {
	case errors.Is(err, tasks.ErrEmptyTask):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &cfgErr):
		s.logger.Error("completion misconfigured", "error", err)
		writeError(w, http.StatusInternalServerError, "assistant is not configured")
	case errors.As(err, &httpErr):
		s.logger.Warn("upstream rejected completion", "status", httpErr.StatusCode)
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":           "upstream error",
			"upstream_status": httpErr.StatusCode,
			"detail":          strings.TrimSpace(httpErr.Body),
		})
	case errors.As(err, &tErr), errors.As(err, &decErr), errors.Is(err, qwen.ErrEmptyResponse):
		s.logger.Warn("completion failed", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error("completion failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
