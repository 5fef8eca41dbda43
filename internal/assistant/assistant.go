package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MikeSquared-Agency/petpal/internal/conversation"
)

const persona = "你是一个专业的宠物健康助手，擅长回答关于宠物健康、饮食、行为等问题。请用简洁、专业但易懂的语言回答用户的问题。"

// Greeting opens every new chat session.
const Greeting = "你好！我是你的AI宠物健康助手。拍个照或者告诉我你的毛孩子怎么了？🐶🐱"

var ErrEmptyInput = errors.New("message is empty")

type Completer interface {
	Complete(ctx context.Context, model string, messages []conversation.Message, system string) (string, error)
}

// Assistant is the pet-health chat persona on top of a completion client.
type Assistant struct {
	llm    Completer
	model  string
	logger *slog.Logger
}

func New(llm Completer, model string, logger *slog.Logger) *Assistant {
	return &Assistant{llm: llm, model: model, logger: logger}
}

// NewSession returns a conversation seeded with the greeting.
func NewSession() *conversation.Log {
	return conversation.NewLog(conversation.AssistantMessage(Greeting))
}

// Reply answers the conversation as it stands. messages is not modified.
func (a *Assistant) Reply(ctx context.Context, messages []conversation.Message) (string, error) {
	reply, err := a.llm.Complete(ctx, a.model, messages, persona)
	if err != nil {
		return "", fmt.Errorf("assistant reply: %w", err)
	}
	return reply, nil
}

// Chat appends input to log, asks for a reply and appends it. On failure the
// user message stays in the log and the error is returned.
func (a *Assistant) Chat(ctx context.Context, log *conversation.Log, input string) (conversation.Message, error) {
	if strings.TrimSpace(input) == "" {
		return conversation.Message{}, ErrEmptyInput
	}

	log.Append(conversation.UserMessage(input))

	a.logger.Info("chat turn", "model", a.model, "history", log.Len())

	reply, err := a.Reply(ctx, log.Messages())
	if err != nil {
		a.logger.Error("chat turn failed", "error", err)
		return conversation.Message{}, err
	}

	msg := conversation.AssistantMessage(reply)
	log.Append(msg)
	return msg, nil
}
