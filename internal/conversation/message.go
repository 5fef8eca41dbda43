package conversation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Role identifies who spoke a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ParseRole maps a role name to a Role. "ai" is accepted as an alias of assistant.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleUser, nil
	case "assistant", "ai":
		return RoleAssistant, nil
	case "system":
		return RoleSystem, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Message is one turn of a conversation. The role is fixed at creation and
// has no setter; Content is plain data.
type Message struct {
	ID      uuid.UUID
	role    Role
	Content string
}

func NewMessage(role Role, content string) Message {
	return Message{ID: uuid.New(), role: role, Content: content}
}

func UserMessage(content string) Message      { return NewMessage(RoleUser, content) }
func AssistantMessage(content string) Message { return NewMessage(RoleAssistant, content) }
func SystemMessage(content string) Message    { return NewMessage(RoleSystem, content) }

func (m Message) Role() Role { return m.role }

type messageJSON struct {
	ID      uuid.UUID `json:"id"`
	Role    string    `json:"role"`
	Content string    `json:"content"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(messageJSON{ID: m.ID, Role: string(m.role), Content: m.Content})
}

// UnmarshalJSON accepts a missing id and assigns a fresh one.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw messageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	role, err := ParseRole(raw.Role)
	if err != nil {
		return err
	}
	if raw.ID == uuid.Nil {
		raw.ID = uuid.New()
	}
	*m = Message{ID: raw.ID, role: role, Content: raw.Content}
	return nil
}
