package message

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role represents the role of the message sender
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single chat turn exchanged with a completion backend.
type Message struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewMessage creates a new message with the given role and content
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
		Metadata:  make(map[string]any),
	}
}

// System is shorthand for a system message.
func System(content string) *Message { return NewMessage(RoleSystem, content) }

// User is shorthand for a user message.
func User(content string) *Message { return NewMessage(RoleUser, content) }

// Text returns the message content, tolerating a nil receiver.
func (m *Message) Text() string {
	if m == nil {
		return ""
	}
	return m.Content
}

// Clone creates a deep copy of the message.
func Clone(msg *Message) *Message {
	if msg == nil {
		return nil
	}
	cloned := *msg
	if msg.Metadata != nil {
		cloned.Metadata = make(map[string]any, len(msg.Metadata))
		for k, v := range msg.Metadata {
			cloned.Metadata[k] = v
		}
	}
	return &cloned
}

// Split separates system instructions from the conversation turns.
// Providers that take the system prompt out of band use this.
func Split(msgs []*Message) (system string, turns []*Message) {
	var prompts []string
	for _, m := range msgs {
		if m == nil {
			continue
		}
		if m.Role == RoleSystem {
			prompts = append(prompts, m.Content)
			continue
		}
		turns = append(turns, m)
	}
	return strings.Join(prompts, "\n"), turns
}
