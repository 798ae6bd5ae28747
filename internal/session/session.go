// Package session provides durable keyed storage for conversation
// transcripts.
//
// A session is stored document-style: one row per session key with the
// full ordered message transcript in a JSONB array. Saving replaces the
// transcript as a whole (idempotent upsert keyed by session key, last
// write wins). No caching or consistency logic exists beyond what
// PostgreSQL provides; concurrent writers to the same key can lose
// updates, which is an accepted property of this design.
package session

import (
	"errors"
	"fmt"
	"time"
)

// Message roles. Only user and assistant turns are persisted.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrNotFound indicates the requested session does not exist.
// Check with errors.Is(); callers decide whether absence is fatal.
var ErrNotFound = errors.New("session not found")

// Message is a single conversation turn. ImageData and ImageMimeType
// are set together or not at all.
type Message struct {
	Role          string    `json:"role"`
	Content       string    `json:"content"`
	ImageData     string    `json:"imageData,omitempty"`     // base64-encoded payload
	ImageMimeType string    `json:"imageMimeType,omitempty"` // e.g. "image/png"
	Timestamp     time.Time `json:"timestamp"`
}

// validate checks the persisted-message invariants.
func (m Message) validate() error {
	if m.Role != RoleUser && m.Role != RoleAssistant {
		return fmt.Errorf("invalid message role %q", m.Role)
	}
	if m.Timestamp.IsZero() {
		return errors.New("message timestamp is not set")
	}
	if (m.ImageData == "") != (m.ImageMimeType == "") {
		return errors.New("image payload and MIME type must be set together")
	}
	return nil
}

// NewUserMessage builds a user turn with the current time.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, Timestamp: time.Now().UTC()}
}

// NewUserImageMessage builds a user turn carrying an image payload.
func NewUserImageMessage(content, imageData, imageMimeType string) Message {
	return Message{
		Role:          RoleUser,
		Content:       content,
		ImageData:     imageData,
		ImageMimeType: imageMimeType,
		Timestamp:     time.Now().UTC(),
	}
}

// NewAssistantMessage builds an assistant turn with the current time.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content, Timestamp: time.Now().UTC()}
}

// Session is a persisted conversation between one user and one agent.
// Identity (Key, Username, AgentName) is fixed at creation; only the
// message sequence grows, in conversation order.
type Session struct {
	Key       string
	Username  string
	AgentName string
	CreatedAt time.Time
	Messages  []Message
}

// Append adds messages to the in-memory transcript. The store write
// happens separately via Store.Save.
func (s *Session) Append(msgs ...Message) {
	s.Messages = append(s.Messages, msgs...)
}
