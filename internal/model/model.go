package model

import (
	"encoding/json"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Chat stores metadata about a conversation.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Model     string    `json:"model"`
}

// Message stores a single turn in a chat.
type Message struct {
	ID          string           `json:"id"`
	Role        Role             `json:"role"`
	Content     string           `json:"content"`
	Model       *string          `json:"model,omitempty"` // Model used for this specific message.
	Timestamp   time.Time        `json:"timestamp"`
	Attachments []Attachment     `json:"attachments,omitempty"`
	Metadata    *MessageMetadata `json:"metadata,omitempty"`
}

// Attachment references a file uploaded alongside a message.
type Attachment struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	MimeType  string `json:"mime_type"`
	URL       string `json:"url"`
	SizeBytes int64  `json:"size_bytes"`
}

// EditEntry is one snapshot of a message's content before it was overwritten.
type EditEntry struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Artifact is a generated file (usually an image) attached to an assistant message.
type Artifact struct {
	Kind          string    `json:"kind"`
	URL           string    `json:"url"`
	Prompt        string    `json:"prompt"`
	RevisedPrompt string    `json:"revised_prompt,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// MessageMetadata is the optional bag of per-message flags.
type MessageMetadata struct {
	EditHistory       []EditEntry     `json:"edit_history,omitempty"`
	Regenerated       bool            `json:"regenerated,omitempty"`
	IsStreaming       bool            `json:"is_streaming,omitempty"`
	GeneratedArtifact *Artifact       `json:"generated_artifact,omitempty"`
	GenerationFailed  bool            `json:"generation_failed,omitempty"`
	FailureReason     string          `json:"failure_reason,omitempty"`
	Cancelled         bool            `json:"cancelled,omitempty"`
	Unsaved           bool            `json:"unsaved,omitempty"`
	Stats             json.RawMessage `json:"stats,omitempty"`
}

// Clone returns a deep copy of the message so callers can never alias engine state.
func (m Message) Clone() Message {
	out := m
	if m.Model != nil {
		name := *m.Model
		out.Model = &name
	}
	if m.Attachments != nil {
		out.Attachments = append([]Attachment(nil), m.Attachments...)
	}
	if m.Metadata != nil {
		meta := *m.Metadata
		if m.Metadata.EditHistory != nil {
			meta.EditHistory = append([]EditEntry(nil), m.Metadata.EditHistory...)
		}
		if m.Metadata.GeneratedArtifact != nil {
			artifact := *m.Metadata.GeneratedArtifact
			meta.GeneratedArtifact = &artifact
		}
		if m.Metadata.Stats != nil {
			meta.Stats = append(json.RawMessage(nil), m.Metadata.Stats...)
		}
		out.Metadata = &meta
	}
	return out
}

// Meta returns the metadata bag, allocating it on first use.
func (m *Message) Meta() *MessageMetadata {
	if m.Metadata == nil {
		m.Metadata = &MessageMetadata{}
	}
	return m.Metadata
}

// IsStreaming reports whether content is still being appended to the message.
func (m Message) IsStreaming() bool {
	return m.Metadata != nil && m.Metadata.IsStreaming
}

// CloneMessages deep-copies a message slice.
func CloneMessages(messages []Message) []Message {
	out := make([]Message, len(messages))
	for i, msg := range messages {
		out[i] = msg.Clone()
	}
	return out
}

// FullChat includes the chat metadata and all its messages.
type FullChat struct {
	Chat
	Messages []Message `json:"messages"`
	// Unsaved is set when the in-memory state is ahead of the durable store.
	Unsaved bool `json:"unsaved,omitempty"`
}

// StreamResponse is the structure for a single chunk in a streaming response.
type StreamResponse struct {
	ChatID    string `json:"chat_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Content   string `json:"content"`
	Done      bool   `json:"done"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`

	// Unsaved on the done chunk reports writes that had already failed when
	// the reply settled. The reply's own write is still in flight at that
	// point; GET /chats/{id} gives the current flag.
	Unsaved bool `json:"unsaved,omitempty"`
}

// Turn is a role/content pair handed to background memory extraction.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// MemoryPayload is the unit of work for the background persistence queue:
// an ordered user/assistant exchange plus free-form metadata.
type MemoryPayload struct {
	ChatID   string            `json:"chat_id"`
	UserID   string            `json:"user_id"`
	Turns    [2]Turn           `json:"turns"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Memory is a durable fact extracted from a conversation.
type Memory struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ChatID    string    `json:"chat_id"`
	SourceKey string    `json:"source_key"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Settings holds the runtime application settings.
type Settings struct {
	SystemPrompt string `json:"system_prompt" validate:"required"`
	MainModel    string `json:"main_model" validate:"required"`
	SupportModel string `json:"support_model"`
	ImageModel   string `json:"image_model"`
}
