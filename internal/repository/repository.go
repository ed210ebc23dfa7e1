package repository

import (
	"context"

	"flowchat/backend/internal/model"
)

// Repository is the durable conversation store. Writes are best-effort from
// the caller's point of view: the in-memory conversation stays authoritative.
type Repository interface {
	CreateChat(ctx context.Context, chat *model.Chat) error
	GetChat(ctx context.Context, chatID, userID string) (*model.Chat, error)
	GetChats(ctx context.Context, userID string) ([]*model.Chat, error)
	UpdateChatTitle(ctx context.Context, chatID, title string) error
	// DeleteChat removes the chat and its messages. It reports false when no
	// chat with that id belongs to userID.
	DeleteChat(ctx context.Context, chatID, userID string) (bool, error)

	// AppendMessage stores msg after the chat's last message, or updates it in
	// place when a message with the same id is already stored.
	AppendMessage(ctx context.Context, chatID string, msg *model.Message) error
	// ReplaceMessages overwrites the whole message sequence of a chat.
	ReplaceMessages(ctx context.Context, chatID string, messages []model.Message) error
	GetMessages(ctx context.Context, chatID string) ([]model.Message, error)

	GetSettings(ctx context.Context) (*model.Settings, error)
	SaveSettings(ctx context.Context, settings *model.Settings) error

	HasMemory(ctx context.Context, userID, sourceKey string) (bool, error)
	// SaveMemories inserts memories, ignoring ones already stored for the same
	// user, source key and content.
	SaveMemories(ctx context.Context, memories []model.Memory) error
	ListMemories(ctx context.Context, userID string) ([]model.Memory, error)
}
