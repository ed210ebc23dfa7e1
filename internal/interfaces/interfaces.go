package interfaces

import (
	"context"

	"flowchat/backend/internal/conversation"
	"flowchat/backend/internal/model"
	"flowchat/backend/internal/queue"
	"flowchat/backend/internal/service"
)

// The API layer depends on these contracts rather than on the concrete
// services, so handlers can be tested against mocks.

// ChatService defines the contract for chat-related business logic.
type ChatService interface {
	ListChats(ctx context.Context) ([]*model.Chat, error)
	GetFullChat(ctx context.Context, chatID string) (*model.FullChat, error)
	UpdateChatTitle(ctx context.Context, chatID, newTitle string) error
	DeleteChat(ctx context.Context, chatID string) error

	HandleNewMessage(ctx context.Context, req *service.CreateMessageRequest, streamChan chan<- model.StreamResponse)
	EditMessage(ctx context.Context, chatID, messageID string, req *service.EditMessageRequest) (*conversation.EditResult, error)
	GenerateReply(ctx context.Context, chatID string, req *service.ReplyRequest, streamChan chan<- model.StreamResponse)
	RegenerateMessage(ctx context.Context, chatID, messageID string, req *service.ReplyRequest, streamChan chan<- model.StreamResponse)
	DeleteMessage(ctx context.Context, chatID, messageID string) error
	CancelGeneration(chatID string) error
	GenerateArtifact(ctx context.Context, chatID string, req *service.ArtifactRequest) (*model.Message, error)

	ListMemories(ctx context.Context) ([]model.Memory, error)
	QueueStatus() queue.Status
}

// SettingsService defines the contract for managing application settings.
type SettingsService interface {
	Get(ctx context.Context) (*model.Settings, error)
	Save(ctx context.Context, settings *model.Settings) error
}
