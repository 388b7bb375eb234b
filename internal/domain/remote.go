package domain

import (
	"context"
	"time"
)

// RemoteConversation is the Remote Conversation API list item
type RemoteConversation struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	WineID    string    `json:"wineId,omitempty"`
	Owner     string    `json:"-"`
}

// RemoteMessage is a message as served by the Remote Conversation API
type RemoteMessage struct {
	ID             int64       `json:"id"`
	Content        string      `json:"content"`
	Role           MessageRole `json:"role"`
	ConversationID int64       `json:"conversationId"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// RemoteMessageCreate is the POST /messages body
type RemoteMessageCreate struct {
	ConversationID int64       `json:"conversationId" validate:"required,gt=0"`
	Role           MessageRole `json:"role" validate:"required,oneof=user assistant"`
	Content        string      `json:"content" validate:"required,max=32000"`
	WineID         string      `json:"wineId,omitempty" validate:"omitempty,max=128"`
}

// ConversationRepository defines server-side conversation storage
type ConversationRepository interface {
	EnsureExists(ctx context.Context, conv *RemoteConversation) error
	ListByOwner(ctx context.Context, owner string, limit int) ([]RemoteConversation, error)
	Get(ctx context.Context, id int64) (*RemoteConversation, error)
}

// MessageRepository defines server-side message storage
type MessageRepository interface {
	Create(ctx context.Context, message *RemoteMessage) error
	ListByConversation(ctx context.Context, conversationID int64, limit int) ([]RemoteMessage, error)
}
