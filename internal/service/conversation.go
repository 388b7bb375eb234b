package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/sommelier/internal/domain"
)

const (
	conversationListLimit = 100
	messageListLimit      = 1000
	defaultTitle          = "New Chat"
)

// ErrForbidden means the conversation belongs to another owner
var ErrForbidden = errors.New("conversation belongs to another owner")

// ConversationService serves the Remote Conversation API
type ConversationService struct {
	conversationRepo domain.ConversationRepository
	messageRepo      domain.MessageRepository
	now              func() time.Time
}

// NewConversationService creates a new conversation service
func NewConversationService(conversationRepo domain.ConversationRepository, messageRepo domain.MessageRepository) *ConversationService {
	return &ConversationService{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		now:              time.Now,
	}
}

// ListConversations returns the owner's conversations, newest first
func (s *ConversationService) ListConversations(ctx context.Context, owner string) ([]domain.RemoteConversation, error) {
	conversations, err := s.conversationRepo.ListByOwner(ctx, owner, conversationListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return conversations, nil
}

// ListMessages returns a conversation's messages. Conversations of other
// owners are reported as not found.
func (s *ConversationService) ListMessages(ctx context.Context, owner string, conversationID int64) ([]domain.RemoteMessage, error) {
	conv, err := s.conversationRepo.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.Owner != owner {
		return nil, fmt.Errorf("conversation %d: %w", conversationID, domain.ErrNotFound)
	}

	messages, err := s.messageRepo.ListByConversation(ctx, conversationID, messageListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// PostMessage stores a message, creating its conversation on first sight
func (s *ConversationService) PostMessage(ctx context.Context, owner string, input domain.RemoteMessageCreate) (*domain.RemoteMessage, error) {
	now := s.now().UTC()

	conv := &domain.RemoteConversation{
		ID:        input.ConversationID,
		Title:     defaultTitle,
		CreatedAt: now,
		WineID:    input.WineID,
		Owner:     owner,
	}
	if err := s.conversationRepo.EnsureExists(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to ensure conversation: %w", err)
	}

	stored, err := s.conversationRepo.Get(ctx, input.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	if stored.Owner != owner {
		log.Warn().Int64("conversation_id", input.ConversationID).Msg("rejected message for conversation of another owner")
		return nil, ErrForbidden
	}

	message := &domain.RemoteMessage{
		ConversationID: input.ConversationID,
		Role:           input.Role,
		Content:        input.Content,
		CreatedAt:      now,
	}
	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	return message, nil
}
