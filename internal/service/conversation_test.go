package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Rrens/sommelier/internal/domain"
)

func TestConversationService_ListConversations(t *testing.T) {
	convRepo := new(MockConversationRepository)
	svc := NewConversationService(convRepo, new(MockMessageRepository))
	ctx := context.Background()

	expected := []domain.RemoteConversation{{ID: 1, Title: "New Chat", Owner: "device-a"}}
	convRepo.On("ListByOwner", ctx, "device-a", conversationListLimit).Return(expected, nil)

	got, err := svc.ListConversations(ctx, "device-a")
	assert.NoError(t, err)
	assert.Equal(t, expected, got)
	convRepo.AssertExpectations(t)
}

func TestConversationService_ListMessages(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		msgRepo := new(MockMessageRepository)
		svc := NewConversationService(convRepo, msgRepo)

		convRepo.On("Get", ctx, int64(5)).Return(&domain.RemoteConversation{ID: 5, Owner: "device-a"}, nil)
		msgRepo.On("ListByConversation", ctx, int64(5), messageListLimit).
			Return([]domain.RemoteMessage{{ID: 1, Content: "hi", Role: domain.RoleUser, ConversationID: 5}}, nil)

		got, err := svc.ListMessages(ctx, "device-a", 5)
		assert.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("other owner is not found", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		msgRepo := new(MockMessageRepository)
		svc := NewConversationService(convRepo, msgRepo)

		convRepo.On("Get", ctx, int64(5)).Return(&domain.RemoteConversation{ID: 5, Owner: "device-b"}, nil)

		_, err := svc.ListMessages(ctx, "device-a", 5)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		msgRepo.AssertNotCalled(t, "ListByConversation", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing conversation", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		svc := NewConversationService(convRepo, new(MockMessageRepository))

		convRepo.On("Get", ctx, int64(9)).Return(nil, fmt.Errorf("conversation 9: %w", domain.ErrNotFound))

		_, err := svc.ListMessages(ctx, "device-a", 9)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestConversationService_PostMessage(t *testing.T) {
	ctx := context.Background()
	input := domain.RemoteMessageCreate{
		ConversationID: 12,
		Role:           domain.RoleUser,
		Content:        "Does it need decanting?",
		WineID:         "wine_7",
	}

	t.Run("creates conversation and message", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		msgRepo := new(MockMessageRepository)
		svc := NewConversationService(convRepo, msgRepo)

		convRepo.On("EnsureExists", ctx, mock.MatchedBy(func(c *domain.RemoteConversation) bool {
			return c.ID == 12 && c.Owner == "device-a" && c.WineID == "wine_7" && c.Title == "New Chat"
		})).Return(nil)
		convRepo.On("Get", ctx, int64(12)).Return(&domain.RemoteConversation{ID: 12, Owner: "device-a"}, nil)
		msgRepo.On("Create", ctx, mock.AnythingOfType("*domain.RemoteMessage")).
			Run(func(args mock.Arguments) {
				args.Get(1).(*domain.RemoteMessage).ID = 300
			}).
			Return(nil)

		msg, err := svc.PostMessage(ctx, "device-a", input)
		assert.NoError(t, err)
		assert.Equal(t, int64(300), msg.ID)
		assert.Equal(t, "Does it need decanting?", msg.Content)
		assert.False(t, msg.CreatedAt.IsZero())

		convRepo.AssertExpectations(t)
		msgRepo.AssertExpectations(t)
	})

	t.Run("conversation of another owner", func(t *testing.T) {
		convRepo := new(MockConversationRepository)
		msgRepo := new(MockMessageRepository)
		svc := NewConversationService(convRepo, msgRepo)

		convRepo.On("EnsureExists", ctx, mock.Anything).Return(nil)
		convRepo.On("Get", ctx, int64(12)).Return(&domain.RemoteConversation{ID: 12, Owner: "device-b"}, nil)

		_, err := svc.PostMessage(ctx, "device-a", input)
		assert.ErrorIs(t, err, ErrForbidden)
		msgRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}
