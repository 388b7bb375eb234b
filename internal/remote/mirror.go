// Package remote talks to the Remote Conversation API, the best-effort
// server copy of chat history.
package remote

import (
	"context"
	"fmt"

	"github.com/Rrens/sommelier/internal/domain"
)

// Mirror is the remote conversation collection as the session manager sees it.
// Every error wraps domain.ErrRemoteUnreachable.
type Mirror interface {
	ListConversations(ctx context.Context) ([]domain.RemoteConversation, error)
	ListMessages(ctx context.Context, conversationID int64) ([]domain.RemoteMessage, error)
	PostMessage(ctx context.Context, body domain.RemoteMessageCreate) error
}

// Offline is the mirror used when no remote is configured. Every call fails
// the way an unreachable server would.
type Offline struct{}

var _ Mirror = Offline{}

func (Offline) ListConversations(context.Context) ([]domain.RemoteConversation, error) {
	return nil, fmt.Errorf("%w: no remote configured", domain.ErrRemoteUnreachable)
}

func (Offline) ListMessages(context.Context, int64) ([]domain.RemoteMessage, error) {
	return nil, fmt.Errorf("%w: no remote configured", domain.ErrRemoteUnreachable)
}

func (Offline) PostMessage(context.Context, domain.RemoteMessageCreate) error {
	return fmt.Errorf("%w: no remote configured", domain.ErrRemoteUnreachable)
}
