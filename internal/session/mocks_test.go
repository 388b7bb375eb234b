package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"github.com/Rrens/sommelier/internal/domain"
	"github.com/Rrens/sommelier/internal/store"
)

// MockMirror mocks the remote.Mirror interface
type MockMirror struct {
	mock.Mock
}

func (m *MockMirror) ListConversations(ctx context.Context) ([]domain.RemoteConversation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RemoteConversation), args.Error(1)
}

func (m *MockMirror) ListMessages(ctx context.Context, conversationID int64) ([]domain.RemoteMessage, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RemoteMessage), args.Error(1)
}

func (m *MockMirror) PostMessage(ctx context.Context, body domain.RemoteMessageCreate) error {
	args := m.Called(ctx, body)
	return args.Error(0)
}

// failingStore wraps a real store and fails selected operations
type failingStore struct {
	store.Store
	createErr error
	appendErr error
}

func (f *failingStore) CreateConversation(ctx context.Context, initial store.ConversationRecord) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	return f.Store.CreateConversation(ctx, initial)
}

func (f *failingStore) AppendMessage(ctx context.Context, conversationID int64, msg store.MessageRecord) (store.MessageRecord, error) {
	if f.appendErr != nil {
		return store.MessageRecord{}, f.appendErr
	}
	return f.Store.AppendMessage(ctx, conversationID, msg)
}

// gatedStore blocks the first GetConversation after arm until release is closed
type gatedStore struct {
	store.Store
	armed   atomic.Bool
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedStore(inner store.Store) *gatedStore {
	return &gatedStore{
		Store:   inner,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedStore) GetConversation(ctx context.Context, id int64) (*store.ConversationRecord, error) {
	if g.armed.Load() {
		blocked := false
		g.once.Do(func() {
			blocked = true
			close(g.entered)
		})
		if blocked {
			<-g.release
		}
	}
	return g.Store.GetConversation(ctx, id)
}
