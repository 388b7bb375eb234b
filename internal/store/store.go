// Package store defines the embedded conversation store: its on-disk record
// shapes and the contract engines implement.
package store

import (
	"context"
	"time"
)

// Store is the durable, transactional on-device conversation store.
// Errors wrap domain.ErrStoreUnavailable, domain.ErrNotFound or
// domain.ErrTransactionFailed.
type Store interface {
	Open(ctx context.Context) error
	Close() error

	GetOrCreateSessionUser(ctx context.Context) (int64, error)

	CreateConversation(ctx context.Context, initial ConversationRecord) (int64, error)
	ImportConversation(ctx context.Context, rec ConversationRecord) (bool, error)
	GetConversation(ctx context.Context, id int64) (*ConversationRecord, error)
	GetAllConversationsForUser(ctx context.Context) ([]ConversationRecord, error)
	GetConversationsForWine(ctx context.Context, wineKey string) ([]ConversationRecord, error)
	UpdateConversation(ctx context.Context, id int64, patch Patch) (*ConversationRecord, error)
	DeleteConversation(ctx context.Context, id int64) error

	AppendMessage(ctx context.Context, conversationID int64, msg MessageRecord) (MessageRecord, error)
	UpdateMessageContent(ctx context.Context, conversationID int64, key MessageKey, content string) error
}

// Patch is a partial conversation update. Nil fields are left untouched;
// a non-nil Messages pointing at an empty slice clears the list.
type Patch struct {
	Title        *string
	LastActivity *Timestamp
	Messages     *[]MessageRecord
	Metadata     *Metadata
}

// Apply mutates rec in place. LastActivity never moves before CreatedAt.
func (p Patch) Apply(rec *ConversationRecord) {
	if p.Title != nil {
		rec.Title = *p.Title
	}
	if p.Messages != nil {
		rec.Messages = append(make([]MessageRecord, 0, len(*p.Messages)), *p.Messages...)
	}
	if p.Metadata != nil {
		md := *p.Metadata
		rec.Metadata = &md
	}
	if p.LastActivity != nil {
		rec.LastActivity = *p.LastActivity
		if rec.CreatedAt.After(rec.LastActivity) {
			rec.LastActivity = rec.CreatedAt
		}
	}
}

// TouchPatch bumps the last-activity timestamp to now
func TouchPatch(now time.Time) Patch {
	ts := TimestampOf(now)
	return Patch{LastActivity: &ts}
}

// MostRecent returns the record with the latest activity, or nil
func MostRecent(recs []ConversationRecord) *ConversationRecord {
	var best *ConversationRecord
	for i := range recs {
		if best == nil || recs[i].LastActivity.After(best.LastActivity) {
			best = &recs[i]
		}
	}
	return best
}
