// Package prefs holds small durable key-value slots: the session user id and
// the active conversation id of each wine scope.
package prefs

import (
	"context"
	"strconv"
	"strings"
)

// UserKey caches the id of the session user outside the embedded store
const UserKey = "sommelier_user_id"

const (
	conversationKeyPrefix = "conversation_"
	defaultScope          = "default"
)

// Slot is a durable string key-value store
type Slot interface {
	// Get returns the stored value and whether the key was present
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// ConversationKey returns the slot key holding the active conversation id
// for a wine scope, or for the unscoped default conversation.
func ConversationKey(wineID string) string {
	wineID = strings.TrimSpace(wineID)
	if wineID == "" {
		return conversationKeyPrefix + defaultScope
	}
	return conversationKeyPrefix + wineID
}

// GetInt64 reads a numeric value. Missing or non-numeric values report false.
func GetInt64(ctx context.Context, s Slot, key string) (int64, bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return 0, false, err
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || v <= 0 {
		return 0, false, nil
	}
	return v, true, nil
}

// SetInt64 stores a numeric value in its decimal form
func SetInt64(ctx context.Context, s Slot, key string, v int64) error {
	return s.Set(ctx, key, strconv.FormatInt(v, 10))
}
