package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const slotPrefix = "sommelier:slot:"

// Slot implements prefs.Slot on Redis so that several processes on one host
// share the same active-conversation pointers. Keys never expire.
type Slot struct {
	client *Client
}

// NewSlot creates a Redis-backed slot
func NewSlot(client *Client) *Slot {
	return &Slot{client: client}
}

func (s *Slot) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.rdb.Get(ctx, slotPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read slot %q: %w", key, err)
	}
	return v, true, nil
}

func (s *Slot) Set(ctx context.Context, key, value string) error {
	if err := s.client.rdb.Set(ctx, slotPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write slot %q: %w", key, err)
	}
	return nil
}

func (s *Slot) Delete(ctx context.Context, key string) error {
	if err := s.client.rdb.Del(ctx, slotPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete slot %q: %w", key, err)
	}
	return nil
}

// Close releases the underlying client
func (s *Slot) Close() error {
	return s.client.Close()
}
