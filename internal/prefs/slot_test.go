package prefs

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationKey(t *testing.T) {
	assert.Equal(t, "conversation_default", ConversationKey(""))
	assert.Equal(t, "conversation_default", ConversationKey("   "))
	assert.Equal(t, "conversation_wine_7", ConversationKey("wine_7"))
}

func exerciseSlot(t *testing.T, s Slot) {
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", "v1"))
	require.NoError(t, s.Set(ctx, "k", "v2"))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", v)

	require.NoError(t, s.Delete(ctx, "k"))
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	// deleting an absent key is not an error
	require.NoError(t, s.Delete(ctx, "k"))

	require.NoError(t, SetInt64(ctx, s, "n", 42))
	n, ok, err := GetInt64(ctx, s, "n")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)

	require.NoError(t, s.Set(ctx, "n", "not-a-number"))
	_, ok, err = GetInt64(ctx, s, "n")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory(t *testing.T) {
	exerciseSlot(t, NewMemory())
}

func TestBolt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.bolt")

	b, err := OpenBolt(path)
	require.NoError(t, err)
	exerciseSlot(t, b)

	require.NoError(t, b.Set(context.Background(), ConversationKey("wine_7"), "12"))
	require.NoError(t, b.Close())

	// values survive a reopen
	b, err = OpenBolt(path)
	require.NoError(t, err)
	defer b.Close()

	id, ok, err := GetInt64(context.Background(), b, ConversationKey("wine_7"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(12), id)
}
