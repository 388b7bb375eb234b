package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/sommelier/internal/config"
	"github.com/Rrens/sommelier/internal/domain"
)

func testConfig(storePath string) *config.Config {
	return &config.Config{
		Store:  config.StoreConfig{Path: storePath},
		Prefs:  config.PrefsConfig{Backend: "memory"},
		Remote: config.RemoteConfig{Timeout: time.Second},
	}
}

func TestOpenApp_UnavailableStoreDegrades(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	a := openApp(context.Background(), testConfig(filepath.Join(blocker, "sommelier.db")), "wine_7", false)
	require.NotNil(t, a)
	require.NotNil(t, a.manager)
	defer a.Close()

	ctx := context.Background()
	a.ready(ctx)

	_, err := a.manager.CreateNewConversation(ctx)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Zero(t, a.manager.CurrentConversationID())
}

func TestOpenApp_OfflineSession(t *testing.T) {
	a := openApp(context.Background(), testConfig(filepath.Join(t.TempDir(), "sommelier.db")), "wine_7", false)
	defer a.Close()

	ctx := context.Background()
	a.ready(ctx)

	id := a.manager.CurrentConversationID()
	require.NotZero(t, id)

	msg, ok := a.manager.AddMessage(domain.RoleUser, "Decant it?")
	require.True(t, ok)
	a.manager.Wait()
	assert.Equal(t, id, msg.ConversationID)
	assert.NoError(t, a.manager.Snapshot().LocalSaveError)
}
