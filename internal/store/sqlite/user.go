package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/sommelier/internal/prefs"
)

// GetOrCreateSessionUser returns the id of the single local user, creating it
// on first use. A cached id that no longer resolves is replaced by the stored
// user, and an empty slot is refilled from it.
func (s *Store) GetOrCreateSessionUser(ctx context.Context) (int64, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}

	s.userMu.Lock()
	defer s.userMu.Unlock()

	cached, ok, err := prefs.GetInt64(ctx, s.slot, prefs.UserKey)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read cached session user id")
	}
	if ok {
		var count int
		err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE id = ?`, cached).Scan(&count)
		if err != nil {
			return 0, txErr("look up session user", err)
		}
		if count > 0 {
			return cached, nil
		}
		log.Info().Int64("user_id", cached).Msg("cached session user no longer exists")
	}

	// The slot may be empty or fresh while the file already has its user
	var existing int64
	err = db.QueryRowContext(ctx, `SELECT id FROM users ORDER BY id LIMIT 1`).Scan(&existing)
	switch {
	case err == nil:
		s.cacheUser(ctx, existing)
		log.Debug().Int64("user_id", existing).Msg("reusing stored session user")
		return existing, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, txErr("look up stored session user", err)
	}

	username := "guest-" + uuid.NewString()[:8]
	res, err := db.ExecContext(ctx,
		`INSERT INTO users (username, created_at) VALUES (?, ?)`,
		username, s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, txErr("create session user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, txErr("read session user id", err)
	}

	s.cacheUser(ctx, id)

	log.Debug().Int64("user_id", id).Str("username", username).Msg("created session user")
	return id, nil
}

func (s *Store) cacheUser(ctx context.Context, id int64) {
	if err := prefs.SetInt64(ctx, s.slot, prefs.UserKey, id); err != nil {
		log.Warn().Err(err).Int64("user_id", id).Msg("failed to cache session user id")
	}
}
