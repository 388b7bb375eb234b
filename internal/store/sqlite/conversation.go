package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/Rrens/sommelier/internal/domain"
	"github.com/Rrens/sommelier/internal/store"
)

// CreateConversation inserts a conversation owned by the session user and
// returns the id assigned by the engine
func (s *Store) CreateConversation(ctx context.Context, initial store.ConversationRecord) (int64, error) {
	userID, err := s.GetOrCreateSessionUser(ctx)
	if err != nil {
		return 0, err
	}
	db, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}

	rec := s.normalize(initial)
	rec.ID = 0
	rec.UserID = userID

	body, err := json.Marshal(rec)
	if err != nil {
		return 0, txErr("encode conversation", err)
	}

	res, err := db.ExecContext(ctx, `INSERT INTO conversations (user_id, body) VALUES (?, ?)`, userID, string(body))
	if err != nil {
		return 0, txErr("create conversation", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, txErr("read conversation id", err)
	}
	return id, nil
}

// ImportConversation stores rec under its own id when that id is free.
// It reports whether a row was inserted.
func (s *Store) ImportConversation(ctx context.Context, rec store.ConversationRecord) (bool, error) {
	if rec.ID <= 0 {
		return false, fmt.Errorf("%w: import requires an explicit id", domain.ErrTransactionFailed)
	}
	userID, err := s.GetOrCreateSessionUser(ctx)
	if err != nil {
		return false, err
	}
	db, err := s.conn(ctx)
	if err != nil {
		return false, err
	}

	rec = s.normalize(rec)
	rec.UserID = userID

	body, err := json.Marshal(rec)
	if err != nil {
		return false, txErr("encode conversation", err)
	}

	res, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO conversations (id, user_id, body) VALUES (?, ?, ?)`,
		rec.ID, userID, string(body),
	)
	if err != nil {
		return false, txErr("import conversation", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, txErr("import conversation", err)
	}
	return n > 0, nil
}

// GetConversation returns the conversation with the given id
func (s *Store) GetConversation(ctx context.Context, id int64) (*store.ConversationRecord, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	var body string
	err = db.QueryRowContext(ctx, `SELECT body FROM conversations WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversation %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, txErr("get conversation", err)
	}
	return decode(id, body)
}

// GetAllConversationsForUser lists the session user's conversations, most
// recently active first
func (s *Store) GetAllConversationsForUser(ctx context.Context) ([]store.ConversationRecord, error) {
	userID, err := s.GetOrCreateSessionUser(ctx)
	if err != nil {
		return nil, err
	}
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id, body FROM conversations WHERE user_id = ?`, userID)
	if err != nil {
		return nil, txErr("list conversations", err)
	}
	defer rows.Close()

	conversations := []store.ConversationRecord{}
	for rows.Next() {
		var id int64
		var body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, txErr("scan conversation", err)
		}
		rec, err := decode(id, body)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, txErr("list conversations", err)
	}

	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].LastActivity.After(conversations[j].LastActivity)
	})
	return conversations, nil
}

// GetConversationsForWine filters the session user's conversations by wine
// metadata. An empty wineKey selects conversations without a wine.
func (s *Store) GetConversationsForWine(ctx context.Context, wineKey string) ([]store.ConversationRecord, error) {
	all, err := s.GetAllConversationsForUser(ctx)
	if err != nil {
		return nil, err
	}

	matched := []store.ConversationRecord{}
	for _, rec := range all {
		if rec.WineID() == wineKey {
			matched = append(matched, rec)
		}
	}
	return matched, nil
}

// UpdateConversation applies patch in a single read-modify-write transaction
func (s *Store) UpdateConversation(ctx context.Context, id int64, patch store.Patch) (*store.ConversationRecord, error) {
	return s.mutate(ctx, id, func(rec *store.ConversationRecord) error {
		patch.Apply(rec)
		return nil
	})
}

// DeleteConversation removes the conversation record
func (s *Store) DeleteConversation(ctx context.Context, id int64) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return txErr("delete conversation", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return txErr("delete conversation", err)
	}
	if n == 0 {
		return fmt.Errorf("conversation %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// AppendMessage pushes msg onto the conversation's message list. A message
// without any id gets a local one.
func (s *Store) AppendMessage(ctx context.Context, conversationID int64, msg store.MessageRecord) (store.MessageRecord, error) {
	if msg.ID == nil && msg.LocalID == "" {
		msg.LocalID = uuid.NewString()
	}
	msg.ConversationID = conversationID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = store.TimestampOf(s.now().UTC())
	}

	_, err := s.mutate(ctx, conversationID, func(rec *store.ConversationRecord) error {
		rec.Messages = append(rec.Messages, msg)
		return nil
	})
	if err != nil {
		return store.MessageRecord{}, err
	}
	return msg, nil
}

// UpdateMessageContent replaces the content of the message key points at
func (s *Store) UpdateMessageContent(ctx context.Context, conversationID int64, key store.MessageKey, content string) error {
	if key.IsZero() {
		return fmt.Errorf("message without id: %w", domain.ErrNotFound)
	}
	_, err := s.mutate(ctx, conversationID, func(rec *store.ConversationRecord) error {
		for i := len(rec.Messages) - 1; i >= 0; i-- {
			if key.Matches(rec.Messages[i]) {
				rec.Messages[i].Content = content
				return nil
			}
		}
		return fmt.Errorf("message in conversation %d: %w", conversationID, domain.ErrNotFound)
	})
	return err
}

// mutate runs fn against the stored record inside one transaction
func (s *Store) mutate(ctx context.Context, id int64, fn func(*store.ConversationRecord) error) (*store.ConversationRecord, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, txErr("begin transaction", err)
	}
	defer tx.Rollback()

	var body string
	err = tx.QueryRowContext(ctx, `SELECT body FROM conversations WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversation %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, txErr("read conversation", err)
	}

	rec, err := decode(id, body)
	if err != nil {
		return nil, err
	}
	if err := fn(rec); err != nil {
		return nil, err
	}

	updated, err := json.Marshal(rec)
	if err != nil {
		return nil, txErr("encode conversation", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE conversations SET body = ? WHERE id = ?`, string(updated), id); err != nil {
		return nil, txErr("update conversation", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, txErr("commit conversation", err)
	}
	return rec, nil
}

func (s *Store) normalize(rec store.ConversationRecord) store.ConversationRecord {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = store.TimestampOf(s.now().UTC())
	}
	if rec.LastActivity.IsZero() || rec.CreatedAt.After(rec.LastActivity) {
		rec.LastActivity = rec.CreatedAt
	}
	rec.Messages = append([]store.MessageRecord{}, rec.Messages...)
	return rec
}

func decode(id int64, body string) (*store.ConversationRecord, error) {
	var rec store.ConversationRecord
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return nil, txErr(fmt.Sprintf("decode conversation %d", id), err)
	}
	rec.ID = id
	if rec.Messages == nil {
		rec.Messages = []store.MessageRecord{}
	}
	for i := range rec.Messages {
		if rec.Messages[i].ConversationID == 0 {
			rec.Messages[i].ConversationID = id
		}
	}
	return &rec, nil
}
