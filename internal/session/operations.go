package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/sommelier/internal/adapter"
	"github.com/Rrens/sommelier/internal/domain"
	"github.com/Rrens/sommelier/internal/events"
	"github.com/Rrens/sommelier/internal/store"
)

// CreateNewConversation creates a conversation in the embedded store and
// makes it current. On failure the state is left untouched.
func (m *Manager) CreateNewConversation(ctx context.Context) (int64, error) {
	if m.alive.Err() != nil {
		return 0, ErrClosed
	}

	id, err := m.local.CreateConversation(ctx, m.newRecord())
	if err != nil {
		log.Error().Err(err).Str("scope", m.cacheKey).Msg("failed to create conversation")
		return 0, fmt.Errorf("failed to create conversation: %w", err)
	}

	if _, ok := m.switchContext(id); !ok {
		return id, ErrClosed
	}
	m.addSummary(id)
	m.cacheCurrent(ctx, id)

	log.Info().Str("scope", m.cacheKey).Int64("conversation_id", id).Msg("created conversation")
	return id, nil
}

// AddMessage appends a message to the transcript right away, then posts it to
// the remote and appends it to the embedded store. It reports false, and does
// nothing, when no conversation is current or the manager is closed.
func (m *Manager) AddMessage(role domain.MessageRole, content string) (domain.Message, bool) {
	m.mu.Lock()
	convID := m.state.CurrentConversationID
	if m.alive.Err() != nil || convID == 0 {
		m.mu.Unlock()
		return domain.Message{}, false
	}
	msg := domain.Message{
		ID:             domain.Pending{LocalID: uuid.NewString()},
		ConversationID: convID,
		Role:           role,
		Content:        content,
		CreatedAt:      m.now().UTC(),
	}
	m.state.Messages = append(m.state.Messages, msg)
	ev := m.eventLocked(events.ReasonMessageAdded)
	m.mu.Unlock()

	m.publish(ev)

	body := adapter.ToRemoteMessageCreate(msg, m.wineID)
	m.goBackground(func(ctx context.Context) {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.remoteTimeout)
		defer cancel()
		if err := m.remote.PostMessage(pctx, body); err != nil {
			log.Warn().Err(err).Int64("conversation_id", convID).Msg("failed to post message to remote")
		}
	})

	rec := adapter.FromMessage(msg)
	at := msg.CreatedAt
	queued := m.enqueue(func(ctx context.Context) error {
		_, err := m.local.AppendMessage(ctx, convID, rec)
		if err == nil {
			_, err = m.local.UpdateConversation(ctx, convID, store.TouchPatch(at))
		}
		if err != nil {
			log.Error().Err(err).Int64("conversation_id", convID).Msg("failed to save message locally")
		}
		m.setSaveError(err)
		return err
	})
	if !queued {
		log.Warn().Int64("conversation_id", convID).Msg("session closed before message could be saved")
	}

	return msg, true
}

// UpdateLastAssistantMessage replaces the content of the most recent
// assistant message in place and writes it through to the embedded store.
// It reports false when there is no assistant message.
func (m *Manager) UpdateLastAssistantMessage(content string) bool {
	m.mu.Lock()
	idx := -1
	for i := len(m.state.Messages) - 1; i >= 0; i-- {
		if m.state.Messages[i].Role == domain.RoleAssistant {
			idx = i
			break
		}
	}
	if m.alive.Err() != nil || idx < 0 {
		m.mu.Unlock()
		return false
	}
	m.state.Messages[idx].Content = content
	msg := m.state.Messages[idx]
	ev := m.eventLocked(events.ReasonMessageUpdated)
	m.mu.Unlock()

	m.publish(ev)

	key := messageKey(msg.ID)
	if key.IsZero() {
		return true
	}
	m.enqueue(func(ctx context.Context) error {
		err := m.local.UpdateMessageContent(ctx, msg.ConversationID, key, content)
		if errors.Is(err, domain.ErrNotFound) {
			log.Debug().Int64("conversation_id", msg.ConversationID).Str("message_id", msg.ID.String()).Msg("updated message not in local store")
			return nil
		}
		if err != nil {
			log.Error().Err(err).Int64("conversation_id", msg.ConversationID).Msg("failed to save message update locally")
		}
		m.setSaveError(err)
		return err
	})
	return true
}

// SetCurrentConversationID switches to id and reloads its messages from the
// embedded store. An id of zero or less clears the selection. A load error is
// returned but the switch stands, with an empty transcript.
func (m *Manager) SetCurrentConversationID(ctx context.Context, id int64) error {
	if id < 0 {
		id = 0
	}
	gen, ok := m.switchContext(id)
	if !ok {
		return ErrClosed
	}

	if id == 0 {
		if err := m.slot.Delete(ctx, m.cacheKey); err != nil {
			log.Warn().Err(err).Str("key", m.cacheKey).Msg("failed to clear cached conversation")
		}
		return nil
	}

	m.cacheCurrent(ctx, id)

	var loadErr error
	err := m.queued(ctx, func(wctx context.Context) error {
		rec, err := m.local.GetConversation(wctx, id)
		if err != nil {
			loadErr = err
			return nil
		}
		loaded := adapter.ToMessages(rec.Messages)
		m.apply(gen, events.ReasonMessagesLoaded, func(s *State) {
			s.Messages = mergeLoaded(loaded, s.Messages)
		})
		return nil
	})
	if err != nil {
		return err
	}
	if loadErr != nil {
		log.Warn().Err(loadErr).Int64("conversation_id", id).Msg("failed to load conversation")
		return fmt.Errorf("failed to load conversation %d: %w", id, loadErr)
	}
	return nil
}

// ClearConversation empties the current conversation in memory and in the
// embedded store. The conversation itself is kept.
func (m *Manager) ClearConversation(ctx context.Context) error {
	m.mu.Lock()
	id := m.state.CurrentConversationID
	if m.alive.Err() != nil {
		m.mu.Unlock()
		return ErrClosed
	}
	if id == 0 {
		m.mu.Unlock()
		return nil
	}
	m.state.Messages = []domain.Message{}
	ev := m.eventLocked(events.ReasonCleared)
	m.mu.Unlock()

	m.publish(ev)

	return m.queued(ctx, func(wctx context.Context) error {
		empty := []store.MessageRecord{}
		_, err := m.local.UpdateConversation(wctx, id, store.Patch{Messages: &empty})
		if err != nil {
			log.Error().Err(err).Int64("conversation_id", id).Msg("failed to clear conversation locally")
			m.setSaveError(err)
			return fmt.Errorf("failed to clear conversation %d: %w", id, err)
		}
		return nil
	})
}

// RefetchMessages re-reads the current conversation from the embedded store,
// after every queued write has landed, and republishes it. Messages added
// while the read is in flight stay in the transcript.
func (m *Manager) RefetchMessages(ctx context.Context) error {
	m.mu.RLock()
	id, gen := m.state.CurrentConversationID, m.generation
	m.mu.RUnlock()
	if m.alive.Err() != nil {
		return ErrClosed
	}
	if id == 0 {
		return nil
	}

	return m.queued(ctx, func(wctx context.Context) error {
		rec, err := m.local.GetConversation(wctx, id)
		if err != nil {
			return fmt.Errorf("failed to refetch conversation %d: %w", id, err)
		}
		loaded := adapter.ToMessages(rec.Messages)
		m.apply(gen, events.ReasonMessagesLoaded, func(s *State) {
			s.Messages = mergeLoaded(loaded, s.Messages)
		})
		return nil
	})
}

func messageKey(id domain.MessageID) store.MessageKey {
	switch v := id.(type) {
	case domain.Committed:
		return store.MessageKey{ServerID: v.ServerID}
	case domain.Pending:
		return store.MessageKey{LocalID: v.LocalID}
	}
	return store.MessageKey{}
}
