package session

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/sommelier/internal/adapter"
	"github.com/Rrens/sommelier/internal/domain"
	"github.com/Rrens/sommelier/internal/events"
	"github.com/Rrens/sommelier/internal/prefs"
	"github.com/Rrens/sommelier/internal/store"
)

// Start reconciles the cached active conversation, the embedded store and the
// remote list. It returns immediately; loading happens in the background and
// shows up in the state as it lands. Only the first call has an effect.
func (m *Manager) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		cachedID, hasCache, err := prefs.GetInt64(ctx, m.slot, m.cacheKey)
		if err != nil {
			log.Warn().Err(err).Str("key", m.cacheKey).Msg("failed to read cached conversation id")
			hasCache = false
		}

		m.mu.RLock()
		gen := m.generation
		m.mu.RUnlock()

		if hasCache {
			log.Debug().Str("scope", m.cacheKey).Int64("conversation_id", cachedID).Msg("resuming cached conversation")
			m.apply(gen, events.ReasonCurrentChanged, func(s *State) {
				s.CurrentConversationID = cachedID
			})
			m.enqueue(func(ctx context.Context) error {
				m.loadMessages(ctx, gen, cachedID)
				return nil
			})
		}

		m.goBackground(func(ctx context.Context) {
			m.syncRemote(ctx, gen, hasCache)
		})
	})
}

// loadMessages reads a conversation from the embedded store into the
// transcript. A missing or unreadable conversation leaves it as it is.
func (m *Manager) loadMessages(ctx context.Context, gen uint64, id int64) {
	rec, err := m.local.GetConversation(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Debug().Int64("conversation_id", id).Msg("conversation not in local store")
		} else {
			log.Warn().Err(err).Int64("conversation_id", id).Msg("failed to load conversation")
		}
		return
	}

	loaded := adapter.ToMessages(rec.Messages)
	m.apply(gen, events.ReasonMessagesLoaded, func(s *State) {
		if s.CurrentConversationID == id {
			s.Messages = mergeLoaded(loaded, s.Messages)
		}
	})
}

func (m *Manager) syncRemote(ctx context.Context, gen uint64, hasCache bool) {
	rctx, cancel := context.WithTimeout(ctx, m.remoteTimeout)
	list, err := m.remote.ListConversations(rctx)
	cancel()
	if err != nil {
		log.Warn().Err(err).Str("scope", m.cacheKey).Msg("remote conversation list unavailable")
		m.fallBackToLocal(ctx, gen, hasCache, true)
		return
	}

	scoped := scopeRemote(list, m.wineID)
	summaries := adapter.FromRemoteConversations(scoped)
	m.applyAlive(events.ReasonConversationsChanged, func(s *State) {
		s.Conversations = summaries
	})

	if hasCache {
		return
	}
	candidate := mostRecentRemote(scoped)
	if candidate == nil {
		m.fallBackToLocal(ctx, gen, hasCache, false)
		return
	}
	m.adoptRemote(ctx, gen, *candidate)
}

// adoptRemote makes a remote conversation current, fetching its messages
// and hydrating it into the embedded store
func (m *Manager) adoptRemote(ctx context.Context, gen uint64, rc domain.RemoteConversation) {
	rctx, cancel := context.WithTimeout(ctx, m.remoteTimeout)
	rms, err := m.remote.ListMessages(rctx, rc.ID)
	cancel()
	if err != nil {
		log.Warn().Err(err).Int64("conversation_id", rc.ID).Msg("failed to fetch remote messages")
		m.fallBackToLocal(ctx, gen, false, false)
		return
	}
	if !m.unsetAt(gen) {
		return
	}

	rec := adapter.RemoteToRecord(rc, rms)
	if rec.Metadata == nil && m.wineID != "" {
		rec.Metadata = &store.Metadata{WineID: m.wineID}
	}
	imported, err := m.local.ImportConversation(context.WithoutCancel(ctx), rec)
	if err != nil {
		log.Warn().Err(err).Int64("conversation_id", rc.ID).Msg("failed to hydrate remote conversation")
	} else if !imported {
		if !m.ownsLocal(ctx, rc.ID) {
			log.Warn().Int64("conversation_id", rc.ID).Str("scope", m.cacheKey).Msg("remote conversation id taken by another local conversation")
			m.fallBackToLocal(ctx, gen, false, false)
			return
		}
		log.Debug().Int64("conversation_id", rc.ID).Msg("remote conversation already stored locally")
	}

	messages := adapter.FromRemoteMessages(rms)
	if m.adopt(gen, rc.ID, messages) {
		m.cacheCurrent(ctx, rc.ID)
		log.Info().Str("scope", m.cacheKey).Int64("conversation_id", rc.ID).Msg("adopted remote conversation")
	}
}

// ownsLocal reports whether the stored conversation id belongs to the session
// user and to this manager's wine scope
func (m *Manager) ownsLocal(ctx context.Context, id int64) bool {
	rec, err := m.local.GetConversation(ctx, id)
	if err != nil {
		log.Warn().Err(err).Int64("conversation_id", id).Msg("failed to read stored conversation")
		return false
	}
	userID, err := m.local.GetOrCreateSessionUser(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to resolve session user")
		return false
	}
	return rec.UserID == userID && rec.WineID() == m.wineID
}

// fallBackToLocal adopts the embedded store's most recent conversation for
// the scope, or creates one when there is none
func (m *Manager) fallBackToLocal(ctx context.Context, gen uint64, hasCache, listFromLocal bool) {
	if hasCache && !listFromLocal {
		return
	}

	recs, err := m.local.GetConversationsForWine(ctx, m.wineID)
	if err != nil {
		log.Warn().Err(err).Str("scope", m.cacheKey).Msg("failed to list local conversations")
		recs = nil
	}

	if listFromLocal && len(recs) > 0 {
		summaries := adapter.ToSummaries(recs)
		m.applyAlive(events.ReasonConversationsChanged, func(s *State) {
			if len(s.Conversations) == 0 {
				s.Conversations = summaries
			}
		})
	}
	if hasCache {
		return
	}

	if best := store.MostRecent(recs); best != nil {
		if m.adopt(gen, best.ID, adapter.ToMessages(best.Messages)) {
			m.cacheCurrent(ctx, best.ID)
			log.Info().Str("scope", m.cacheKey).Int64("conversation_id", best.ID).Msg("adopted local conversation")
		}
		return
	}

	if !m.unsetAt(gen) {
		return
	}
	id, err := m.local.CreateConversation(context.WithoutCancel(ctx), m.newRecord())
	if err != nil {
		log.Error().Err(err).Str("scope", m.cacheKey).Msg("failed to create conversation")
		return
	}
	if m.adopt(gen, id, []domain.Message{}) {
		m.addSummary(id)
		m.cacheCurrent(ctx, id)
		log.Info().Str("scope", m.cacheKey).Int64("conversation_id", id).Msg("created conversation")
	}
}

// unsetAt reports whether gen is current and no conversation is selected
func (m *Manager) unsetAt(gen uint64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.alive.Err() == nil && gen == m.generation && m.state.CurrentConversationID == 0
}

// adopt selects id with the given transcript when nothing has been selected
// since gen
func (m *Manager) adopt(gen uint64, id int64, messages []domain.Message) bool {
	adopted := false
	m.apply(gen, events.ReasonCurrentChanged, func(s *State) {
		if s.CurrentConversationID != 0 {
			return
		}
		s.CurrentConversationID = id
		s.Messages = messages
		adopted = true
	})
	return adopted
}

func (m *Manager) newRecord() store.ConversationRecord {
	rec := store.ConversationRecord{
		Title:     defaultTitle,
		CreatedAt: store.TimestampOf(m.now().UTC()),
	}
	if m.wineID != "" {
		rec.Metadata = &store.Metadata{WineID: m.wineID}
	}
	return rec
}

func (m *Manager) addSummary(id int64) {
	summary := domain.ConversationSummary{
		ID:        id,
		Title:     defaultTitle,
		CreatedAt: m.now().UTC(),
		WineID:    m.wineID,
	}
	m.applyAlive(events.ReasonConversationsChanged, func(s *State) {
		s.Conversations = append([]domain.ConversationSummary{summary}, s.Conversations...)
	})
}

// scopeRemote keeps the remote conversations of the scope. A remote that
// carries no wine ids at all cannot be scoped and is used as is.
func scopeRemote(list []domain.RemoteConversation, wineID string) []domain.RemoteConversation {
	tagged := false
	for _, rc := range list {
		if rc.WineID != "" {
			tagged = true
			break
		}
	}
	if !tagged {
		return list
	}

	scoped := []domain.RemoteConversation{}
	for _, rc := range list {
		if rc.WineID == wineID {
			scoped = append(scoped, rc)
		}
	}
	return scoped
}

func mostRecentRemote(list []domain.RemoteConversation) *domain.RemoteConversation {
	var best *domain.RemoteConversation
	for i := range list {
		if best == nil || list[i].CreatedAt.After(best.CreatedAt) {
			best = &list[i]
		}
	}
	return best
}
