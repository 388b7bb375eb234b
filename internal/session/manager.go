// Package session owns the in-memory conversation state a chat UI reads from
// and keeps it in step with the embedded store and the remote mirror.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/huandu/go-clone"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/sommelier/internal/domain"
	"github.com/Rrens/sommelier/internal/events"
	"github.com/Rrens/sommelier/internal/prefs"
	"github.com/Rrens/sommelier/internal/remote"
	"github.com/Rrens/sommelier/internal/store"
)

// ErrClosed is returned by operations on a closed manager
var ErrClosed = errors.New("session closed")

const (
	defaultTitle         = "New Chat"
	defaultRemoteTimeout = 10 * time.Second
	writeQueueSize       = 64
)

// Sources is where conversations come from, in precedence order: the local
// store is authoritative for reload, the remote is best effort.
type Sources interface {
	Local() store.Store
	Remote() remote.Mirror
}

type sources struct {
	local  store.Store
	remote remote.Mirror
}

func (s sources) Local() store.Store    { return s.local }
func (s sources) Remote() remote.Mirror { return s.remote }

// NewSources pairs a local store with a remote mirror. A nil mirror runs offline.
func NewSources(local store.Store, mirror remote.Mirror) Sources {
	if mirror == nil {
		mirror = remote.Offline{}
	}
	return sources{local: local, remote: mirror}
}

// Options configures a Manager. Sources is required.
type Options struct {
	WineID        string
	Sources       Sources
	Slot          prefs.Slot
	Events        events.Publisher
	Now           func() time.Time
	RemoteTimeout time.Duration
}

// State is what the UI renders
type State struct {
	CurrentConversationID int64
	Messages              []domain.Message
	Conversations         []domain.ConversationSummary
	LocalSaveError        error
}

// Manager is the session for one wine scope
type Manager struct {
	wineID        string
	cacheKey      string
	local         store.Store
	remote        remote.Mirror
	slot          prefs.Slot
	events        events.Publisher
	now           func() time.Time
	remoteTimeout time.Duration

	alive  context.Context
	cancel context.CancelFunc

	mu         sync.RWMutex
	state      State
	generation uint64

	lifeMu     sync.RWMutex
	closed     bool
	queue      chan writeOp
	writerDone chan struct{}
	bg         sync.WaitGroup

	startOnce sync.Once
	closeOnce sync.Once
}

// New creates a manager and starts its local write queue. Call Start to
// reconcile with the stores and Close when done.
func New(opts Options) *Manager {
	if opts.Slot == nil {
		opts.Slot = prefs.NewMemory()
	}
	if opts.Events == nil {
		opts.Events = events.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	clock := opts.Now
	// the embedded store keeps native times at millisecond precision
	now := func() time.Time { return clock().Truncate(time.Millisecond) }
	if opts.RemoteTimeout <= 0 {
		opts.RemoteTimeout = defaultRemoteTimeout
	}

	alive, cancel := context.WithCancel(context.Background())
	m := &Manager{
		wineID:        opts.WineID,
		cacheKey:      prefs.ConversationKey(opts.WineID),
		local:         opts.Sources.Local(),
		remote:        opts.Sources.Remote(),
		slot:          opts.Slot,
		events:        opts.Events,
		now:           now,
		remoteTimeout: opts.RemoteTimeout,
		alive:         alive,
		cancel:        cancel,
		state: State{
			Messages:      []domain.Message{},
			Conversations: []domain.ConversationSummary{},
		},
		queue:      make(chan writeOp, writeQueueSize),
		writerDone: make(chan struct{}),
	}
	go m.runWriter()
	return m
}

// Close drops every late result, lets queued local writes finish and waits
// for background work. It is safe to call more than once.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.cancel()

		m.lifeMu.Lock()
		m.closed = true
		close(m.queue)
		m.lifeMu.Unlock()

		<-m.writerDone
		m.bg.Wait()
		log.Debug().Str("scope", m.cacheKey).Msg("session closed")
	})
	return nil
}

// Wait blocks until background work and queued local writes have settled.
// It must not race with new operations on the same manager.
func (m *Manager) Wait() {
	m.bg.Wait()
	m.flush()
}

// Snapshot returns a deep copy of the current state
func (m *Manager) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return State{
		CurrentConversationID: m.state.CurrentConversationID,
		Messages:              clone.Clone(m.state.Messages).([]domain.Message),
		Conversations:         clone.Clone(m.state.Conversations).([]domain.ConversationSummary),
		LocalSaveError:        m.state.LocalSaveError,
	}
}

// CurrentConversationID returns the active conversation id, 0 when none
func (m *Manager) CurrentConversationID() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.CurrentConversationID
}

// Messages returns a copy of the visible transcript
func (m *Manager) Messages() []domain.Message {
	return m.Snapshot().Messages
}

// Conversations returns a copy of the conversation list for the scope
func (m *Manager) Conversations() []domain.ConversationSummary {
	return m.Snapshot().Conversations
}

// goBackground runs fn on the liveness context unless the manager is closed
func (m *Manager) goBackground(fn func(ctx context.Context)) bool {
	m.lifeMu.RLock()
	if m.closed {
		m.lifeMu.RUnlock()
		return false
	}
	m.bg.Add(1)
	m.lifeMu.RUnlock()

	go func() {
		defer m.bg.Done()
		fn(m.alive)
	}()
	return true
}

// apply mutates state when the manager is alive and gen is still the current
// generation. It reports whether the change was applied.
func (m *Manager) apply(gen uint64, reason events.Reason, fn func(*State)) bool {
	m.mu.Lock()
	if m.alive.Err() != nil || gen != m.generation {
		m.mu.Unlock()
		return false
	}
	fn(&m.state)
	ev := m.eventLocked(reason)
	m.mu.Unlock()

	m.publish(ev)
	return true
}

// applyAlive is apply without the generation check
func (m *Manager) applyAlive(reason events.Reason, fn func(*State)) bool {
	m.mu.Lock()
	if m.alive.Err() != nil {
		m.mu.Unlock()
		return false
	}
	fn(&m.state)
	ev := m.eventLocked(reason)
	m.mu.Unlock()

	m.publish(ev)
	return true
}

// switchContext bumps the generation and resets the transcript to the given
// conversation. It returns the new generation.
func (m *Manager) switchContext(id int64) (uint64, bool) {
	m.mu.Lock()
	if m.alive.Err() != nil {
		m.mu.Unlock()
		return 0, false
	}
	m.generation++
	gen := m.generation
	m.state.CurrentConversationID = id
	m.state.Messages = []domain.Message{}
	ev := m.eventLocked(events.ReasonCurrentChanged)
	m.mu.Unlock()

	m.publish(ev)
	return gen, true
}

func (m *Manager) eventLocked(reason events.Reason) events.StateChanged {
	return events.StateChanged{
		Scope:                 m.wineID,
		Reason:                reason,
		CurrentConversationID: m.state.CurrentConversationID,
		MessageCount:          len(m.state.Messages),
		ConversationCount:     len(m.state.Conversations),
		At:                    m.now(),
	}
}

func (m *Manager) publish(ev events.StateChanged) {
	if err := m.events.PublishStateChanged(ev); err != nil {
		log.Debug().Err(err).Str("reason", string(ev.Reason)).Msg("failed to publish state event")
	}
}

// setSaveError records the outcome of a local durability write
func (m *Manager) setSaveError(err error) {
	reason := events.ReasonLocalSaveRecovered
	if err != nil {
		reason = events.ReasonLocalSaveFailed
	}
	m.mu.RLock()
	unchanged := err == nil && m.state.LocalSaveError == nil
	m.mu.RUnlock()
	if unchanged {
		return
	}
	m.applyAlive(reason, func(s *State) { s.LocalSaveError = err })
}

func (m *Manager) cacheCurrent(ctx context.Context, id int64) {
	if err := prefs.SetInt64(ctx, m.slot, m.cacheKey, id); err != nil {
		log.Warn().Err(err).Str("key", m.cacheKey).Int64("conversation_id", id).Msg("failed to cache current conversation")
	}
}

// mergeLoaded returns loaded followed by any in-memory message it lacks, so a
// load never hides an optimistic append
func mergeLoaded(loaded, current []domain.Message) []domain.Message {
	merged := append([]domain.Message{}, loaded...)
	for _, msg := range current {
		found := false
		for _, l := range loaded {
			if domain.SameMessageID(l.ID, msg.ID) {
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, msg)
		}
	}
	return merged
}
