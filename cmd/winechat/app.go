package main

import (
	"context"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/sommelier/internal/config"
	"github.com/Rrens/sommelier/internal/events"
	"github.com/Rrens/sommelier/internal/prefs"
	"github.com/Rrens/sommelier/internal/remote"
	"github.com/Rrens/sommelier/internal/repository/redis"
	"github.com/Rrens/sommelier/internal/session"
	"github.com/Rrens/sommelier/internal/store/sqlite"
)

// app holds everything one winechat invocation opens
type app struct {
	manager *session.Manager
	bus     *events.Bus
	closers []io.Closer
}

// openApp wires the session. A store or slot that cannot be opened degrades
// the session instead of failing the command.
func openApp(ctx context.Context, cfg *config.Config, wineID string, traceEvents bool) *app {
	a := &app{}

	slot := openSlot(ctx, cfg)
	a.closers = append(a.closers, slot)

	local := sqlite.New(cfg.Store.Path, slot)
	if err := local.Open(ctx); err != nil {
		// every store call retries the open, failures surface as LocalSaveError
		log.Warn().Err(err).Str("path", cfg.Store.Path).Msg("conversation store unavailable, running without local history")
	}
	a.closers = append(a.closers, local)

	var mirror remote.Mirror = remote.Offline{}
	if cfg.Remote.BaseURL != "" {
		client := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Token, cfg.Remote.Timeout)
		a.closers = append(a.closers, client)
		mirror = client
	} else {
		log.Debug().Msg("remote.base_url is empty, running offline")
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.Events.Enabled {
		a.bus = events.NewBus(cfg.Events.Topic, traceEvents)
		publisher = a.bus
		if traceEvents {
			if err := a.traceEvents(ctx); err != nil {
				log.Warn().Err(err).Msg("failed to subscribe to state events")
			}
		}
	}

	a.manager = session.New(session.Options{
		WineID:        wineID,
		Sources:       session.NewSources(local, mirror),
		Slot:          slot,
		Events:        publisher,
		RemoteTimeout: cfg.Remote.Timeout,
	})
	return a
}

// openSlot opens the configured key-value backend, falling back to memory
func openSlot(ctx context.Context, cfg *config.Config) prefs.Slot {
	switch cfg.Prefs.Backend {
	case "bolt":
		slot, err := prefs.OpenBolt(cfg.Prefs.Path)
		if err == nil {
			return slot
		}
		log.Warn().Err(err).Str("path", cfg.Prefs.Path).Msg("bolt slot unavailable, using memory")
	case "redis":
		client, err := redis.NewClient(ctx, cfg.Redis)
		if err == nil {
			return redis.NewSlot(client)
		}
		log.Warn().Err(err).Msg("redis slot unavailable, using memory")
	case "memory", "":
	default:
		log.Warn().Str("backend", cfg.Prefs.Backend).Msg("unknown prefs backend, using memory")
	}
	return prefs.NewMemory()
}

func (a *app) traceEvents(ctx context.Context) error {
	stream, err := a.bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	go func() {
		for ev := range stream {
			log.Info().
				Str("scope", ev.Scope).
				Str("reason", string(ev.Reason)).
				Int64("conversation_id", ev.CurrentConversationID).
				Int("messages", ev.MessageCount).
				Int("conversations", ev.ConversationCount).
				Msg("state changed")
		}
	}()
	return nil
}

// ready reconciles the session and waits until it has settled
func (a *app) ready(ctx context.Context) {
	a.manager.Start(ctx)
	a.manager.Wait()
}

// Close closes the session first so queued writes reach the store
func (a *app) Close() {
	if a.manager != nil {
		_ = a.manager.Close()
	}
	if a.bus != nil {
		_ = a.bus.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close resource")
		}
	}
}
