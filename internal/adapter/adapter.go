// Package adapter converts between the embedded store's record shapes, the
// remote API's wire shapes and the in-memory domain model. Every function is
// total and returns fresh copies.
package adapter

import (
	"github.com/Rrens/sommelier/internal/domain"
	"github.com/Rrens/sommelier/internal/store"
)

// ToMessage converts a stored message to its in-memory form. A record without
// any id maps to domain.Unassigned; an unparseable timestamp maps to the zero time.
func ToMessage(rec store.MessageRecord) domain.Message {
	createdAt, _ := rec.CreatedAt.Instant()
	return domain.Message{
		ID:             messageID(rec),
		ConversationID: rec.ConversationID,
		Role:           rec.Role,
		Content:        rec.Content,
		CreatedAt:      createdAt,
	}
}

// ToMessages converts a stored message list, never returning nil
func ToMessages(recs []store.MessageRecord) []domain.Message {
	msgs := make([]domain.Message, 0, len(recs))
	for _, rec := range recs {
		msgs = append(msgs, ToMessage(rec))
	}
	return msgs
}

// FromMessage converts an in-memory message to the stored form
func FromMessage(msg domain.Message) store.MessageRecord {
	rec := store.MessageRecord{
		Content:        msg.Content,
		Role:           msg.Role,
		ConversationID: msg.ConversationID,
	}
	if !msg.CreatedAt.IsZero() {
		rec.CreatedAt = store.TimestampOf(msg.CreatedAt)
	}
	switch id := msg.ID.(type) {
	case domain.Committed:
		serverID := id.ServerID
		rec.ID = &serverID
	case domain.Pending:
		rec.LocalID = id.LocalID
	}
	return rec
}

// FromMessages converts an in-memory message list, never returning nil
func FromMessages(msgs []domain.Message) []store.MessageRecord {
	recs := make([]store.MessageRecord, 0, len(msgs))
	for _, msg := range msgs {
		recs = append(recs, FromMessage(msg))
	}
	return recs
}

// ToConversation converts a stored conversation to its in-memory form
func ToConversation(rec store.ConversationRecord) domain.Conversation {
	createdAt, _ := rec.CreatedAt.Instant()
	lastActivity, _ := rec.LastActivity.Instant()
	return domain.Conversation{
		ID:           rec.ID,
		UserID:       rec.UserID,
		Title:        rec.Title,
		CreatedAt:    createdAt,
		LastActivity: lastActivity,
		Messages:     ToMessages(rec.Messages),
		WineID:       rec.WineID(),
	}
}

// FromConversation converts an in-memory conversation to the stored form
func FromConversation(conv domain.Conversation) store.ConversationRecord {
	rec := store.ConversationRecord{
		ID:       conv.ID,
		UserID:   conv.UserID,
		Title:    conv.Title,
		Messages: FromMessages(conv.Messages),
	}
	if !conv.CreatedAt.IsZero() {
		rec.CreatedAt = store.TimestampOf(conv.CreatedAt)
	}
	if !conv.LastActivity.IsZero() {
		rec.LastActivity = store.TimestampOf(conv.LastActivity)
	}
	if conv.WineID != "" {
		rec.Metadata = &store.Metadata{WineID: conv.WineID}
	}
	return rec
}

// ToSummary converts a stored conversation to the switcher shape
func ToSummary(rec store.ConversationRecord) domain.ConversationSummary {
	createdAt, _ := rec.CreatedAt.Instant()
	return domain.ConversationSummary{
		ID:        rec.ID,
		Title:     rec.Title,
		CreatedAt: createdAt,
		WineID:    rec.WineID(),
	}
}

// ToSummaries converts stored conversations, never returning nil
func ToSummaries(recs []store.ConversationRecord) []domain.ConversationSummary {
	out := make([]domain.ConversationSummary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, ToSummary(rec))
	}
	return out
}

// FromRemoteMessage converts a message served by the remote API
func FromRemoteMessage(rm domain.RemoteMessage) domain.Message {
	msg := domain.Message{
		ID:             domain.Unassigned,
		ConversationID: rm.ConversationID,
		Role:           rm.Role,
		Content:        rm.Content,
		CreatedAt:      rm.CreatedAt,
	}
	if rm.ID != 0 {
		msg.ID = domain.Committed{ServerID: rm.ID}
	}
	return msg
}

// FromRemoteMessages converts a remote message list, never returning nil
func FromRemoteMessages(rms []domain.RemoteMessage) []domain.Message {
	msgs := make([]domain.Message, 0, len(rms))
	for _, rm := range rms {
		msgs = append(msgs, FromRemoteMessage(rm))
	}
	return msgs
}

// FromRemoteConversation converts a remote list item to the switcher shape
func FromRemoteConversation(rc domain.RemoteConversation) domain.ConversationSummary {
	return domain.ConversationSummary{
		ID:        rc.ID,
		Title:     rc.Title,
		CreatedAt: rc.CreatedAt,
		WineID:    rc.WineID,
	}
}

// FromRemoteConversations converts a remote list, never returning nil
func FromRemoteConversations(rcs []domain.RemoteConversation) []domain.ConversationSummary {
	out := make([]domain.ConversationSummary, 0, len(rcs))
	for _, rc := range rcs {
		out = append(out, FromRemoteConversation(rc))
	}
	return out
}

// ToRemoteMessageCreate builds the POST /messages body for msg
func ToRemoteMessageCreate(msg domain.Message, wineID string) domain.RemoteMessageCreate {
	return domain.RemoteMessageCreate{
		ConversationID: msg.ConversationID,
		Role:           msg.Role,
		Content:        msg.Content,
		WineID:         wineID,
	}
}

// RemoteToRecord builds a stored conversation from a remote conversation and
// its messages, keeping the remote ids
func RemoteToRecord(rc domain.RemoteConversation, rms []domain.RemoteMessage) store.ConversationRecord {
	rec := store.ConversationRecord{
		ID:       rc.ID,
		Title:    rc.Title,
		Messages: FromMessages(FromRemoteMessages(rms)),
	}
	if !rc.CreatedAt.IsZero() {
		rec.CreatedAt = store.TimestampOf(rc.CreatedAt)
	}
	rec.LastActivity = rec.CreatedAt
	for _, m := range rec.Messages {
		if m.CreatedAt.After(rec.LastActivity) {
			rec.LastActivity = m.CreatedAt
		}
	}
	if rc.WineID != "" {
		rec.Metadata = &store.Metadata{WineID: rc.WineID}
	}
	return rec
}

func messageID(rec store.MessageRecord) domain.MessageID {
	switch {
	case rec.ID != nil:
		return domain.Committed{ServerID: *rec.ID}
	case rec.LocalID != "":
		return domain.Pending{LocalID: rec.LocalID}
	default:
		return domain.Unassigned
	}
}
