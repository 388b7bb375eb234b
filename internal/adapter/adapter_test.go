package adapter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/sommelier/internal/domain"
	"github.com/Rrens/sommelier/internal/store"
)

func TestToMessage_IDs(t *testing.T) {
	serverID := int64(12)

	committed := ToMessage(store.MessageRecord{ID: &serverID, LocalID: "ignored"})
	assert.Equal(t, domain.Committed{ServerID: 12}, committed.ID)

	pending := ToMessage(store.MessageRecord{LocalID: "abc"})
	assert.Equal(t, domain.Pending{LocalID: "abc"}, pending.ID)

	unassigned := ToMessage(store.MessageRecord{Content: "no id"})
	assert.Equal(t, domain.Unassigned, unassigned.ID)
}

func TestToMessage_Timestamps(t *testing.T) {
	instant := time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

	fromText := ToMessage(store.MessageRecord{CreatedAt: store.TimestampText("2026-05-04T10:30:00Z")})
	assert.True(t, instant.Equal(fromText.CreatedAt))

	fromTime := ToMessage(store.MessageRecord{CreatedAt: store.TimestampOf(instant)})
	assert.True(t, instant.Equal(fromTime.CreatedAt))

	garbage := ToMessage(store.MessageRecord{CreatedAt: store.TimestampText("yesterday-ish")})
	assert.True(t, garbage.CreatedAt.IsZero())
}

func TestMessageRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		rec  store.MessageRecord
	}{
		{
			name: "text timestamp with local id",
			rec: store.MessageRecord{
				LocalID:        "loc-1",
				Content:        "Notes of cherry and tar",
				Role:           domain.RoleAssistant,
				ConversationID: 7,
				CreatedAt:      store.TimestampText("2026-02-14T19:00:00.250+01:00"),
			},
		},
		{
			name: "native timestamp without id",
			rec: store.MessageRecord{
				Content:        "Pair it with what?",
				Role:           domain.RoleUser,
				ConversationID: 3,
				CreatedAt:      store.TimestampOf(time.Date(2026, 2, 14, 18, 0, 0, 0, time.UTC)),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			back := FromMessage(ToMessage(tt.rec))

			assert.Equal(t, tt.rec.Content, back.Content)
			assert.Equal(t, tt.rec.Role, back.Role)
			assert.Equal(t, tt.rec.ConversationID, back.ConversationID)
			assert.Equal(t, tt.rec.LocalID, back.LocalID)

			want, ok := tt.rec.CreatedAt.Instant()
			require.True(t, ok)
			got, ok := back.CreatedAt.Instant()
			require.True(t, ok)
			assert.True(t, want.Equal(got))
		})
	}
}

func TestToConversation_EmptyMessages(t *testing.T) {
	conv := ToConversation(store.ConversationRecord{ID: 1, Title: "New Chat"})
	assert.NotNil(t, conv.Messages)
	assert.Empty(t, conv.Messages)
	assert.Equal(t, "", conv.WineID)

	back := FromConversation(conv)
	assert.NotNil(t, back.Messages)
	assert.Nil(t, back.Metadata)
}

func TestConversationRoundTrip(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := store.ConversationRecord{
		ID:           9,
		UserID:       1,
		Title:        "Chat about Chianti",
		CreatedAt:    store.TimestampOf(created),
		LastActivity: store.TimestampText("2026-01-03T00:00:00Z"),
		Messages: []store.MessageRecord{
			{LocalID: "a", Content: "hi", Role: domain.RoleUser, ConversationID: 9},
		},
		Metadata: &store.Metadata{WineID: "wine_7"},
	}

	conv := ToConversation(rec)
	assert.Equal(t, "wine_7", conv.WineID)
	require.Len(t, conv.Messages, 1)

	back := FromConversation(conv)
	assert.Equal(t, rec.ID, back.ID)
	assert.Equal(t, rec.Title, back.Title)
	assert.Equal(t, "wine_7", back.WineID())
	require.Len(t, back.Messages, 1)
	assert.Equal(t, "a", back.Messages[0].LocalID)

	// conversions do not share the message slice
	conv.Messages[0].Content = "changed"
	assert.Equal(t, "hi", rec.Messages[0].Content)
}

func TestFromRemote(t *testing.T) {
	created := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	msgs := FromRemoteMessages([]domain.RemoteMessage{
		{ID: 5, Content: "hello", Role: domain.RoleUser, ConversationID: 2, CreatedAt: created},
		{Content: "echo", Role: domain.RoleAssistant, ConversationID: 2},
	})
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.Committed{ServerID: 5}, msgs[0].ID)
	assert.Equal(t, domain.Unassigned, msgs[1].ID)

	assert.NotNil(t, FromRemoteMessages(nil))
	assert.NotNil(t, FromRemoteConversations(nil))

	summaries := FromRemoteConversations([]domain.RemoteConversation{{ID: 2, Title: "t", CreatedAt: created, WineID: "wine_1"}})
	require.Len(t, summaries, 1)
	assert.Equal(t, "wine_1", summaries[0].WineID)
}

func TestRemoteToRecord(t *testing.T) {
	created := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	later := created.Add(time.Hour)

	rec := RemoteToRecord(
		domain.RemoteConversation{ID: 40, Title: "Synced", CreatedAt: created, WineID: "wine_7"},
		[]domain.RemoteMessage{
			{ID: 1, Content: "q", Role: domain.RoleUser, ConversationID: 40, CreatedAt: created},
			{ID: 2, Content: "a", Role: domain.RoleAssistant, ConversationID: 40, CreatedAt: later},
		},
	)

	assert.Equal(t, int64(40), rec.ID)
	assert.Equal(t, "wine_7", rec.WineID())
	require.Len(t, rec.Messages, 2)
	require.NotNil(t, rec.Messages[1].ID)
	assert.Equal(t, int64(2), *rec.Messages[1].ID)

	last, ok := rec.LastActivity.Instant()
	require.True(t, ok)
	assert.True(t, later.Equal(last))
}

func TestToRemoteMessageCreate(t *testing.T) {
	body := ToRemoteMessageCreate(domain.Message{
		ID:             domain.Pending{LocalID: "x"},
		ConversationID: 4,
		Role:           domain.RoleUser,
		Content:        "Is this vintage ready?",
	}, "wine_9")

	assert.Equal(t, domain.RemoteMessageCreate{
		ConversationID: 4,
		Role:           domain.RoleUser,
		Content:        "Is this vintage ready?",
		WineID:         "wine_9",
	}, body)
}
