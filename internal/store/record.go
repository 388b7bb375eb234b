package store

import "github.com/Rrens/sommelier/internal/domain"

// UserRecord is a row of the users collection
type UserRecord struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt Timestamp `json:"createdAt"`
}

// MessageRecord is a message embedded in a ConversationRecord. ID is set once
// the server has assigned one; LocalID is the client-generated id used before.
type MessageRecord struct {
	ID             *int64             `json:"id,omitempty"`
	LocalID        string             `json:"localId,omitempty"`
	Content        string             `json:"content"`
	Role           domain.MessageRole `json:"role"`
	ConversationID int64              `json:"conversationId"`
	CreatedAt      Timestamp          `json:"createdAt"`
}

// Metadata carries the optional fields conversations are filtered by
type Metadata struct {
	WineID string `json:"wineId,omitempty"`
}

// ConversationRecord is a row of the conversations collection
type ConversationRecord struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"userId"`
	Title        string          `json:"title"`
	CreatedAt    Timestamp       `json:"createdAt"`
	LastActivity Timestamp       `json:"lastActivity"`
	Messages     []MessageRecord `json:"messages"`
	Metadata     *Metadata       `json:"metadata,omitempty"`
}

// WineID returns the wine scope of the conversation, "" when unscoped
func (c *ConversationRecord) WineID() string {
	if c.Metadata == nil {
		return ""
	}
	return c.Metadata.WineID
}

// MessageKey locates one embedded message by id, never by position
type MessageKey struct {
	ServerID int64
	LocalID  string
}

// Matches reports whether m is the message the key points at
func (k MessageKey) Matches(m MessageRecord) bool {
	if k.ServerID != 0 && m.ID != nil && *m.ID == k.ServerID {
		return true
	}
	return k.LocalID != "" && m.LocalID == k.LocalID
}

// IsZero reports whether the key identifies nothing
func (k MessageKey) IsZero() bool {
	return k.ServerID == 0 && k.LocalID == ""
}
