package domain

import (
	"strconv"
	"time"
)

// MessageRole represents the sender of a message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Valid reports whether r is one of the two known roles
func (r MessageRole) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// MessageID identifies a message either by a client-generated local id,
// before the server has seen it, or by the server-assigned numeric id.
// The set of implementations is closed: Pending and Committed.
type MessageID interface {
	isMessageID()
	String() string
}

// Pending is a message known only locally. An empty LocalID is the
// unassigned sentinel used for stored messages that carry no id at all.
type Pending struct {
	LocalID string
}

// Committed is a message that has a server-assigned id
type Committed struct {
	ServerID int64
}

func (Pending) isMessageID()   {}
func (Committed) isMessageID() {}

func (p Pending) String() string {
	if p.LocalID == "" {
		return "unassigned"
	}
	return "local:" + p.LocalID
}

func (c Committed) String() string {
	return "server:" + strconv.FormatInt(c.ServerID, 10)
}

// Unassigned is the id given to messages that have neither a local nor a server id
var Unassigned MessageID = Pending{}

// SameMessageID reports whether a and b identify the same message.
// Two unassigned ids never match, since they carry no identity.
func SameMessageID(a, b MessageID) bool {
	switch x := a.(type) {
	case Pending:
		y, ok := b.(Pending)
		return ok && x.LocalID != "" && x.LocalID == y.LocalID
	case Committed:
		y, ok := b.(Committed)
		return ok && x.ServerID == y.ServerID
	}
	return false
}

// Message represents one turn in a conversation
type Message struct {
	ID             MessageID   `json:"-"`
	ConversationID int64       `json:"conversationId"`
	Role           MessageRole `json:"role"`
	Content        string      `json:"content"`
	CreatedAt      time.Time   `json:"createdAt"`
}
