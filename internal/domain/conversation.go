package domain

import "time"

// Conversation is one chat thread, optionally scoped to a wine
type Conversation struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"userId"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
	Messages     []Message `json:"messages"`
	WineID       string    `json:"wineId,omitempty"`
}

// ConversationSummary is the list-view shape shown in a conversation switcher
type ConversationSummary struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	WineID    string    `json:"wineId,omitempty"`
}
