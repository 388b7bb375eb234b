package domain

import "time"

// User is the single anonymous identity of one local profile
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}
