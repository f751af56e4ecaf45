package store

import "time"

// PlayRecord is the persisted outcome of one finished session: one row per
// (player, calendar day), written exactly once per finalize and overwritten
// on retry.
type PlayRecord struct {
	UserID         string    `json:"user_id"`
	Email          string    `json:"email"`
	Score          int64     `json:"score"`
	ElapsedSeconds int64     `json:"elapsed_seconds"`
	PlayDate       string    `json:"play_date"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}