package domain

import "time"

// VoteType is the direction of a vote. The zero value means no vote.
type VoteType string

const (
	VoteNone VoteType = ""
	VoteUp   VoteType = "up"
	VoteDown VoteType = "down"
)

// Valid reports whether v is a castable vote direction.
func (v VoteType) Valid() bool {
	return v == VoteUp || v == VoteDown
}

// Opposite returns the other direction, or VoteNone for VoteNone.
func (v VoteType) Opposite() VoteType {
	switch v {
	case VoteUp:
		return VoteDown
	case VoteDown:
		return VoteUp
	default:
		return VoteNone
	}
}

// Vote is the single vote a user holds on an entry.
// At most one row exists per (UserID, EntryID).
type Vote struct {
	UserID    string    `json:"user_id"`
	EntryID   string    `json:"entry_id"`
	Type      VoteType  `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
