package domain

import "time"

// DefaultFreeTierLimit is the personal entry cap for accounts without the unlimited tier.
const DefaultFreeTierLimit = 100

// Profile carries the billing tier of a user.
type Profile struct {
	UserID    string    `json:"user_id"`
	IsPro     bool      `json:"is_pro"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewProfile creates a free-tier profile for a user.
func NewProfile(userID string) *Profile {
	now := time.Now()
	return &Profile{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CanAddEntry reports whether a user holding count personal entries may add another.
func (p *Profile) CanAddEntry(count, freeLimit int) bool {
	if p != nil && p.IsPro {
		return true
	}
	return count < freeLimit
}
