package dto

import "time"

// ProfileResponse is the caller's tier.
type ProfileResponse struct {
	UserID    string    `json:"user_id" doc:"User ID"`
	IsPro     bool      `json:"is_pro" doc:"Whether the unlimited tier is active"`
	CreatedAt time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt time.Time `json:"updated_at" doc:"Last update time"`
}
