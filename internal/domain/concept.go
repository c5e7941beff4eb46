package domain

import "time"

// Concept is the canonical identity of a translation meaning.
// Name holds the normalized translation and is unique. Concepts are created
// lazily on first use and never deleted.
type Concept struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
