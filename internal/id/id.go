// Package id generates identifiers for catalog rows, concepts, and entries.
package id

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Generate creates a prefixed unique ID using NanoID
// Format: prefix-nanoid (e.g., "cpt-V1StGXR8_Z5jdHi6B-myT")
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// NewEntryID returns a random UUID for a vocabulary entry. Entry ids are
// minted before the first remote write.
func NewEntryID() string {
	return uuid.NewString()
}

// IsEntryID reports whether s parses as an entry UUID.
func IsEntryID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
