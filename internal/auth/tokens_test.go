package auth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestTokenService_IssueAndVerify(t *testing.T) {
	s, err := NewTokenService(testKey, time.Hour)
	require.NoError(t, err)

	token, err := s.Issue("user-a")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "v4.local."))

	claims, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-a", claims.UserID)
	assert.Equal(t, "user-a", claims.Subject)
	assert.Equal(t, tokenAudience, claims.Audience)
	assert.True(t, strings.HasPrefix(claims.TokenID, "tok-"))
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.Expiration, time.Minute)
}

func TestTokenService_RejectsForeignKey(t *testing.T) {
	a, err := NewTokenService(testKey, time.Hour)
	require.NoError(t, err)
	b, err := NewTokenService(strings.Repeat("ab", 32), time.Hour)
	require.NoError(t, err)

	token, err := a.Issue("user-a")
	require.NoError(t, err)

	_, err = b.Verify(token)
	assert.Error(t, err)
	_, err = a.Verify("v4.local.garbage")
	assert.Error(t, err)
}

func TestTokenService_RejectsExpired(t *testing.T) {
	s, err := NewTokenService(testKey, time.Millisecond)
	require.NoError(t, err)

	token, err := s.Issue("user-a")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	_, err = s.Verify(token)
	assert.Error(t, err)
}

func TestNewTokenService_InvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		duration time.Duration
	}{
		{"short key", "abcd", time.Hour},
		{"not hex", strings.Repeat("zz", 32), time.Hour},
		{"zero duration", testKey, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTokenService(tt.key, tt.duration)
			assert.Error(t, err)
		})
	}

	s, err := NewTokenService(testKey, time.Hour)
	require.NoError(t, err)
	_, err = s.Issue("")
	assert.Error(t, err)
}

func TestLoadOrGenerateKey(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	first, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Len(t, first, keyHexLength)

	second, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	info, err := os.Stat(filepath.Join(dir, "auth.key"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "auth.key"), []byte("short"), 0o600))
	_, err = LoadOrGenerateKey(dir)
	assert.Error(t, err)
}
