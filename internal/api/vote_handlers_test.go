package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arabicbase/arabicbase/internal/api/dto"
	"github.com/arabicbase/arabicbase/internal/domain"
)

func globalEntry(t *testing.T, ts *testServer, auth, id string) domain.Entry {
	t.Helper()
	resp := ts.api.Get("/api/v1/entries?scope=global", auth)
	require.Equal(t, http.StatusOK, resp.Code)
	for _, e := range decode[dto.ListResponse[domain.Entry]](t, resp.Body.Bytes()).Items {
		if e.ID == id {
			return e
		}
	}
	t.Fatalf("entry %s not in global list", id)
	return domain.Entry{}
}

func TestVotes_SetSwitchAndRemove(t *testing.T) {
	ts := setupTestServer(t)
	alice := ts.bearer(t, "alice")
	bob := ts.bearer(t, "bob")

	resp := ts.api.Put("/api/v1/entries/e-1", alice, entryBody("مرحبا", "Hello", "Levantine"))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Put("/api/v1/votes/e-1", bob, dto.VoteRequest{Type: "up"})
	require.Equal(t, http.StatusNoContent, resp.Code, resp.Body.String())
	e := globalEntry(t, ts, bob, "e-1")
	assert.Equal(t, 1, e.Upvotes)
	assert.Equal(t, 0, e.Downvotes)

	resp = ts.api.Put("/api/v1/votes/e-1", bob, dto.VoteRequest{Type: "down"})
	require.Equal(t, http.StatusNoContent, resp.Code)
	e = globalEntry(t, ts, bob, "e-1")
	assert.Equal(t, 0, e.Upvotes)
	assert.Equal(t, 1, e.Downvotes)

	resp = ts.api.Get("/api/v1/votes", bob)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, map[string]domain.VoteType{"e-1": domain.VoteDown},
		decode[map[string]domain.VoteType](t, resp.Body.Bytes()))

	resp = ts.api.Delete("/api/v1/votes/e-1", bob)
	require.Equal(t, http.StatusNoContent, resp.Code)
	e = globalEntry(t, ts, bob, "e-1")
	assert.Equal(t, 0, e.Upvotes)
	assert.Equal(t, 0, e.Downvotes)

	resp = ts.api.Get("/api/v1/votes", bob)
	assert.Empty(t, decode[map[string]domain.VoteType](t, resp.Body.Bytes()))
}

func TestVotes_UnknownEntry(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Put("/api/v1/votes/missing", ts.bearer(t, "bob"), dto.VoteRequest{Type: "up"})
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "NOT_FOUND", decode[dto.ErrorResponse](t, resp.Body.Bytes()).Code)
}

func TestVotes_InvalidType(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Put("/api/v1/votes/e-1", ts.bearer(t, "bob"), dto.VoteRequest{Type: "sideways"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}
