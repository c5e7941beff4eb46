package api

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arabicbase/arabicbase/internal/api/dto"
	"github.com/arabicbase/arabicbase/internal/auth"
	"github.com/arabicbase/arabicbase/internal/domain"
	"github.com/arabicbase/arabicbase/internal/events"
	"github.com/arabicbase/arabicbase/internal/logger"
	"github.com/arabicbase/arabicbase/internal/store/sqlite"
)

const testKeyHex = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// testServer wraps the API server for testing.
type testServer struct {
	*Server
	api    humatest.TestAPI
	db     *sqlite.DB
	tokens *auth.TokenService
	broker *events.Broker
}

// setupTestServer creates a server over a fresh SQLite file.
func setupTestServer(t *testing.T, mutate ...func(*Options)) *testServer {
	t.Helper()

	log := logger.Discard()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), nil, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tokens, err := auth.NewTokenService(testKeyHex, time.Hour)
	require.NoError(t, err)

	broker := events.NewBroker(nil, log)
	ctx, cancel := context.WithCancel(context.Background())
	go broker.Start(ctx)
	t.Cleanup(cancel)

	opts := Options{
		DB:     db,
		Tokens: tokens,
		Broker: broker,
		Logger: log,
	}
	for _, m := range mutate {
		m(&opts)
	}
	s := NewServer(opts)
	t.Cleanup(s.Close)

	return &testServer{
		Server: s,
		api:    humatest.Wrap(t, s.API()),
		db:     db,
		tokens: tokens,
		broker: broker,
	}
}

// bearer returns an Authorization header for userID.
func (ts *testServer) bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := ts.tokens.Issue(userID)
	require.NoError(t, err)
	return "Authorization: Bearer " + token
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

func entryBody(term, translation, dialect string) dto.EntryRequest {
	return dto.EntryRequest{
		Term:        term,
		Translation: translation,
		Dialect:     dialect,
		Category:    "Greetings",
		Type:        string(domain.EntryTypeWord),
		Tags:        []string{"basic"},
	}
}

func TestEntries_RequireAuth(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/entries")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	body := decode[dto.ErrorResponse](t, resp.Body.Bytes())
	assert.Equal(t, "UNAUTHORIZED", body.Code)
}

func TestEntries_InvalidTokenIsRejected(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/entries", "Authorization: Bearer v4.local.garbage")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestEntries_SaveAndList(t *testing.T) {
	ts := setupTestServer(t)
	alice := ts.bearer(t, "alice")

	resp := ts.api.Put("/api/v1/entries/e-1", alice, entryBody("مرحبا", "Hello", "Levantine"))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	saved := decode[dto.SavedEntry](t, resp.Body.Bytes())
	assert.Equal(t, "e-1", saved.ID)
	assert.Equal(t, "alice", saved.OwnerID)
	assert.NotEmpty(t, saved.ConceptID)

	resp = ts.api.Get("/api/v1/entries?scope=mine", alice)
	require.Equal(t, http.StatusOK, resp.Code)
	list := decode[dto.ListResponse[domain.Entry]](t, resp.Body.Bytes())
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "مرحبا", list.Items[0].Term)
	assert.Equal(t, saved.ConceptID, list.Items[0].ConceptID)

	resp = ts.api.Get("/api/v1/entries?scope=mine", ts.bearer(t, "bob"))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 0, decode[dto.ListResponse[domain.Entry]](t, resp.Body.Bytes()).Total)

	resp = ts.api.Get("/api/v1/entries?scope=global", ts.bearer(t, "bob"))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 1, decode[dto.ListResponse[domain.Entry]](t, resp.Body.Bytes()).Total)
}

func TestEntries_EquivalentTranslationsShareConcept(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Put("/api/v1/entries/e-1", ts.bearer(t, "alice"), entryBody("مرحبا", "Hello", "Levantine"))
	require.Equal(t, http.StatusOK, resp.Code)
	first := decode[dto.SavedEntry](t, resp.Body.Bytes())

	resp = ts.api.Put("/api/v1/entries/e-2", ts.bearer(t, "bob"), entryBody("أهلا", "  hello ", "Egyptian"))
	require.Equal(t, http.StatusOK, resp.Code)
	second := decode[dto.SavedEntry](t, resp.Body.Bytes())

	assert.Equal(t, first.ConceptID, second.ConceptID)
}

func TestEntries_SaveForeignEntryForbidden(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Put("/api/v1/entries/e-1", ts.bearer(t, "alice"), entryBody("مرحبا", "Hello", "Levantine"))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Put("/api/v1/entries/e-1", ts.bearer(t, "bob"), entryBody("مرحبا", "Hi", "Levantine"))
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.api.Delete("/api/v1/entries/e-1", ts.bearer(t, "bob"))
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestEntries_RejectsInvalidBody(t *testing.T) {
	ts := setupTestServer(t)
	alice := ts.bearer(t, "alice")

	tests := []struct {
		name string
		body any
	}{
		{name: "unknown type", body: map[string]any{"term": "x", "type": "verb"}},
		{name: "missing term", body: map[string]any{"type": "word"}},
		{name: "unknown field", body: map[string]any{"term": "x", "type": "word", "upvotes": 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Put("/api/v1/entries/e-1", alice, tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
			assert.Equal(t, "VALIDATION", decode[dto.ErrorResponse](t, resp.Body.Bytes()).Code)
		})
	}
}

func TestEntries_Delete(t *testing.T) {
	ts := setupTestServer(t)
	alice := ts.bearer(t, "alice")

	resp := ts.api.Put("/api/v1/entries/e-1", alice, entryBody("مرحبا", "Hello", "Levantine"))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Delete("/api/v1/entries/e-1", alice)
	assert.Equal(t, http.StatusNoContent, resp.Code)

	// Unknown ids succeed.
	resp = ts.api.Delete("/api/v1/entries/e-1", alice)
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = ts.api.Get("/api/v1/entries", alice)
	assert.Equal(t, 0, decode[dto.ListResponse[domain.Entry]](t, resp.Body.Bytes()).Total)
}

func TestEntries_DeleteByCatalog(t *testing.T) {
	ts := setupTestServer(t)
	alice := ts.bearer(t, "alice")
	bob := ts.bearer(t, "bob")

	for id, dialect := range map[string]string{"a-1": "Levantine", "a-2": "Levantine", "a-3": "Gulf"} {
		resp := ts.api.Put("/api/v1/entries/"+id, alice, entryBody("كلمة "+id, "word "+id, dialect))
		require.Equal(t, http.StatusOK, resp.Code)
	}
	resp := ts.api.Put("/api/v1/entries/b-1", bob, entryBody("كلمة", "word", "Levantine"))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Delete("/api/v1/catalogs/dialect/entries?name=Levantine", alice)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 2, decode[dto.CountResponse](t, resp.Body.Bytes()).Count)

	resp = ts.api.Get("/api/v1/entries?scope=global", alice)
	assert.Equal(t, 2, decode[dto.ListResponse[domain.Entry]](t, resp.Body.Bytes()).Total)
}

func TestEntries_SavePublishesEvent(t *testing.T) {
	ts := setupTestServer(t)

	sub, err := ts.broker.Subscribe("alice")
	require.NoError(t, err)
	defer ts.broker.Unsubscribe(sub.ID)

	resp := ts.api.Put("/api/v1/entries/e-1", ts.bearer(t, "alice"), entryBody("مرحبا", "Hello", "Levantine"))
	require.Equal(t, http.StatusOK, resp.Code)

	select {
	case ev := <-sub.C:
		assert.Equal(t, events.EntryUpdated, ev.Type)
		data, ok := ev.Data.(events.EntryData)
		require.True(t, ok)
		assert.Equal(t, "e-1", data.Entry.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestProfile_DefaultsToFreeTier(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/profile", ts.bearer(t, "alice"))
	require.Equal(t, http.StatusOK, resp.Code)
	p := decode[dto.ProfileResponse](t, resp.Body.Bytes())
	assert.Equal(t, "alice", p.UserID)
	assert.False(t, p.IsPro)

	pro := domain.NewProfile("bob")
	pro.IsPro = true
	require.NoError(t, ts.db.SaveProfile(context.Background(), pro))

	resp = ts.api.Get("/api/v1/profile", ts.bearer(t, "bob"))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, decode[dto.ProfileResponse](t, resp.Body.Bytes()).IsPro)
}
