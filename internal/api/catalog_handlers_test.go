package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arabicbase/arabicbase/internal/api/dto"
)

func TestSubscriptions_Lifecycle(t *testing.T) {
	ts := setupTestServer(t)
	alice := ts.bearer(t, "alice")
	bob := ts.bearer(t, "bob")

	resp := ts.api.Post("/api/v1/subscriptions/dialect", alice, dto.CatalogRequest{Name: "Levantine"})
	require.Equal(t, http.StatusNoContent, resp.Code, resp.Body.String())

	// Subscribing twice is not an error.
	resp = ts.api.Post("/api/v1/subscriptions/dialect", alice, dto.CatalogRequest{Name: "Levantine"})
	require.Equal(t, http.StatusNoContent, resp.Code)

	resp = ts.api.Post("/api/v1/subscriptions/dialect", bob, dto.CatalogRequest{Name: "Egyptian"})
	require.Equal(t, http.StatusNoContent, resp.Code)

	resp = ts.api.Get("/api/v1/subscriptions/dialect", alice)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []string{"Levantine"}, decode[dto.ListResponse[string]](t, resp.Body.Bytes()).Items)

	resp = ts.api.Get("/api/v1/catalogs/dialect", alice)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []string{"Egyptian", "Levantine"}, decode[dto.ListResponse[string]](t, resp.Body.Bytes()).Items)

	resp = ts.api.Delete("/api/v1/subscriptions/dialect?name=Levantine", alice)
	require.Equal(t, http.StatusNoContent, resp.Code)

	resp = ts.api.Get("/api/v1/subscriptions/dialect", alice)
	assert.Empty(t, decode[dto.ListResponse[string]](t, resp.Body.Bytes()).Items)

	// The global item outlives the subscription.
	resp = ts.api.Get("/api/v1/catalogs/dialect", alice)
	assert.Contains(t, decode[dto.ListResponse[string]](t, resp.Body.Bytes()).Items, "Levantine")
}

func TestSubscriptions_UnknownKind(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/subscriptions/region", ts.bearer(t, "alice"))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestConcepts_List(t *testing.T) {
	ts := setupTestServer(t)
	alice := ts.bearer(t, "alice")

	for id, tr := range map[string]string{"e-1": "Hello", "e-2": "Thanks", "e-3": "hello"} {
		resp := ts.api.Put("/api/v1/entries/"+id, alice, entryBody("كلمة "+id, tr, "Levantine"))
		require.Equal(t, http.StatusOK, resp.Code)
	}

	resp := ts.api.Get("/api/v1/concepts", alice)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []string{"hello", "thanks"}, decode[dto.ListResponse[string]](t, resp.Body.Bytes()).Items)
}
