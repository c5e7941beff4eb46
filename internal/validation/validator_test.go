package validation_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arabicbase/arabicbase/internal/domain"
	domainerrors "github.com/arabicbase/arabicbase/internal/errors"
	"github.com/arabicbase/arabicbase/internal/validation"
)

func validEntry() *domain.Entry {
	return &domain.Entry{
		ID:          "3f0e1a52-5c1b-4d8e-9a57-1c2b3d4e5f60",
		Term:        "مرحبا",
		Translation: "hello",
		Dialect:     "Levantine",
		Type:        domain.EntryTypeWord,
		Tags:        []string{"greeting"},
	}
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())
	details, ok := domainErr.Details.(map[string]string)
	require.True(t, ok)
	return details
}

func TestValidateEntry_Valid(t *testing.T) {
	assert.NoError(t, validation.New().ValidateEntry(validEntry()))
}

func TestValidateEntry_Errors(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*domain.Entry)
		wantField string
	}{
		{"blank term", func(e *domain.Entry) { e.Term = "   " }, "term"},
		{"unknown type", func(e *domain.Entry) { e.Type = "verb" }, "type"},
		{"missing type", func(e *domain.Entry) { e.Type = "" }, "type"},
		{"long notes", func(e *domain.Entry) { e.Notes = strings.Repeat("x", 5001) }, "notes"},
		{"insights without record", func(e *domain.Entry) { e.HasAIInsights = true }, "has_ai_insights"},
	}
	v := validation.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEntry()
			tt.mutate(e)
			err := v.ValidateEntry(e)
			require.ErrorIs(t, err, domainerrors.ErrValidation)
			assert.Contains(t, fieldErrors(t, err), tt.wantField)
		})
	}
}

func TestValidateEntry_Nil(t *testing.T) {
	assert.ErrorIs(t, validation.New().ValidateEntry(nil), domainerrors.ErrValidation)
}

func TestValidateCatalogName(t *testing.T) {
	v := validation.New()
	assert.NoError(t, v.ValidateCatalogName("Egyptian"))
	assert.ErrorIs(t, v.ValidateCatalogName("   "), domainerrors.ErrValidation)
	assert.ErrorIs(t, v.ValidateCatalogName(strings.Repeat("a", 101)), domainerrors.ErrValidation)
}

type voteRequest struct {
	Type string `json:"type" validate:"required,vote_type"`
}

func TestValidate_VoteType(t *testing.T) {
	v := validation.New()
	assert.NoError(t, v.Validate(voteRequest{Type: "up"}))

	err := v.Validate(voteRequest{Type: "sideways"})
	assert.Equal(t, "must be up or down", fieldErrors(t, err)["type"])
}
