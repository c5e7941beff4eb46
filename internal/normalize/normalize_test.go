package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConceptName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello ", "hello"},
		{"hello", "hello"},
		{"  Good Morning\t", "good morning"},
		{"", ""},
		{"   ", ""},
		{"CAFÉ", "café"},
		{"café", "café"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ConceptName(tt.in))
		})
	}
}

func TestConceptName_SameMeaningSameKey(t *testing.T) {
	assert.Equal(t, ConceptName("Hello "), ConceptName("hello"))
}

func TestCatalogName(t *testing.T) {
	assert.Equal(t, "Levantine", CatalogName("  Levantine "))
	assert.Equal(t, "Gulf Arabic", CatalogName("Gulf   Arabic"))
	assert.Equal(t, "", CatalogName(" "))
}

func TestTags(t *testing.T) {
	got := Tags([]string{" greeting", "greeting", "", "formal ", "  "})
	assert.Equal(t, []string{"greeting", "formal"}, got)

	assert.NotNil(t, Tags(nil))
	assert.Empty(t, Tags(nil))
}

func TestFold(t *testing.T) {
	assert.Equal(t, Fold("HeLLo"), Fold("hello"))
}
