package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLang(t *testing.T) {
	tests := []struct {
		in   string
		want Lang
	}{
		{"zh", Chinese},
		{"zh-Hans-CN", Chinese},
		{"ZH", Chinese},
		{"en", English},
		{"en-GB", English},
		{"", English},
		{"not a tag", English},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLang(tt.in), "ParseLang(%q)", tt.in)
	}
}

func TestIdentities(t *testing.T) {
	ids := Identities()
	require.Len(t, ids, 4)

	seen := map[string]bool{}
	for _, ident := range ids {
		assert.NotEmpty(t, ident.ID)
		assert.False(t, seen[ident.ID], "duplicate identity %s", ident.ID)
		seen[ident.ID] = true
		for _, lang := range Langs {
			assert.NotEmpty(t, ident.DisplayName(lang), "%s name in %s", ident.ID, lang)
			assert.NotEmpty(t, ident.Describe(lang), "%s description in %s", ident.ID, lang)
		}
	}

	// Callers get a copy.
	ids[0].ID = "mutated"
	assert.NotEqual(t, "mutated", Identities()[0].ID)
}

func TestIdentityByID(t *testing.T) {
	noble, ok := IdentityByID("noble")
	require.True(t, ok)
	assert.Equal(t, "Fallen Noble", noble.DisplayName(English))
	assert.Equal(t, "落魄世家", noble.DisplayName(Chinese))

	_, ok = IdentityByID("emperor")
	assert.False(t, ok)
}

func TestText(t *testing.T) {
	for _, lang := range Langs {
		s := Text(lang)
		assert.NotEmpty(t, s.FallbackNarrative, lang)
		assert.NotEmpty(t, s.FallbackChoice, lang)
		assert.NotEmpty(t, s.ContinueAction, lang)
		assert.NotEmpty(t, s.InitialRealm, lang)
		assert.NotEmpty(t, s.UnknownLocation, lang)
	}
	assert.Equal(t, "Mortal", Text(English).InitialRealm)
	assert.Equal(t, Text(English), Text(Lang("fr")))
}
