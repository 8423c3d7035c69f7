package pattern

import (
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/eugenenazirov/config-server/internal/format"
)

func TestResolveOrdersBySpecificity(t *testing.T) {
	chain, err := Resolve("payments", "prod", format.YAML)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"*global.yaml",
		"*global-prod.yaml",
		"*payments.yaml",
		"*payments-prod.yaml",
	}, chain.Patterns())
	for _, entry := range chain {
		assert.Equal(t, format.YAML, entry.Format)
	}
}

func TestResolveUsesFormatExtension(t *testing.T) {
	chain, err := Resolve("billing", "dev", format.JSON)
	require.NoError(t, err)

	assert.Equal(t, "*billing-dev.json", chain[3].Pattern)
}

func TestResolveTrimsWhitespace(t *testing.T) {
	chain, err := Resolve("  payments ", "prod\t", format.YAML)
	require.NoError(t, err)

	assert.Equal(t, "*payments-prod.yaml", chain[3].Pattern)
}

func TestResolveRejectsInvalidScope(t *testing.T) {
	tests := []struct {
		name        string
		application string
		label       string
	}{
		{name: "parent traversal", application: "../etc", label: "prod"},
		{name: "dotdot only", application: "..", label: "prod"},
		{name: "wildcard label", application: "payments", label: "*"},
		{name: "embedded wildcard", application: "payments", label: "pr*d"},
		{name: "question mark", application: "pay?ents", label: "prod"},
		{name: "character class", application: "pay[m]ents", label: "prod"},
		{name: "brace", application: "payments", label: "{prod,dev}"},
		{name: "slash", application: "team/payments", label: "prod"},
		{name: "backslash", application: `team\payments`, label: "prod"},
		{name: "nul byte", application: "pay\x00ments", label: "prod"},
		{name: "empty application", application: "", label: "prod"},
		{name: "blank label", application: "payments", label: "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain, err := Resolve(tt.application, tt.label, format.YAML)
			assert.ErrorIs(t, err, ErrInvalidScope)
			assert.Nil(t, chain)
		})
	}
}

func TestChainMatchesExpectedFiles(t *testing.T) {
	chain, err := Resolve("payments", "prod", format.YAML)
	require.NoError(t, err)

	files := map[string]int{
		"global.yaml":        0,
		"global-prod.yaml":   1,
		"payments.yaml":      2,
		"payments-prod.yaml": 3,
		"team-payments.yaml": 2,
	}
	for file, layer := range files {
		matched, err := path.Match(chain[layer].Pattern, file)
		require.NoError(t, err)
		assert.True(t, matched, "%s should match layer %d", file, layer)
	}

	matched, err := path.Match(chain[3].Pattern, "payments-dev.yaml")
	require.NoError(t, err)
	assert.False(t, matched)
}

// Accepted scopes always yield four patterns that are valid globs with
// exactly one wildcard, the leading one.
func TestResolvePropertyPatternsStayInSegment(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		app := rapid.StringN(1, 24, -1).Draw(t, "application")
		label := rapid.StringN(1, 24, -1).Draw(t, "label")

		chain, err := Resolve(app, label, format.YAML)
		if err != nil {
			assert.ErrorIs(t, err, ErrInvalidScope)
			return
		}

		require.Len(t, chain, 4)
		for _, p := range chain.Patterns() {
			assert.True(t, strings.HasPrefix(p, "*"))
			assert.Equal(t, 1, strings.Count(p, "*"), p)
			assert.NotContains(t, p, "/")
			_, matchErr := path.Match(p, "sample.yaml")
			assert.NoError(t, matchErr, p)
		}
	})
}
