package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstitute(t *testing.T) {
	vars := map[string]string{"name": "Bob", "place": "{{name}}'s house"}

	assert.Equal(t, "Hello Bob, {{unknown}}", Substitute("Hello {{name}}, {{unknown}}", vars))
	assert.Equal(t, "Bob and Bob", Substitute("{{name}} and {{name}}", vars))
	assert.Equal(t, "{{ name }} {{names}}", Substitute("{{ name }} {{names}}", vars), "exact token match only")
	assert.Equal(t, "at {{name}}'s house", Substitute("at {{place}}", vars), "values are not expanded again")
	assert.Equal(t, "{{name}}", Substitute("{{name}}", nil))
	assert.Equal(t, "", Substitute("", vars))
}

func TestSubstituteBlocks(t *testing.T) {
	blocks := Parse("[SCENE]\n{{hero}} in {{city}}\n[STYLE]\n{\"mood\":\"{{mood}}\"}\n[AVOID]\n{{avoid}}")
	vars := map[string]string{"hero": "a knight", "city": "Paris", "mood": "gloomy"}

	got := SubstituteBlocks(blocks, vars)

	assert.Equal(t, "a knight in Paris", got.Scene)
	assert.True(t, got.StyleParsedAsJSON())
	assert.Equal(t, "gloomy", got.Style.Fields()["mood"])
	assert.Equal(t, "{{avoid}}", got.Avoid)
	assert.True(t, got.Marked)
}

func TestSubstituteSections(t *testing.T) {
	sections := []Section{
		{ID: "b", Label: "Style", Content: "{{style}}", Enabled: true, Order: 1},
		{ID: "a", Label: "Scene", Content: "{{subject}} at dawn", Enabled: true, Order: 0},
		{ID: "c", Label: "Avoid", Content: "{{subject}}", Enabled: false, Order: 2},
	}

	got := SubstituteSections(sections, map[string]string{"subject": "fox"})

	require.Len(t, got, 2)
	assert.Equal(t, "fox at dawn", got[0].Content)
	assert.Equal(t, "{{style}}", got[1].Content)
	assert.Equal(t, "{{subject}} at dawn", sections[1].Content, "input must not be mutated")
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Placeholders("{{a}} {{b}} {{a}}"))
	assert.Nil(t, Placeholders("nothing here"))
	assert.Equal(t, []string{"b"}, Unresolved("{{a}} {{b}}", map[string]string{"a": "1"}))
}
