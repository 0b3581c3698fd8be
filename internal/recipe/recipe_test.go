package recipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseStep(t *testing.T) {
	s, err := ParseStep(map[string]any{"source": "MyFont.glyphs"})
	require.NoError(t, err)
	assert.True(t, s.IsSource())
	assert.Empty(t, s.Kind())

	s, err = ParseStep(map[string]any{
		"operation": "autohint",
		"args":      "--fail-ok",
	})
	require.NoError(t, err)
	assert.Equal(t, "autohint", s.Kind())
	assert.Equal(t, "--fail-ok", s.Params["args"])

	s, err = ParseStep(map[string]any{
		"postprocess": "buildStat",
		"needs":       []any{"a.ttf", "b.ttf"},
	})
	require.NoError(t, err)
	assert.Equal(t, "buildStat", s.PostProcess)
	assert.Equal(t, []string{"a.ttf", "b.ttf"}, s.Needs)
}

func TestParseStepRejectsAmbiguousShape(t *testing.T) {
	_, err := ParseStep(map[string]any{"source": "a", "operation": "fix"})
	require.Error(t, err)

	_, err = ParseStep(map[string]any{"args": "--verbose"})
	require.Error(t, err)

	_, err = ParseStep(map[string]any{"operation": "fix", "needs": "a.ttf"})
	require.Error(t, err)
}

func TestParseRecipeReportsStepIndex(t *testing.T) {
	_, err := Parse(map[string][]map[string]any{
		"out/a.ttf": {
			{"source": "MyFont.glyphs"},
			{"needs": []any{"x"}},
		},
	})
	require.Error(t, err)
	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "out/a.ttf", rerr.Target)
	assert.Equal(t, 1, rerr.Step)
}

func TestTargetsSorted(t *testing.T) {
	r := Recipe{
		"b.ttf": {{Source: "s"}},
		"a.ttf": {{Source: "s"}},
	}
	assert.Equal(t, []string{"a.ttf", "b.ttf"}, r.Targets())
}

func TestStepYAMLRoundTrip(t *testing.T) {
	r := Recipe{
		"out/a.ttf": {
			{Source: "MyFont.glyphs"},
			{Operation: "buildTTF", Params: map[string]any{"args": "--verbose DEBUG"}},
			{PostProcess: "buildStat", Needs: []string{"out/b.ttf"}},
		},
	}
	raw, err := yaml.Marshal(r)
	require.NoError(t, err)

	var wire map[string][]map[string]any
	require.NoError(t, yaml.Unmarshal(raw, &wire))
	back, err := Parse(wire)
	require.NoError(t, err)
	require.Len(t, back["out/a.ttf"], 3)
	assert.Equal(t, "MyFont.glyphs", back["out/a.ttf"][0].Source)
	assert.Equal(t, "--verbose DEBUG", back["out/a.ttf"][1].Params["args"])
	assert.Equal(t, []string{"out/b.ttf"}, back["out/a.ttf"][2].Needs)
}

func TestRegisterProviderRejectsDuplicates(t *testing.T) {
	err := RegisterProvider("googlefonts", googleFonts{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestResolveUnknownProvider(t *testing.T) {
	_, err := Resolve("artisanal")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown recipe provider "artisanal"`)

	p, err := Resolve("noto")
	require.NoError(t, err)
	require.NotNil(t, p)
}
