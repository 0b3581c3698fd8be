package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFileDefaults(t *testing.T) {
	path := writeConfig(t, "config.yaml", "sources: [MyFont.designspace]\n")
	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"MyFont.designspace"}, cfg.Sources)
	assert.Equal(t, "googlefonts", cfg.RecipeProvider)
	assert.Equal(t, "../fonts", cfg.OutputDir)
	assert.Equal(t, "../fonts/variable", cfg.VFDir)
	assert.Equal(t, "../fonts/ttf", cfg.TTDir)
	assert.Equal(t, "../fonts/otf", cfg.OTDir)
	assert.Equal(t, "../fonts/webfonts", cfg.WOFFDir)
	assert.True(t, *cfg.BuildVariable)
	assert.True(t, *cfg.BuildStatic)
	assert.True(t, *cfg.BuildWebfont)
	assert.True(t, *cfg.AutohintTTF)
	assert.False(t, *cfg.AutohintOTF)
	assert.True(t, *cfg.CleanUp)
	assert.Equal(t, "WARN", cfg.LogLevel)
}

func TestLoadFileOutputDirExpansion(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
sources: [MyFont.glyphs]
outputDir: out
ttDir: $outputDir/statics
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "out/statics", cfg.TTDir)
	assert.Equal(t, "out/variable", cfg.VFDir)
}

func TestWebfontFollowsStaticToggle(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
sources: [MyFont.glyphs]
buildStatic: false
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.False(t, *cfg.BuildStatic)
	assert.False(t, *cfg.BuildWebfont, "buildWebfont defaults to the static toggle")

	path = writeConfig(t, "config.yaml", `
sources: [MyFont.glyphs]
buildStatic: false
buildWebfont: true
`)
	cfg, err = LoadFile(path)
	require.NoError(t, err)
	assert.True(t, *cfg.BuildWebfont, "explicit buildWebfont wins")
}

func TestLoadFileMissingSources(t *testing.T) {
	path := writeConfig(t, "config.yaml", "familyName: Nothing\n")
	_, err := LoadFile(path)
	require.Error(t, err)
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "sources", cerr.Field)
}

func TestLoadFileInlineRecipeWithoutSources(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
recipe:
  out/MyFont.ttf:
    - source: MyFont.glyphs
    - operation: buildTTF
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, cfg.Recipe["out/MyFont.ttf"], 2)
}

func TestLoadFileUnsupportedFormat(t *testing.T) {
	path := writeConfig(t, "config.toml", "sources = [\"x\"]\n")
	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported config format")
}

func TestLoadFileHCL(t *testing.T) {
	path := writeConfig(t, "config.hcl", `
sources       = ["MyFont.designspace"]
buildVariable = false
outputDir     = "dist"
includeSubsets = [
  { name = "GF_Latin_Core", from = "Noto Sans" },
]
stat = {
  wght = "Weight"
}
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"MyFont.designspace"}, cfg.Sources)
	assert.False(t, *cfg.BuildVariable)
	assert.Equal(t, "dist/variable", cfg.VFDir)
	require.Len(t, cfg.IncludeSubsets, 1)
	subset, ok := cfg.IncludeSubsets[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "GF_Latin_Core", subset["name"])
	stat, ok := cfg.Stat.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Weight", stat["wght"])
}

func TestStatPassthrough(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
sources: [MyFont.glyphs]
stat:
  - name: Weight
    tag: wght
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Stat)
}
