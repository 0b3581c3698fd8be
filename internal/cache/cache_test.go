package cache

import (
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fontpipe/fontpipe/internal/config"
)

func openTestCache(t *testing.T) (*Cache, billy.Filesystem) {
	t.Helper()
	fs := memfs.New()
	c, err := OpenWith(filepath.Join(t.TempDir(), "cache.db"), fs)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, fs
}

func writeFile(t *testing.T, fs billy.Filesystem, path, content string) {
	t.Helper()
	require.NoError(t, util.WriteFile(fs, path, []byte(content), 0o644))
}

func TestFileClassification(t *testing.T) {
	c, fs := openTestCache(t)
	writeFile(t, fs, "/proj/MyFont.designspace", "<designspace/>")
	writeFile(t, fs, "/proj/Other.glyphs", "{}")
	require.NoError(t, c.AddFiles([]string{"/proj/MyFont.designspace", "/proj/Other.glyphs"}))

	ch, err := c.ChangedFiles([]string{"/proj/MyFont.designspace", "/proj/Other.glyphs"})
	require.NoError(t, err)
	assert.True(t, ch.Empty())

	// A file the cache has never seen is new, not modified.
	writeFile(t, fs, "/proj/Third.ufo", "x")
	ch, err = c.ChangedFiles([]string{"/proj/MyFont.designspace", "/proj/Third.ufo"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/proj/Third.ufo"}, ch.New)
	assert.Empty(t, ch.Modified)

	writeFile(t, fs, "/proj/MyFont.designspace", "<designspace format=\"5.0\"/>")
	require.NoError(t, fs.Remove("/proj/Other.glyphs"))
	ch, err = c.ChangedFiles([]string{"/proj/MyFont.designspace", "/proj/Other.glyphs"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/proj/MyFont.designspace"}, ch.Modified)
	assert.Equal(t, []string{"/proj/Other.glyphs"}, ch.Missing)
	assert.False(t, ch.Empty())
}

func TestChangedFilesDoesNotRecord(t *testing.T) {
	c, fs := openTestCache(t)
	writeFile(t, fs, "/proj/a.ttf", "font")

	ch, err := c.ChangedFiles([]string{"/proj/a.ttf"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/proj/a.ttf"}, ch.New)

	// Still new: classification alone must not write a record.
	ch, err = c.ChangedFiles([]string{"/proj/a.ttf"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/proj/a.ttf"}, ch.New)
}

func TestDirectoryBackedSources(t *testing.T) {
	c, fs := openTestCache(t)
	ufo := "/proj/MyFont-Regular.ufo"
	writeFile(t, fs, ufo+"/fontinfo.plist", "<plist/>")
	writeFile(t, fs, ufo+"/glyphs/A_.glif", "<glyph name=\"A\"/>")
	require.NoError(t, c.AddFiles([]string{ufo}))

	ch, err := c.ChangedFiles([]string{ufo})
	require.NoError(t, err)
	assert.True(t, ch.Empty())

	// Editing a member file changes the structural digest.
	writeFile(t, fs, ufo+"/glyphs/A_.glif", "<glyph name=\"A\" format=\"2\"/>")
	ch, err = c.ChangedFiles([]string{ufo})
	require.NoError(t, err)
	assert.Equal(t, []string{ufo}, ch.Modified)

	// So does renaming one, even with identical content.
	require.NoError(t, c.AddFiles([]string{ufo}))
	require.NoError(t, fs.Rename(ufo+"/glyphs/A_.glif", ufo+"/glyphs/B_.glif"))
	ch, err = c.ChangedFiles([]string{ufo})
	require.NoError(t, err)
	assert.Equal(t, []string{ufo}, ch.Modified)
}

func TestConfigSnapshot(t *testing.T) {
	c, _ := openTestCache(t)
	cfg := &config.Config{
		Path:       "/proj/config.yaml",
		Sources:    []string{"MyFont.designspace"},
		FamilyName: "My Font",
	}
	cfg.ApplyDefaults()

	changed, err := c.ChangedConfig(cfg)
	require.NoError(t, err)
	assert.True(t, changed, "an unseen config counts as changed")

	require.NoError(t, c.AddConfig(cfg))
	changed, err = c.ChangedConfig(cfg)
	require.NoError(t, err)
	assert.False(t, changed)

	// Stat edits rerun STAT generation regardless, so they never force a
	// full rebuild.
	cfg.Stat = []any{map[string]any{"tag": "wght"}}
	changed, err = c.ChangedConfig(cfg)
	require.NoError(t, err)
	assert.False(t, changed)

	cfg.Sources = append(cfg.Sources, "MyFont-Italic.designspace")
	changed, err = c.ChangedConfig(cfg)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestConfigsKeyedByPath(t *testing.T) {
	c, _ := openTestCache(t)
	a := &config.Config{Path: "/a/config.yaml", Sources: []string{"A.glyphs"}}
	b := &config.Config{Path: "/b/config.yaml", Sources: []string{"B.glyphs"}}
	require.NoError(t, c.AddConfig(a))

	changed, err := c.ChangedConfig(b)
	require.NoError(t, err)
	assert.True(t, changed, "projects do not share config records")
}

func TestClean(t *testing.T) {
	c, fs := openTestCache(t)
	writeFile(t, fs, "/proj/a.ttf", "font")
	cfg := &config.Config{Path: "/proj/config.yaml", Sources: []string{"a.ttf"}}
	require.NoError(t, c.AddFiles([]string{"/proj/a.ttf"}))
	require.NoError(t, c.AddConfig(cfg))

	require.NoError(t, c.Clean())

	ch, err := c.ChangedFiles([]string{"/proj/a.ttf"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/proj/a.ttf"}, ch.New)
	changed, err := c.ChangedConfig(cfg)
	require.NoError(t, err)
	assert.True(t, changed)
}
