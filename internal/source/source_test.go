package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoMasterDesignspace = `<?xml version="1.0" encoding="UTF-8"?>
<designspace format="4.0">
  <axes>
    <axis tag="wght" name="Weight" minimum="100" maximum="900" default="400"/>
    <axis tag="wdth" name="Width" minimum="75" maximum="100" default="100"/>
  </axes>
  <sources>
    <source filename="MyFont-Light.ufo" familyname="My Font"/>
    <source filename="MyFont-Bold.ufo" familyname="My Font"/>
  </sources>
  <instances>
    <instance name="My Font Thin" familyname="My Font" stylename="Thin" filename="instance_ufos/MyFont-Thin.ufo">
      <location>
        <dimension name="Weight" xvalue="100"/>
        <dimension name="Width" xvalue="100"/>
      </location>
    </instance>
    <instance familyname="My Font" stylename="Black" filename="instance_ufos/MyFont-Black.ufo">
      <location>
        <dimension name="Weight" xvalue="900"/>
      </location>
    </instance>
  </instances>
</designspace>
`

func writeDesignspace(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "MyFont.designspace")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDesignspaceFacts(t *testing.T) {
	cat := NewCatalog()
	src, err := cat.Describe(writeDesignspace(t, twoMasterDesignspace))
	require.NoError(t, err)
	assert.Equal(t, Designspace, src.Kind)

	variable, err := src.IsVariable()
	require.NoError(t, err)
	assert.True(t, variable)

	family, err := src.FamilyName()
	require.NoError(t, err)
	assert.Equal(t, "My Font", family)

	tags, err := src.AxisTags()
	require.NoError(t, err)
	assert.Equal(t, []string{"wght", "wdth"}, tags, "axis tags keep document order")

	instances, err := src.Instances()
	require.NoError(t, err)
	require.Len(t, instances, 2)
	assert.Equal(t, "My Font Thin", instances[0].Name)
	assert.Equal(t, map[string]float64{"wght": 100, "wdth": 100}, instances[0].Location)
	assert.Equal(t, "Black", instances[1].Name, "unnamed instances fall back to the style name")
	assert.Equal(t, map[string]float64{"wght": 900}, instances[1].Location)
}

func TestDesignspaceSingleMasterIsStatic(t *testing.T) {
	single := `<?xml version="1.0"?>
<designspace format="4.0">
  <sources><source filename="MyFont.ufo" familyname="My Font"/></sources>
</designspace>
`
	cat := NewCatalog()
	src, err := cat.Describe(writeDesignspace(t, single))
	require.NoError(t, err)
	variable, err := src.IsVariable()
	require.NoError(t, err)
	assert.False(t, variable)
}

func TestGlyphsFacts(t *testing.T) {
	content := `{
familyName = "My Font";
axes = (
{ name = Weight; tag = wght; }
);
fontMaster = (
{ id = m01; weightValue = 100; },
{ id = m02; weightValue = 900; }
);
instances = (
{ name = Thin; },
{ name = Black; },
{ exports = 0; name = NotExported; }
);
}
`
	path := filepath.Join(t.TempDir(), "MyFont.glyphs")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cat := NewCatalog()
	src, err := cat.Describe(path)
	require.NoError(t, err)
	assert.Equal(t, Glyphs, src.Kind)

	variable, err := src.IsVariable()
	require.NoError(t, err)
	assert.True(t, variable)

	tags, err := src.AxisTags()
	require.NoError(t, err)
	assert.Equal(t, []string{"wght"}, tags)

	instances, err := src.Instances()
	require.NoError(t, err)
	require.Len(t, instances, 2, "non-exporting instances are skipped")
	assert.Equal(t, "Thin", instances[0].Name)
	assert.Equal(t, "MyFont-Thin.ufo", instances[0].Filename)
}

func TestGlyphspackageReadsInnerPlist(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "MyFont.glyphspackage")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	content := `{
familyName = "My Font";
fontMaster = ( { id = m01; } );
instances = ( { name = Regular; } );
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fontinfo.plist"), []byte(content), 0o644))

	cat := NewCatalog()
	src, err := cat.Describe(dir)
	require.NoError(t, err)
	variable, err := src.IsVariable()
	require.NoError(t, err)
	assert.False(t, variable, "a single master is not variable")
}

func TestUFOFacts(t *testing.T) {
	ufo := filepath.Join(t.TempDir(), "MyFont-Regular.ufo")
	require.NoError(t, os.MkdirAll(ufo, 0o755))
	plist := `<?xml version="1.0" encoding="UTF-8"?>
<plist version="1.0">
<dict>
  <key>familyName</key>
  <string>My Font</string>
  <key>styleName</key>
  <string>Regular</string>
  <key>guidelines</key>
  <array><string>ignored</string></array>
</dict>
</plist>
`
	require.NoError(t, os.WriteFile(filepath.Join(ufo, "fontinfo.plist"), []byte(plist), 0o644))

	cat := NewCatalog()
	src, err := cat.Describe(ufo)
	require.NoError(t, err)
	assert.Equal(t, UFO, src.Kind)

	variable, err := src.IsVariable()
	require.NoError(t, err)
	assert.False(t, variable)

	instances, err := src.Instances()
	require.NoError(t, err)
	require.Len(t, instances, 1)
	assert.Equal(t, "Regular", instances[0].Name)
	assert.Equal(t, "MyFont-Regular.ufo", instances[0].Filename)
}

func TestCatalogInternsByCanonicalPath(t *testing.T) {
	path := writeDesignspace(t, twoMasterDesignspace)
	cat := NewCatalog()
	a, err := cat.Describe(path)
	require.NoError(t, err)
	b, err := cat.Describe(filepath.Join(filepath.Dir(path), ".", "MyFont.designspace"))
	require.NoError(t, err)
	assert.Same(t, a, b, "spellings of the same path share one descriptor")
}

func TestDescribeUnknownFormat(t *testing.T) {
	cat := NewCatalog()
	_, err := cat.Describe("MyFont.ttf")
	require.Error(t, err)
	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Contains(t, serr.Error(), "cannot determine source format")
}

func TestSourceErrorIsMemoized(t *testing.T) {
	cat := NewCatalog()
	src, err := cat.Describe(filepath.Join(t.TempDir(), "Missing.designspace"))
	require.NoError(t, err, "describing does not read the file yet")
	_, err1 := src.IsVariable()
	require.Error(t, err1)
	_, err2 := src.FamilyName()
	assert.Equal(t, err1, err2, "the parse failure is sticky")
}
