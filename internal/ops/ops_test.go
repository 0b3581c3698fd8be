package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fontpipe/fontpipe/internal/source"
)

func TestNewUnknownKind(t *testing.T) {
	_, err := New("sharpenSerifs", nil, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown operation "sharpenSerifs"`)
}

func TestNewPostprocessOnlyForCapableKinds(t *testing.T) {
	_, err := New("fix", nil, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be used as a postprocess step")

	op, err := New("buildStat", nil, true)
	require.NoError(t, err)
	assert.True(t, op.Postprocess())
}

func TestKindsSortedAndKnown(t *testing.T) {
	kinds := Kinds()
	require.NotEmpty(t, kinds)
	assert.IsType(t, []string{}, kinds)
	for i := 1; i < len(kinds); i++ {
		assert.Less(t, kinds[i-1], kinds[i])
	}
	assert.True(t, Known("buildVariable"))
	assert.False(t, Known("buildSmoke"))
	assert.NotEmpty(t, Describe("buildVariable"))
}

func TestBaseVariablesSkipReservedKeys(t *testing.T) {
	op, err := New("fix", map[string]any{
		"args":      "--include-source-fixes",
		"target":    "x.ttf",
		"operation": "fix",
		"count":     3,
	}, false)
	require.NoError(t, err)
	vars := op.Variables()
	assert.Equal(t, "--include-source-fixes", vars["fixargs"], "fix renames args")
	assert.NotContains(t, vars, "args")
	assert.NotContains(t, vars, "target")
	assert.NotContains(t, vars, "operation")
	assert.Equal(t, "3", vars["count"])
}

func TestRemapRendersSortedMappings(t *testing.T) {
	op, err := New("remap", map[string]any{
		"mappings": map[string]any{"0x1234": "0x5678", "0x0001": "0x0002"},
	}, false)
	require.NoError(t, err)
	require.NoError(t, op.Validate())
	assert.Equal(t, "0x0001=0x0002 0x1234=0x5678", op.Variables()["mappings"])

	op, err = New("remap", nil, false)
	require.NoError(t, err)
	require.Error(t, op.Validate())
}

func TestAddChwsDerivesSuffixedTarget(t *testing.T) {
	op, err := New("addChws", nil, false)
	require.NoError(t, err)
	d, ok := op.(TargetDeriver)
	require.True(t, ok)
	target, err := d.DeriveTarget("fonts/MyFont-Regular.ttf")
	require.NoError(t, err)
	assert.Equal(t, "fonts/MyFont-Regular-chws.ttf", target)
	assert.Equal(t, target, op.Output())
}

func TestFontmakeTypeFollowsInputFormat(t *testing.T) {
	for input, want := range map[string]string{
		"MyFont.glyphs":        "-g",
		"MyFont.glyphspackage": "-g",
		"MyFont.designspace":   "-m",
		"MyFont-Thin.ufo":      "-u",
		"MyFont-Thin.ufo.json": "-u",
	} {
		op, err := New("buildVariable", nil, false)
		require.NoError(t, err)
		op.AddSource(input)
		assert.Equal(t, want, op.Variables()["fontmake_type"], input)
	}
}

func TestBuildersForceOutputExtension(t *testing.T) {
	for kind, ext := range map[string]string{
		"buildVariable": ".ttf",
		"buildTTF":      ".ttf",
		"buildOTF":      ".otf",
		"compress":      ".woff2",
	} {
		op, err := New(kind, nil, false)
		require.NoError(t, err)
		oe, ok := op.(OutputExtension)
		require.True(t, ok, kind)
		assert.Equal(t, ext, oe.OutputExt(), kind)
	}
}

func TestBuildStatOperationRejectsNeeds(t *testing.T) {
	op, err := New("buildStat", map[string]any{"needs": []string{"a.ttf"}}, false)
	require.NoError(t, err)
	require.Error(t, op.Validate())

	op, err = New("buildStat", nil, false)
	require.NoError(t, err)
	require.NoError(t, op.Validate())
	assert.False(t, op.Postprocess())
}

func TestInPlaceStampOutputs(t *testing.T) {
	op, err := New("buildStat", nil, true)
	require.NoError(t, err)
	op.AddSource("fonts/MyFont[wght].ttf")
	d, ok := op.(TargetDeriver)
	require.True(t, ok)
	stamp, err := d.DeriveTarget("fonts/MyFont[wght].ttf")
	require.NoError(t, err)
	assert.Equal(t, "fonts/MyFont[wght].ttf.statstamp", stamp)
	assert.Equal(t, "buildStatPost", op.RuleName())
	assert.Equal(t, "fonts/MyFont[wght].ttf", op.Artifact(),
		"consumers read the mutated font, not the stamp")

	op, err = New("buildAvar2", nil, false)
	require.NoError(t, err)
	op.AddSource("a.ttf")
	stamp, err = op.(TargetDeriver).DeriveTarget("a.ttf")
	require.NoError(t, err)
	assert.Equal(t, "a.ttf.avar2stamp", stamp)
	assert.Equal(t, "buildAvar2", op.RuleName())
	assert.False(t, op.Postprocess())
}

func TestSubspaceRequiresAxes(t *testing.T) {
	op, err := New("subspace", nil, false)
	require.NoError(t, err)
	require.Error(t, op.Validate())

	op, err = New("subspace", map[string]any{"axes": "wght=400:700"}, false)
	require.NoError(t, err)
	require.NoError(t, op.Validate())
	assert.Equal(t, "wght=400:700", op.Variables()["axes"])
}

func TestAddSubsetMaterializesSubsetFile(t *testing.T) {
	dir := t.TempDir()
	op, err := New("addSubset", map[string]any{
		"subsets": []any{map[string]any{"from": "Noto Sans", "name": "GF_Latin_Core"}},
	}, false)
	require.NoError(t, err)
	require.NoError(t, op.Validate())

	su, ok := op.(ScratchUser)
	require.True(t, ok)
	su.SetScratchDir(dir)
	op.AddSource("MyFont.designspace")

	target, err := op.(TargetDeriver).DeriveTarget("MyFont.designspace")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "MyFont-subset-ds", "MyFont.designspace"), target)

	require.NoError(t, op.(Materializer).Materialize())
	raw, err := os.ReadFile(filepath.Join(dir, "MyFont-subset-ds", "subsets.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Noto Sans")
	assert.Equal(t, filepath.Join(dir, "MyFont-subset-ds", "subsets.yaml"),
		op.Variables()["subsetfile"])
}

const instanceDesignspace = `<?xml version="1.0"?>
<designspace format="4.0">
  <axes><axis tag="wght" name="Weight"/></axes>
  <sources>
    <source filename="MyFont-Light.ufo" familyname="My Font"/>
    <source filename="MyFont-Bold.ufo" familyname="My Font"/>
  </sources>
  <instances>
    <instance name="Thin" familyname="My Font" stylename="Thin" filename="instance_ufos/MyFont-Thin.ufo"/>
  </instances>
</designspace>
`

func TestInstantiateUFOValidatesInstances(t *testing.T) {
	dsPath := filepath.Join(t.TempDir(), "MyFont.designspace")
	require.NoError(t, os.WriteFile(dsPath, []byte(instanceDesignspace), 0o644))
	catalog := source.NewCatalog()

	op, err := New("instantiateUfo", map[string]any{"instance_name": "Thin"}, false)
	require.NoError(t, err)
	op.(interface{ SetSourceResolver(SourceResolver) }).SetSourceResolver(catalog.Describe)
	op.AddSource(dsPath)
	require.NoError(t, op.Validate())

	target, err := op.(TargetDeriver).DeriveTarget(dsPath)
	require.NoError(t, err)
	assert.Equal(t,
		filepath.Join(filepath.Dir(dsPath), "instance_ufos", "MyFont-Thin.ufo.json"),
		target)

	vars := op.Variables()
	assert.Equal(t, "Thin", vars["instance_name"])
	assert.Contains(t, vars["args"], "--ufo-structure=json")
	assert.Contains(t, vars["args"], "--output-dir")

	op, err = New("instantiateUfo", map[string]any{"instance_name": "Nonexistent"}, false)
	require.NoError(t, err)
	op.(interface{ SetSourceResolver(SourceResolver) }).SetSourceResolver(catalog.Describe)
	op.AddSource(dsPath)
	require.Error(t, op.Validate())

	op, err = New("instantiateUfo", nil, false)
	require.NoError(t, err)
	require.Error(t, op.Validate(), "instance_name is required")
}

func TestStemOf(t *testing.T) {
	assert.Equal(t, "MyFont", stemOf("sources/MyFont.glyphs"))
	assert.Equal(t, "MyFont", stemOf(filepath.Join("deep", "er", "MyFont.glyphspackage")))
	assert.Equal(t, "MyFont-Thin", stemOf("instance_ufos/MyFont-Thin.ufo.json"))
	assert.Equal(t, "MyFont", stemOf("MyFont.designspace"))
}

func TestGlyphs2DSUsesScratchDir(t *testing.T) {
	op, err := New("glyphs2ds", nil, false)
	require.NoError(t, err)
	op.(ScratchUser).SetScratchDir(".fp-test")
	op.AddSource("sources/MyFont.glyphs")
	target, err := op.(TargetDeriver).DeriveTarget("sources/MyFont.glyphs")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(".fp-test", "MyFont-master-ufo", "MyFont.designspace"), target)
	assert.Equal(t, filepath.Join(".fp-test", "MyFont-master-ufo"), op.Variables()["outdir"])
}
