package recipe

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fontpipe/fontpipe/internal/config"
	"github.com/fontpipe/fontpipe/internal/ops"
	"github.com/fontpipe/fontpipe/internal/source"
)

// googleFonts is the default provider. Variable fonts go to vfDir named
// Family[sorted,axis,tags].ttf, statics to ttDir/otDir named per instance,
// webfonts mirror every ttf chain with a compress step appended, and one
// buildStat postprocess spans all variable targets.
type googleFonts struct{}

func init() { mustRegister("googlefonts", googleFonts{}) }

func (googleFonts) Recipe(cfg *config.Config, sources []*source.Source) (Recipe, error) {
	g := &gfExpansion{cfg: cfg, sources: sources, recipe: Recipe{}}
	return g.expand()
}

type gfExpansion struct {
	cfg      *config.Config
	sources  []*source.Source
	recipe   Recipe
	statFile string
}

func (g *gfExpansion) expand() (Recipe, error) {
	if err := g.writeStatFile(); err != nil {
		return nil, err
	}
	if err := g.buildAllVariables(); err != nil {
		return nil, err
	}
	if err := g.buildAllStatics(); err != nil {
		return nil, err
	}
	return g.recipe, nil
}

// writeStatFile persists the config's opaque stat description to the scratch
// directory so gftools-gen-stat can read it via --src.
func (g *gfExpansion) writeStatFile() error {
	if g.cfg.Stat == nil {
		return nil
	}
	raw, err := yaml.Marshal(g.cfg.Stat)
	if err != nil {
		return &Error{Step: -1, Err: fmt.Errorf("encode stat description: %w", err)}
	}
	if err := os.MkdirAll(ops.ScratchDirName, 0o755); err != nil {
		return &Error{Step: -1, Err: err}
	}
	path := filepath.Join(ops.ScratchDirName, "stat.yaml")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return &Error{Step: -1, Err: err}
	}
	g.statFile = path
	return nil
}

func (g *gfExpansion) buildAllVariables() error {
	if !*g.cfg.BuildVariable {
		return nil
	}
	for _, src := range g.sources {
		variable, err := src.IsVariable()
		if err != nil {
			return err
		}
		if !variable {
			continue
		}
		if err := g.buildAVariable(src); err != nil {
			return err
		}
	}
	g.buildSTAT()
	return nil
}

func (g *gfExpansion) buildAVariable(src *source.Source) error {
	target, err := vfFilename(g.cfg, src, "ttf")
	if err != nil {
		return err
	}
	steps := []Step{
		{Source: src.Path},
		opStep(g.cfg, "buildVariable", map[string]any{"args": fontmakeArgs(g.cfg, src, true)}),
		g.fixStep(),
	}
	g.recipe[target] = steps
	if *g.cfg.BuildWebfont {
		wf, err := vfFilename(g.cfg, src, "woff2")
		if err != nil {
			return err
		}
		g.recipe[wf] = append(cloneSteps(steps), opStep(g.cfg, "compress", nil))
	}
	return nil
}

// buildSTAT appends one buildStat postprocess to the last variable target;
// a single invocation covers the whole family, with the remaining variable
// targets carried as needs.
func (g *gfExpansion) buildSTAT() {
	var variables []string
	for t := range g.recipe {
		if strings.HasSuffix(t, ".ttf") {
			variables = append(variables, t)
		}
	}
	if len(variables) == 0 {
		return
	}
	sort.Strings(variables)
	last := variables[len(variables)-1]
	params := map[string]any{}
	if g.statFile != "" {
		params["args"] = "--src " + g.statFile
	}
	step := Step{PostProcess: "buildStat", Params: params}
	if len(variables) > 1 {
		step.Needs = variables[:len(variables)-1]
	}
	g.recipe[last] = append(g.recipe[last], step)
}

func (g *gfExpansion) buildAllStatics() error {
	if !*g.cfg.BuildStatic {
		return nil
	}
	for _, src := range g.sources {
		instances, err := src.Instances()
		if err != nil {
			return err
		}
		for i := range instances {
			if *g.cfg.BuildTTF {
				if err := g.buildAStatic(src, &instances[i], "ttf"); err != nil {
					return err
				}
			}
			if *g.cfg.BuildOTF {
				if err := g.buildAStatic(src, &instances[i], "otf"); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (g *gfExpansion) buildAStatic(src *source.Source, inst *source.Instance, ext string) error {
	target := staticFilename(g.cfg, inst, ext)
	steps := []Step{{Source: src.Path}}
	if src.Kind != source.UFO {
		params := map[string]any{"instance_name": inst.Name}
		if src.Kind == source.Glyphs && len(g.cfg.GlyphData) > 0 {
			params["args"] = glyphDataArgs(g.cfg.GlyphData)
		}
		steps = append(steps, opStep(g.cfg, "instantiateUfo", params))
	}
	build := "buildTTF"
	if ext == "otf" {
		build = "buildOTF"
	}
	steps = append(steps, opStep(g.cfg, build, map[string]any{"args": fontmakeArgs(g.cfg, src, false)}))
	steps = append(steps, g.autohintSteps(ext)...)
	steps = append(steps, g.fixStep())
	g.recipe[target] = steps
	if *g.cfg.BuildWebfont && ext == "ttf" {
		wf := staticFilename(g.cfg, inst, "woff2")
		g.recipe[wf] = append(cloneSteps(steps), opStep(g.cfg, "compress", nil))
	}
	return nil
}

func (g *gfExpansion) autohintSteps(ext string) []Step {
	if *g.cfg.AutohintTTF && ext == "ttf" {
		return []Step{opStep(g.cfg, "autohint", map[string]any{"args": "--fail-ok"})}
	}
	if *g.cfg.AutohintOTF && ext == "otf" {
		return []Step{opStep(g.cfg, "autohintOTF", nil)}
	}
	return nil
}

func (g *gfExpansion) fixStep() Step {
	args := ""
	if g.cfg.IncludeSourceFixes {
		args = "--include-source-fixes"
	}
	return opStep(g.cfg, "fix", map[string]any{"args": args})
}

// opStep builds an operation step, folding in any per-kind argument
// overrides from the config.
func opStep(cfg *config.Config, kind string, params map[string]any) Step {
	if params == nil {
		params = map[string]any{}
	}
	if extra := cfg.OperationArgs[kind]; extra != "" {
		if args, _ := params["args"].(string); args != "" {
			params["args"] = args + " " + extra
		} else {
			params["args"] = extra
		}
	}
	return Step{Operation: kind, Params: params}
}

// vfFilename names a variable font target: source stem plus the sorted,
// comma-joined axis tag set in brackets.
func vfFilename(cfg *config.Config, src *source.Source, ext string) (string, error) {
	tags, err := src.AxisTags()
	if err != nil {
		return "", err
	}
	sorted := append([]string(nil), tags...)
	sort.Strings(sorted)
	dir := cfg.VFDir
	if ext == "woff2" {
		dir = cfg.WOFFDir
	}
	return filepath.Join(dir, fmt.Sprintf("%s[%s].%s", src.Stem(), strings.Join(sorted, ","), ext)), nil
}

func staticFilename(cfg *config.Config, inst *source.Instance, ext string) string {
	var dir string
	switch ext {
	case "otf":
		dir = cfg.OTDir
	case "woff2":
		dir = cfg.WOFFDir
	default:
		dir = cfg.TTDir
	}
	return filepath.Join(dir, fileStem(inst.Filename)+"."+ext)
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func glyphDataArgs(files []string) string {
	parts := make([]string, 0, len(files))
	for _, f := range files {
		parts = append(parts, "--glyph-data "+f)
	}
	return strings.Join(parts, " ")
}

func fontmakeArgs(cfg *config.Config, src *source.Source, variable bool) string {
	var args []string
	if *cfg.FlattenComponents {
		args = append(args, "--filter FlattenComponentsFilter")
	}
	if *cfg.DecomposeTransformedComponents {
		args = append(args, "--filter DecomposeTransformedComponentsFilter")
	}
	if cfg.LogLevel != "" && cfg.LogLevel != "WARN" {
		args = append(args, "--verbose "+cfg.LogLevel)
	}
	if !*cfg.ReverseOutlineDirection {
		args = append(args, "--keep-direction")
	}
	if !*cfg.RemoveOutlineOverlaps {
		args = append(args, "--keep-overlaps")
	}
	if cfg.ExtraFontmakeArgs != "" {
		args = append(args, cfg.ExtraFontmakeArgs)
	}
	if variable {
		if !*cfg.CheckCompatibility {
			args = append(args, "--no-check-compatibility")
		}
		if cfg.ExtraVariableFontmakeArgs != "" {
			args = append(args, cfg.ExtraVariableFontmakeArgs)
		}
		if src.Kind == source.Glyphs && len(cfg.GlyphData) > 0 {
			args = append(args, glyphDataArgs(cfg.GlyphData))
		}
	} else if cfg.ExtraStaticFontmakeArgs != "" {
		args = append(args, cfg.ExtraStaticFontmakeArgs)
	}
	return strings.Join(args, " ")
}
