package recipe

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fontpipe/fontpipe/internal/config"
	"github.com/fontpipe/fontpipe/internal/ops"
	"github.com/fontpipe/fontpipe/internal/source"
)

// noto lays fonts out as fonts/<FamilyName>/{unhinted,hinted,full}/<flavour>,
// ignoring the Google Fonts directory settings. Every variable target gets a
// slim companion subspaced to the weight axis; includeSubsets adds full
// chains that merge donor subsets before building.
type noto struct{}

func init() { mustRegister("noto", noto{}) }

func (noto) Recipe(cfg *config.Config, sources []*source.Source) (Recipe, error) {
	n := &notoExpansion{cfg: cfg, sources: sources, recipe: Recipe{}}
	return n.expand()
}

type notoExpansion struct {
	cfg     *config.Config
	sources []*source.Source
	recipe  Recipe
}

func (n *notoExpansion) expand() (Recipe, error) {
	if *n.cfg.BuildVariable {
		for _, src := range n.sources {
			variable, err := src.IsVariable()
			if err != nil {
				return nil, err
			}
			if !variable {
				continue
			}
			if err := n.buildAVariable(src); err != nil {
				return nil, err
			}
		}
	}
	if *n.cfg.BuildStatic {
		for _, src := range n.sources {
			instances, err := src.Instances()
			if err != nil {
				return nil, err
			}
			for i := range instances {
				if err := n.buildAStatic(src, &instances[i], "ttf"); err != nil {
					return nil, err
				}
				if err := n.buildAStatic(src, &instances[i], "otf"); err != nil {
					return nil, err
				}
			}
		}
	}
	return n.recipe, nil
}

// root starts a chain: the source itself, converted to a designspace first
// when it is a Glyphs file.
func (n *notoExpansion) root(src *source.Source) []Step {
	steps := []Step{{Source: src.Path}}
	if src.Kind == source.Glyphs {
		steps = append(steps, opStep(n.cfg, "glyphs2ds", nil))
	}
	return steps
}

// conversionDir is where glyphs2ds writes the converted designspace for a
// Glyphs source. Static chains name instance UFO targets under it, since
// the conversion does not exist on disk at compile time.
func conversionDir(src *source.Source) string {
	return filepath.Join(ops.ScratchDirName, src.Stem()+"-master-ufo")
}

func (n *notoExpansion) familyPath(src *source.Source) (string, error) {
	fam, err := src.FamilyName()
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(fam, " ", ""), nil
}

func (n *notoExpansion) buildAVariable(src *source.Source) error {
	famPath, err := n.familyPath(src)
	if err != nil {
		return err
	}
	tags, err := src.AxisTags()
	if err != nil {
		return err
	}
	sorted := append([]string(nil), tags...)
	sort.Strings(sorted)
	name := fmt.Sprintf("%s[%s].ttf", src.Stem(), strings.Join(sorted, ","))

	target := filepath.Join("fonts", famPath, "unhinted", "variable", name)
	steps := append(n.root(src),
		opStep(n.cfg, "buildVariable", nil),
		opStep(n.cfg, "fix", nil))
	n.recipe[target] = steps
	n.slim(target, sorted)

	if len(n.cfg.IncludeSubsets) > 0 {
		full := filepath.Join("fonts", famPath, "full", "variable", name)
		fullSteps := append(n.root(src),
			opStep(n.cfg, "addSubset", map[string]any{
				"subsets":   n.cfg.IncludeSubsets,
				"directory": "full-designspace",
			}),
			opStep(n.cfg, "buildVariable", nil),
			opStep(n.cfg, "fix", nil))
		n.recipe[full] = fullSteps
		n.slim(full, sorted)
	}
	return nil
}

// slim clones a variable chain into a weight-only companion: subspace to
// wght 400:700 (dropping wdth when present) and subset aggressively.
func (n *notoExpansion) slim(target string, sortedTags []string) {
	axes := "wght=400:700"
	for _, t := range sortedTags {
		if t == "wdth" {
			axes += " wdth=drop"
		}
	}
	slim := strings.ReplaceAll(target, "variable", "slim-variable-ttf")
	slim = strings.ReplaceAll(slim, strings.Join(sortedTags, ","), "wght")
	n.recipe[slim] = append(cloneSteps(n.recipe[target]),
		opStep(n.cfg, "subspace", map[string]any{"axes": axes}),
		opStep(n.cfg, "hbsubset", nil))
}

func (n *notoExpansion) buildAStatic(src *source.Source, inst *source.Instance, ext string) error {
	famPath, err := n.familyPath(src)
	if err != nil {
		return err
	}
	base := fileStem(inst.Filename) + "." + ext
	build := "buildTTF"
	if ext == "otf" {
		build = "buildOTF"
	}

	params := map[string]any{"instance_name": inst.Name}
	if src.Kind == source.Glyphs {
		params["target"] = filepath.Join(conversionDir(src), "instance_ufos",
			filepath.Base(inst.Filename)+".json")
	}
	steps := append(n.root(src),
		opStep(n.cfg, "instantiateUfo", params),
		opStep(n.cfg, build, nil))
	n.recipe[filepath.Join("fonts", famPath, "unhinted", ext, base)] = steps

	if ext == "ttf" {
		hinted := append(cloneSteps(steps), n.hintSteps()...)
		n.recipe[filepath.Join("fonts", famPath, "hinted", ext, base)] = hinted
	}

	if len(n.cfg.IncludeSubsets) > 0 {
		fullSteps := append(n.root(src),
			opStep(n.cfg, "addSubset", map[string]any{
				"subsets":   n.cfg.IncludeSubsets,
				"directory": "full-designspace",
			}),
			opStep(n.cfg, "instantiateUfo", map[string]any{
				"instance_name": inst.Name,
				"target":        "full-designspace/" + filepath.Base(inst.Filename),
			}),
			opStep(n.cfg, build, nil))
		if ext == "ttf" {
			fullSteps = append(fullSteps, n.hintSteps()...)
		}
		n.recipe[filepath.Join("fonts", famPath, "full", ext, base)] = fullSteps
	}
	return nil
}

func (n *notoExpansion) hintSteps() []Step {
	return []Step{
		opStep(n.cfg, "autohint", map[string]any{
			"autohint_args": "--fail-ok --auto-script --discount-latin",
		}),
		opStep(n.cfg, "fix", nil),
	}
}
