package ops

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type compress struct{ Base }

func (*compress) OutputExt() string { return ".woff2" }

type subspace struct{ Base }

func (op *subspace) Validate() error { return op.requireParam("axes") }

func (op *subspace) Variables() map[string]string {
	vars := op.Base.Variables()
	if _, ok := vars["args"]; !ok {
		vars["args"] = ""
	}
	return vars
}

type hbSubset struct{ Base }

func (op *hbSubset) Variables() map[string]string {
	vars := op.Base.Variables()
	if _, ok := vars["args"]; !ok {
		vars["args"] = ""
	}
	return vars
}

// addSubset merges glyph subsets from donor fonts into a designspace. It
// owns two auxiliary artifacts: a scratch output directory and a YAML file
// holding the subset description, both materialized before the target is
// exposed.
type addSubset struct {
	Base
	scratchDir string
}

func (op *addSubset) SetScratchDir(dir string) { op.scratchDir = dir }

func (op *addSubset) Validate() error {
	if err := op.requireParam("subsets"); err != nil {
		return err
	}
	if _, ok := op.params["subsets"].([]any); !ok {
		return fmt.Errorf("addSubset: subsets must be a list")
	}
	return nil
}

func (op *addSubset) outDir() string {
	if d := op.stringParam("directory"); d != "" {
		return d
	}
	return filepath.Join(op.scratchDir, stemOf(op.firstSource())+"-subset-ds")
}

func (op *addSubset) subsetFile() string {
	return filepath.Join(op.outDir(), "subsets.yaml")
}

func (op *addSubset) DeriveTarget(input string) (string, error) {
	op.target = filepath.Join(op.outDir(), stemOf(input)+".designspace")
	return op.target, nil
}

func (op *addSubset) Materialize() error {
	if err := os.MkdirAll(op.outDir(), 0o755); err != nil {
		return err
	}
	raw, err := yaml.Marshal(op.params["subsets"])
	if err != nil {
		return fmt.Errorf("addSubset: encode subsets: %w", err)
	}
	return os.WriteFile(op.subsetFile(), raw, 0o644)
}

func (op *addSubset) Variables() map[string]string {
	vars := op.Base.Variables()
	delete(vars, "directory")
	vars["subsetfile"] = op.subsetFile()
	if _, ok := vars["args"]; !ok {
		vars["args"] = ""
	}
	return vars
}

func init() {
	register("compress", "Compress to a webfont",
		func(p map[string]any) Operation {
			return &compress{newBase("compress", "fonttools ttLib.woff2 compress -o $out $in", p)}
		})
	register("subspace", "Subspace a variable font with varLib.instancer",
		func(p map[string]any) Operation {
			return &subspace{newBase("subspace", "fonttools varLib.instancer $args -o $out $in $axes", p)}
		})
	register("hbsubset", "Subset a font to slim it down",
		func(p map[string]any) Operation {
			return &hbSubset{newBase("hbsubset",
				"hb-subset --output-file=$out --notdef-outline --unicodes=* --name-IDs=* --layout-features=* --glyph-names $args $in", p)}
		})
	register("addSubset", "Add glyph subsets from donor fonts to a designspace",
		func(p map[string]any) Operation {
			return &addSubset{Base: newBase("addSubset",
				"gftools-add-ds-subsets $args -y $subsetfile -o $out $in", p)}
		})
}
