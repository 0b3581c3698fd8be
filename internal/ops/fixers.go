package ops

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

type fix struct{ Base }

func (op *fix) Variables() map[string]string {
	vars := op.Base.Variables()
	vars["fixargs"] = vars["args"]
	delete(vars, "args")
	return vars
}

type autohint struct{ Base }

func (op *autohint) Variables() map[string]string {
	vars := op.Base.Variables()
	if v, ok := vars["autohint_args"]; ok {
		vars["args"] = v
		delete(vars, "autohint_args")
	}
	if _, ok := vars["args"]; !ok {
		vars["args"] = ""
	}
	return vars
}

type autohintOTF struct{ Base }

type rename struct{ Base }

func (op *rename) Validate() error { return op.requireParam("name") }

type remap struct{ Base }

func (op *remap) Validate() error {
	if err := op.requireParam("mappings"); err != nil {
		return err
	}
	if _, ok := op.params["mappings"].(map[string]any); !ok {
		return fmt.Errorf("remap: mappings must be a map")
	}
	return nil
}

func (op *remap) Variables() map[string]string {
	vars := op.Base.Variables()
	mappings := op.params["mappings"].(map[string]any)
	keys := make([]string, 0, len(mappings))
	for k := range mappings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, mappings[k]))
	}
	vars["mappings"] = strings.Join(pairs, " ")
	return vars
}

// addChws always writes next to its input with a fixed -chws suffix; the
// target is not caller-assignable.
type addChws struct{ Base }

func (op *addChws) DeriveTarget(input string) (string, error) {
	ext := filepath.Ext(input)
	op.target = strings.TrimSuffix(input, ext) + "-chws" + ext
	return op.target, nil
}

func init() {
	register("fix", "Run the font fixer",
		func(p map[string]any) Operation {
			return &fix{newBase("fix", "gftools-fix-font -o $out $fixargs $in", p)}
		})
	register("autohint", "Autohint a TTF",
		func(p map[string]any) Operation {
			return &autohint{newBase("autohint", "gftools-autohint $args -o $out $in", p)}
		})
	register("autohintOTF", "Autohint an OTF",
		func(p map[string]any) Operation {
			return &autohintOTF{newBase("autohintOTF", "otfautohint $args -o $out $in", p)}
		})
	register("rename", "Rename a font",
		func(p map[string]any) Operation {
			return &rename{newBase("rename", `gftools-rename-font -o $out $in "$name"`, p)}
		})
	register("remap", "Remap a font's cmap table",
		func(p map[string]any) Operation {
			return &remap{newBase("remap", "gftools-remap-font -o $out $in $mappings", p)}
		})
	register("addChws", "Add a chws feature to a font",
		func(p map[string]any) Operation {
			return &addChws{newBase("addChws", "add-chws -o $out $in", p)}
		})
}
