package ops

import "fmt"

// buildStat is the single-target operation variant of STAT generation. The
// underlying tool mutates fonts in place, so the rule runs it against the
// input and then moves the produced file onto the declared target.
type buildStat struct{ Base }

func (op *buildStat) Validate() error {
	if op.hasParam("needs") {
		return fmt.Errorf("buildStat: as an operation step this takes exactly one target; use a postprocess step to span several")
	}
	return nil
}

func (op *buildStat) Variables() map[string]string {
	vars := op.Base.Variables()
	if _, ok := vars["args"]; !ok {
		vars["args"] = ""
	}
	return vars
}

// inPlace is shared by kinds whose tool mutates its inputs. The nominal
// build output is a stamp file so the executor can still order dependents;
// the artifact a following step consumes is the mutated input itself.
type inPlace struct {
	Base
	stampSuffix string
	post        bool
}

func (op *inPlace) RuleName() string {
	if op.post {
		return op.kind + "Post"
	}
	return op.kind
}

func (op *inPlace) Postprocess() bool { return op.post }

func (op *inPlace) Artifact() string { return op.firstSource() }

func (op *inPlace) DeriveTarget(input string) (string, error) {
	op.target = input + op.stampSuffix
	return op.target, nil
}

func (op *inPlace) Variables() map[string]string {
	vars := op.Base.Variables()
	if _, ok := vars["args"]; !ok {
		vars["args"] = ""
	}
	return vars
}

func init() {
	register("buildStat", "Build a STAT table from one or more variable fonts",
		func(p map[string]any) Operation {
			return &buildStat{newBase("buildStat",
				"gftools-gen-stat $args -- $in && mv $in.fix $out", p)}
		})
	registerPost("buildStat",
		func(p map[string]any) Operation {
			return &inPlace{
				Base: newBase("buildStat",
					"gftools-gen-stat --inplace $args -- $in && touch $out", p),
				stampSuffix: ".statstamp",
				post:        true,
			}
		})
	register("buildAvar2", "Regenerate an avar v2 table in place",
		func(p map[string]any) Operation {
			return &inPlace{
				Base: newBase("buildAvar2",
					"gftools-gen-avar2 --inplace $in $args && touch $out", p),
				stampSuffix: ".avar2stamp",
			}
		})
	registerPost("buildAvar2",
		func(p map[string]any) Operation {
			return &inPlace{
				Base: newBase("buildAvar2",
					"gftools-gen-avar2 --inplace $in $args && touch $out", p),
				stampSuffix: ".avar2stamp",
				post:        true,
			}
		})
	register("buildFvarInstances", "Regenerate fvar instances in place",
		func(p map[string]any) Operation {
			return &inPlace{
				Base: newBase("buildFvarInstances",
					"gftools-gen-fvar-instances --inplace $in $args && touch $out", p),
				stampSuffix: ".fvarstamp",
			}
		})
	registerPost("buildFvarInstances",
		func(p map[string]any) Operation {
			return &inPlace{
				Base: newBase("buildFvarInstances",
					"gftools-gen-fvar-instances --inplace $in $args && touch $out", p),
				stampSuffix: ".fvarstamp",
				post:        true,
			}
		})
}
