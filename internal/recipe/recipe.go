// Package recipe defines the intermediate build description: a mapping from
// output path to the ordered list of steps that produce it, plus the named
// provider registry that expands a configuration into such a mapping.
package recipe

import (
	"fmt"
	"sort"
)

// Error is a fault in a recipe step: an unknown operation kind, a malformed
// parameter, or an unresolvable needs reference. Step is the zero-based
// index within the target's chain, or -1 when the fault is not step-scoped.
type Error struct {
	Target string
	Step   int
	Err    error
}

func (e *Error) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("recipe: %v", e.Err)
	}
	if e.Step < 0 {
		return fmt.Sprintf("recipe: target %s: %v", e.Target, e.Err)
	}
	return fmt.Sprintf("recipe: target %s step %d: %v", e.Target, e.Step, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Step is one entry in a target's chain. Exactly one of Source, Operation
// and PostProcess is set. Params carries the step's free-form parameters;
// Needs names other targets a postprocess step depends on.
type Step struct {
	Source      string
	Operation   string
	PostProcess string
	Needs       []string
	Params      map[string]any
}

// IsSource reports whether the step is a chain root.
func (s Step) IsSource() bool { return s.Source != "" }

// Kind is the operation or postprocess kind, empty for source steps.
func (s Step) Kind() string {
	if s.PostProcess != "" {
		return s.PostProcess
	}
	return s.Operation
}

func (s Step) clone() Step {
	out := s
	if s.Params != nil {
		out.Params = make(map[string]any, len(s.Params))
		for k, v := range s.Params {
			out.Params[k] = v
		}
	}
	out.Needs = append([]string(nil), s.Needs...)
	return out
}

// MarshalYAML renders the step in the flat wire shape: a map holding the
// source / operation / postprocess key alongside the parameters.
func (s Step) MarshalYAML() (any, error) {
	m := map[string]any{}
	switch {
	case s.Source != "":
		m["source"] = s.Source
	case s.PostProcess != "":
		m["postprocess"] = s.PostProcess
	default:
		m["operation"] = s.Operation
	}
	for k, v := range s.Params {
		m[k] = v
	}
	if len(s.Needs) > 0 {
		m["needs"] = s.Needs
	}
	return m, nil
}

// ParseStep decodes the flat wire shape into a Step.
func ParseStep(m map[string]any) (Step, error) {
	var s Step
	s.Params = map[string]any{}
	for k, v := range m {
		switch k {
		case "source":
			str, ok := v.(string)
			if !ok {
				return s, fmt.Errorf("source must be a string, got %T", v)
			}
			s.Source = str
		case "operation":
			str, ok := v.(string)
			if !ok {
				return s, fmt.Errorf("operation must be a string, got %T", v)
			}
			s.Operation = str
		case "postprocess":
			str, ok := v.(string)
			if !ok {
				return s, fmt.Errorf("postprocess must be a string, got %T", v)
			}
			s.PostProcess = str
		case "needs":
			switch needs := v.(type) {
			case []any:
				for _, n := range needs {
					str, ok := n.(string)
					if !ok {
						return s, fmt.Errorf("needs entries must be strings, got %T", n)
					}
					s.Needs = append(s.Needs, str)
				}
			case []string:
				s.Needs = append(s.Needs, needs...)
			default:
				return s, fmt.Errorf("needs must be a list, got %T", v)
			}
		default:
			s.Params[k] = v
		}
	}
	set := 0
	for _, v := range []string{s.Source, s.Operation, s.PostProcess} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return s, fmt.Errorf("step must have exactly one of source, operation or postprocess")
	}
	return s, nil
}

// Recipe maps each output path to the ordered steps producing it.
type Recipe map[string][]Step

// Targets returns the output paths in sorted order.
func (r Recipe) Targets() []string {
	out := make([]string, 0, len(r))
	for t := range r {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Parse decodes a recipe given in wire shape, as embedded in a config
// document under the recipe key.
func Parse(raw map[string][]map[string]any) (Recipe, error) {
	r := make(Recipe, len(raw))
	for target, steps := range raw {
		if len(steps) == 0 {
			return nil, &Error{Target: target, Step: -1, Err: fmt.Errorf("empty step chain")}
		}
		chain := make([]Step, 0, len(steps))
		for i, m := range steps {
			step, err := ParseStep(m)
			if err != nil {
				return nil, &Error{Target: target, Step: i, Err: err}
			}
			chain = append(chain, step)
		}
		r[target] = chain
	}
	return r, nil
}

func cloneSteps(steps []Step) []Step {
	out := make([]Step, len(steps))
	for i, s := range steps {
		out[i] = s.clone()
	}
	return out
}
