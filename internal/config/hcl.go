package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// hclConfig mirrors Config for the HCL front end. Free-form values (stat,
// includeSubsets) stay as expressions and are converted through cty after
// decoding, since their shape is not known to the schema.
type hclConfig struct {
	Sources        []string `hcl:"sources"`
	RecipeProvider *string  `hcl:"recipeProvider,optional"`
	FamilyName     *string  `hcl:"familyName,optional"`

	OutputDir *string `hcl:"outputDir,optional"`
	VFDir     *string `hcl:"vfDir,optional"`
	TTDir     *string `hcl:"ttDir,optional"`
	OTDir     *string `hcl:"otDir,optional"`
	WOFFDir   *string `hcl:"woffDir,optional"`

	BuildVariable *bool `hcl:"buildVariable,optional"`
	BuildStatic   *bool `hcl:"buildStatic,optional"`
	BuildTTF      *bool `hcl:"buildTTF,optional"`
	BuildOTF      *bool `hcl:"buildOTF,optional"`
	BuildWebfont  *bool `hcl:"buildWebfont,optional"`
	AutohintTTF   *bool `hcl:"autohintTTF,optional"`
	AutohintOTF   *bool `hcl:"autohintOTF,optional"`
	CleanUp       *bool `hcl:"cleanUp,optional"`

	IncludeSourceFixes             *bool `hcl:"includeSourceFixes,optional"`
	FlattenComponents              *bool `hcl:"flattenComponents,optional"`
	DecomposeTransformedComponents *bool `hcl:"decomposeTransformedComponents,optional"`
	CheckCompatibility             *bool `hcl:"checkCompatibility,optional"`
	RemoveOutlineOverlaps          *bool `hcl:"removeOutlineOverlaps,optional"`
	ReverseOutlineDirection        *bool `hcl:"reverseOutlineDirection,optional"`

	AxisOrder []string `hcl:"axisOrder,optional"`
	GlyphData []string `hcl:"glyphData,optional"`

	Stat           hcl.Expression `hcl:"stat,optional"`
	IncludeSubsets hcl.Expression `hcl:"includeSubsets,optional"`

	ExtraFontmakeArgs         *string `hcl:"extraFontmakeArgs,optional"`
	ExtraVariableFontmakeArgs *string `hcl:"extraVariableFontmakeArgs,optional"`
	ExtraStaticFontmakeArgs   *string `hcl:"extraStaticFontmakeArgs,optional"`

	OperationArgs map[string]string `hcl:"operationArgs,optional"`

	LogLevel *string `hcl:"logLevel,optional"`
}

func parseHCL(raw []byte, path string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(raw, path)
	if diags.HasErrors() {
		return nil, &Error{Err: fmt.Errorf("parse %s: %w", path, diags)}
	}
	var hc hclConfig
	if diags := gohcl.DecodeBody(file.Body, nil, &hc); diags.HasErrors() {
		return nil, &Error{Err: fmt.Errorf("decode %s: %w", path, diags)}
	}

	cfg := &Config{
		Sources:       hc.Sources,
		AxisOrder:     hc.AxisOrder,
		GlyphData:     hc.GlyphData,
		OperationArgs: hc.OperationArgs,
	}
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&cfg.RecipeProvider, hc.RecipeProvider)
	setString(&cfg.FamilyName, hc.FamilyName)
	setString(&cfg.OutputDir, hc.OutputDir)
	setString(&cfg.VFDir, hc.VFDir)
	setString(&cfg.TTDir, hc.TTDir)
	setString(&cfg.OTDir, hc.OTDir)
	setString(&cfg.WOFFDir, hc.WOFFDir)
	setString(&cfg.ExtraFontmakeArgs, hc.ExtraFontmakeArgs)
	setString(&cfg.ExtraVariableFontmakeArgs, hc.ExtraVariableFontmakeArgs)
	setString(&cfg.ExtraStaticFontmakeArgs, hc.ExtraStaticFontmakeArgs)
	setString(&cfg.LogLevel, hc.LogLevel)

	cfg.BuildVariable = hc.BuildVariable
	cfg.BuildStatic = hc.BuildStatic
	cfg.BuildTTF = hc.BuildTTF
	cfg.BuildOTF = hc.BuildOTF
	cfg.BuildWebfont = hc.BuildWebfont
	cfg.AutohintTTF = hc.AutohintTTF
	cfg.AutohintOTF = hc.AutohintOTF
	cfg.CleanUp = hc.CleanUp
	cfg.FlattenComponents = hc.FlattenComponents
	cfg.DecomposeTransformedComponents = hc.DecomposeTransformedComponents
	cfg.CheckCompatibility = hc.CheckCompatibility
	cfg.RemoveOutlineOverlaps = hc.RemoveOutlineOverlaps
	cfg.ReverseOutlineDirection = hc.ReverseOutlineDirection
	if hc.IncludeSourceFixes != nil {
		cfg.IncludeSourceFixes = *hc.IncludeSourceFixes
	}

	var err error
	if cfg.Stat, err = exprToGo(hc.Stat); err != nil {
		return nil, errf("stat", "%v", err)
	}
	subsets, err := exprToGo(hc.IncludeSubsets)
	if err != nil {
		return nil, errf("includeSubsets", "%v", err)
	}
	if subsets != nil {
		list, ok := subsets.([]any)
		if !ok {
			return nil, errf("includeSubsets", "must be a list")
		}
		cfg.IncludeSubsets = list
	}
	return cfg, nil
}

// exprToGo evaluates a literal HCL expression and converts the resulting
// cty value into plain Go data. Nil expressions yield nil.
func exprToGo(expr hcl.Expression) (any, error) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return nil, nil
	}
	return ctyToGo(val)
}

// ctyToGo lowers a cty value to maps, slices, strings, floats and bools.
func ctyToGo(val cty.Value) (any, error) {
	if val.IsNull() {
		return nil, nil
	}
	ty := val.Type()
	switch {
	case ty == cty.String:
		return val.AsString(), nil
	case ty == cty.Number:
		f, _ := val.AsBigFloat().Float64()
		if val.AsBigFloat().IsInt() {
			return int(f), nil
		}
		return f, nil
	case ty == cty.Bool:
		return val.True(), nil
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			gv, err := ctyToGo(ev)
			if err != nil {
				return nil, err
			}
			out = append(out, gv)
		}
		return out, nil
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			kv, ev := it.Element()
			gv, err := ctyToGo(ev)
			if err != nil {
				return nil, err
			}
			out[kv.AsString()] = gv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}
