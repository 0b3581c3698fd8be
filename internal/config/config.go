// Package config loads and validates the build configuration document.
//
// A configuration describes one font family build: the source files, which
// output flavours to produce, where to put them, and per-operation argument
// overrides. Two front ends are supported — YAML (the documented default)
// and HCL — both decoding into the same Config value, so everything
// downstream of LoadFile is format-agnostic.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Error is a fatal configuration fault: a bad or missing top-level field,
// an unknown recipe provider, or an unreadable config document. It aborts
// the run before any graph work starts.
type Error struct {
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func errf(field, format string, args ...any) *Error {
	return &Error{Field: field, Err: fmt.Errorf(format, args...)}
}

// Config is the parsed build configuration. Boolean toggles are pointers in
// the wire form so that "absent" and "false" can be told apart when defaults
// are applied; after ApplyDefaults every pointer is non-nil.
type Config struct {
	Sources        []string `yaml:"sources"`
	RecipeProvider string   `yaml:"recipeProvider"`
	FamilyName     string   `yaml:"familyName"`

	OutputDir string `yaml:"outputDir"`
	VFDir     string `yaml:"vfDir"`
	TTDir     string `yaml:"ttDir"`
	OTDir     string `yaml:"otDir"`
	WOFFDir   string `yaml:"woffDir"`

	BuildVariable *bool `yaml:"buildVariable"`
	BuildStatic   *bool `yaml:"buildStatic"`
	BuildTTF      *bool `yaml:"buildTTF"`
	BuildOTF      *bool `yaml:"buildOTF"`
	BuildWebfont  *bool `yaml:"buildWebfont"`
	AutohintTTF   *bool `yaml:"autohintTTF"`
	AutohintOTF   *bool `yaml:"autohintOTF"`
	CleanUp       *bool `yaml:"cleanUp"`

	IncludeSourceFixes             bool  `yaml:"includeSourceFixes"`
	FlattenComponents              *bool `yaml:"flattenComponents"`
	DecomposeTransformedComponents *bool `yaml:"decomposeTransformedComponents"`
	CheckCompatibility             *bool `yaml:"checkCompatibility"`
	RemoveOutlineOverlaps          *bool `yaml:"removeOutlineOverlaps"`
	ReverseOutlineDirection        *bool `yaml:"reverseOutlineDirection"`

	AxisOrder      []string `yaml:"axisOrder"`
	GlyphData      []string `yaml:"glyphData"`
	IncludeSubsets []any    `yaml:"includeSubsets"`

	// Stat is an opaque STAT table description handed to gftools-gen-stat
	// through an auxiliary file. The compiler never interprets it.
	Stat any `yaml:"stat"`

	ExtraFontmakeArgs         string `yaml:"extraFontmakeArgs"`
	ExtraVariableFontmakeArgs string `yaml:"extraVariableFontmakeArgs"`
	ExtraStaticFontmakeArgs   string `yaml:"extraStaticFontmakeArgs"`

	// OperationArgs appends free-form arguments to every node of the given
	// operation kind, e.g. {fix: "--include-source-fixes"}.
	OperationArgs map[string]string `yaml:"operationArgs"`

	// Recipe, when present, bypasses the recipe provider entirely and is
	// compiled as-is. Step maps use the same shape the provider emits.
	Recipe map[string][]map[string]any `yaml:"recipe"`

	LogLevel string `yaml:"logLevel"`

	// Path of the document this config was loaded from, for cache keying.
	Path string `yaml:"-"`
}

// LoadFile reads a config document, dispatching on the file extension.
// The returned Config has defaults applied and output directories expanded.
func LoadFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("read %s: %w", path, err)}
	}
	var cfg *Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		cfg, err = parseYAML(raw, path)
	case ".hcl":
		cfg, err = parseHCL(raw, path)
	default:
		return nil, errf("", "unsupported config format %q (want .yaml or .hcl)", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	cfg.Path = path
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseYAML(raw []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, &Error{Err: fmt.Errorf("parse %s: %w", path, err)}
	}
	return &cfg, nil
}

func boolDefault(p **bool, v bool) {
	if *p == nil {
		b := v
		*p = &b
	}
}

// ApplyDefaults fills unset fields with the standard layout and toggle
// defaults, then expands $outputDir references in the directory fields.
func (c *Config) ApplyDefaults() {
	if c.RecipeProvider == "" {
		c.RecipeProvider = "googlefonts"
	}
	if c.OutputDir == "" {
		c.OutputDir = "../fonts"
	}
	if c.VFDir == "" {
		c.VFDir = "$outputDir/variable"
	}
	if c.TTDir == "" {
		c.TTDir = "$outputDir/ttf"
	}
	if c.OTDir == "" {
		c.OTDir = "$outputDir/otf"
	}
	if c.WOFFDir == "" {
		c.WOFFDir = "$outputDir/webfonts"
	}
	for _, dir := range []*string{&c.VFDir, &c.TTDir, &c.OTDir, &c.WOFFDir} {
		*dir = strings.ReplaceAll(*dir, "$outputDir", c.OutputDir)
	}

	boolDefault(&c.BuildVariable, true)
	boolDefault(&c.BuildStatic, true)
	boolDefault(&c.BuildTTF, true)
	boolDefault(&c.BuildOTF, true)
	// Webfonts default to following the static toggle.
	boolDefault(&c.BuildWebfont, *c.BuildStatic)
	boolDefault(&c.AutohintTTF, true)
	boolDefault(&c.AutohintOTF, false)
	boolDefault(&c.CleanUp, true)
	boolDefault(&c.FlattenComponents, true)
	boolDefault(&c.DecomposeTransformedComponents, true)
	boolDefault(&c.CheckCompatibility, true)
	boolDefault(&c.RemoveOutlineOverlaps, true)
	boolDefault(&c.ReverseOutlineDirection, true)

	if c.LogLevel == "" {
		c.LogLevel = "WARN"
	}
}

// Validate checks required fields. Defaults must already be applied.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 && len(c.Recipe) == 0 {
		return errf("sources", "at least one source file is required")
	}
	for _, s := range c.Sources {
		if s == "" {
			return errf("sources", "empty source path")
		}
	}
	return nil
}
