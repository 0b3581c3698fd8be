// Package source describes font source files. A Source wraps a path and
// lazily exposes derived facts: format kind, family name, whether the file
// spans multiple interpolation masters, and the named instances it declares.
//
// Descriptors are interned per canonical path by a Catalog so that the same
// file referenced from several recipe chains resolves to the same object,
// and parse work is done at most once per run.
package source

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// Error is a fatal source fault: the format could not be determined or the
// file could not be parsed. It is fatal for the chain referencing the file.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("source %s: %v", e.Path, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Kind is the source format family.
type Kind int

const (
	Glyphs Kind = iota
	UFO
	Designspace
)

func (k Kind) String() string {
	switch k {
	case Glyphs:
		return "glyphs"
	case UFO:
		return "ufo"
	case Designspace:
		return "designspace"
	}
	return "unknown"
}

// Instance is a named point in the design space, realized as a static font.
type Instance struct {
	Name       string
	FamilyName string
	StyleName  string
	Filename   string
	Location   map[string]float64
}

// facts holds the lazily computed attributes of a Source.
type facts struct {
	variable   bool
	familyName string
	axisTags   []string
	instances  []Instance
}

// Source is an immutable descriptor for one font source file. Derived
// attributes are parsed on first access and memoized; the parse result is
// shared by every chain referencing the path.
type Source struct {
	Path string
	Kind Kind

	once  sync.Once
	facts facts
	err   error
}

// Basename is the path's final element.
func (s *Source) Basename() string { return filepath.Base(s.Path) }

// Stem is the basename without its extension.
func (s *Source) Stem() string {
	base := s.Basename()
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (s *Source) load() error {
	s.once.Do(func() {
		var f facts
		var err error
		switch s.Kind {
		case Designspace:
			f, err = designspaceFacts(s.Path)
		case UFO:
			f, err = ufoFacts(s.Path)
		case Glyphs:
			f, err = glyphsFacts(s.Path)
		}
		if err != nil {
			s.err = &Error{Path: s.Path, Err: err}
			return
		}
		s.facts = f
	})
	return s.err
}

// IsVariable reports whether the source declares two or more interpolation
// masters. A single-master UFO is never variable.
func (s *Source) IsVariable() (bool, error) {
	if err := s.load(); err != nil {
		return false, err
	}
	return s.facts.variable, nil
}

// FamilyName is the family name declared by the source.
func (s *Source) FamilyName() (string, error) {
	if err := s.load(); err != nil {
		return "", err
	}
	return s.facts.familyName, nil
}

// AxisTags returns the declared axis tags in document order.
func (s *Source) AxisTags() ([]string, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	return s.facts.axisTags, nil
}

// Instances enumerates the named instances to realize as static fonts. For
// a single-master UFO this is one synthetic instance named after the file.
func (s *Source) Instances() ([]Instance, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	return s.facts.instances, nil
}

// Catalog interns Source descriptors by canonical path for one compiler
// run. Downstream identity checks rely on pointer equality, so Describe
// must return the same *Source for every spelling of the same file.
type Catalog struct {
	mu     sync.Mutex
	byPath map[string]*Source
}

// NewCatalog returns an empty run-scoped catalog.
func NewCatalog() *Catalog {
	return &Catalog{byPath: make(map[string]*Source)}
}

// Describe resolves a path to its interned descriptor, creating it on first
// reference. The format kind is sniffed from the extension; unknown formats
// are an Error.
func (c *Catalog) Describe(path string) (*Source, error) {
	canonical, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.byPath[canonical]; ok {
		return s, nil
	}
	kind, err := kindOf(path)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	s := &Source{Path: path, Kind: kind}
	c.byPath[canonical] = s
	return s, nil
}

func kindOf(path string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".glyphs", ".glyphspackage":
		return Glyphs, nil
	case ".ufo":
		return UFO, nil
	case ".designspace":
		return Designspace, nil
	}
	return 0, fmt.Errorf("cannot determine source format of %q", filepath.Base(path))
}
