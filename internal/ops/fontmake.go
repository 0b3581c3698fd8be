package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fontpipe/fontpipe/internal/source"
)

// SourceResolver lets operations that must introspect their input (e.g.
// instance existence checks) reach the run's source catalog without owning
// it. The compiler injects one; standalone construction leaves it nil and
// skips descriptor-backed checks.
type SourceResolver func(path string) (*source.Source, error)

// fontmakeBase adds the $fontmake_type variable shared by every fontmake
// invocation, chosen from the input file's format.
type fontmakeBase struct {
	Base
}

func fontmakeType(path string) string {
	switch {
	case strings.HasSuffix(path, ".glyphs"), strings.HasSuffix(path, ".glyphspackage"):
		return "-g"
	case strings.HasSuffix(path, ".designspace"):
		return "-m"
	case strings.HasSuffix(path, ".ufo"), strings.HasSuffix(path, ".ufo.json"):
		return "-u"
	}
	return "-u"
}

func (f *fontmakeBase) Variables() map[string]string {
	vars := f.Base.Variables()
	vars["fontmake_type"] = fontmakeType(f.firstSource())
	if _, ok := vars["args"]; !ok {
		vars["args"] = ""
	}
	return vars
}

type buildVariable struct{ fontmakeBase }

func (*buildVariable) OutputExt() string { return ".ttf" }

type buildTTF struct{ fontmakeBase }

func (*buildTTF) OutputExt() string { return ".ttf" }

type buildOTF struct{ fontmakeBase }

func (*buildOTF) OutputExt() string { return ".otf" }

// instantiateUFO realizes one named instance of a multi-master source as a
// single-master UFO. Its target is derived (instance_ufos next to the
// source); callers cannot assign one.
type instantiateUFO struct {
	fontmakeBase
	resolve SourceResolver
}

// SetSourceResolver wires the run's catalog in for instance validation.
func (op *instantiateUFO) SetSourceResolver(r SourceResolver) { op.resolve = r }

func (op *instantiateUFO) Validate() error {
	if err := op.requireParam("instance_name"); err != nil {
		return err
	}
	if op.hasParam("target") || op.resolve == nil {
		return nil
	}
	inst, err := op.relevantInstance()
	if err != nil {
		return err
	}
	if inst == nil {
		return fmt.Errorf("instantiateUfo: instance %q not found in %s",
			op.stringParam("instance_name"), op.firstSource())
	}
	return nil
}

func (op *instantiateUFO) relevantInstance() (*source.Instance, error) {
	src, err := op.resolve(op.firstSource())
	if err != nil {
		return nil, err
	}
	instances, err := src.Instances()
	if err != nil {
		return nil, err
	}
	desired := op.stringParam("instance_name")
	for i := range instances {
		if instances[i].Name == desired {
			return &instances[i], nil
		}
	}
	return nil, nil
}

func (op *instantiateUFO) instanceDir(input string) string {
	return filepath.Join(filepath.Dir(input), "instance_ufos")
}

func (op *instantiateUFO) DeriveTarget(input string) (string, error) {
	if t := op.stringParam("target"); t != "" {
		op.target = t
		return t, nil
	}
	if op.resolve == nil {
		return "", fmt.Errorf("instantiateUfo: no target given and no source catalog available")
	}
	inst, err := op.relevantInstance()
	if err != nil {
		return "", err
	}
	if inst == nil {
		return "", fmt.Errorf("instantiateUfo: instance %q not found in %s",
			op.stringParam("instance_name"), input)
	}
	op.target = filepath.Join(op.instanceDir(input), filepath.Base(inst.Filename)+".json")
	return op.target, nil
}

func (op *instantiateUFO) Variables() map[string]string {
	vars := op.fontmakeBase.Variables()
	args := vars["args"]
	args += " --ufo-structure=json"
	dir := op.instanceDir(op.firstSource())
	if fontmakeType(op.firstSource()) == "-g" {
		args += " --instance-dir " + dir
	} else {
		args += " --output-dir " + dir
	}
	vars["args"] = strings.TrimSpace(args)
	vars["instance_name"] = op.stringParam("instance_name")
	return vars
}

// glyphs2DS converts a Glyphs source into a designspace plus master UFOs in
// a scratch directory the operation privately owns.
type glyphs2DS struct {
	fontmakeBase
	scratchDir string
}

func (op *glyphs2DS) SetScratchDir(dir string) { op.scratchDir = dir }

func (op *glyphs2DS) outDir() string {
	if d := op.stringParam("directory"); d != "" {
		return d
	}
	return filepath.Join(op.scratchDir, stemOf(op.firstSource())+"-master-ufo")
}

func (op *glyphs2DS) DeriveTarget(input string) (string, error) {
	op.target = filepath.Join(op.outDir(), stemOf(input)+".designspace")
	return op.target, nil
}

func (op *glyphs2DS) Materialize() error {
	return os.MkdirAll(op.outDir(), 0o755)
}

func (op *glyphs2DS) Variables() map[string]string {
	vars := op.fontmakeBase.Variables()
	delete(vars, "directory")
	vars["outdir"] = op.outDir()
	return vars
}

func init() {
	register("buildVariable", "Build a variable font from a source file",
		func(p map[string]any) Operation {
			return &buildVariable{fontmakeBase{newBase("buildVariable",
				"fontmake --output-path $out -o variable $fontmake_type $in $args", p)}}
		})
	register("buildTTF", "Build a TTF from a source file",
		func(p map[string]any) Operation {
			return &buildTTF{fontmakeBase{newBase("buildTTF",
				"fontmake --output-path $out -o ttf $fontmake_type $in $args", p)}}
		})
	register("buildOTF", "Build an OTF from a source file",
		func(p map[string]any) Operation {
			return &buildOTF{fontmakeBase{newBase("buildOTF",
				"fontmake --output-path $out -o otf $fontmake_type $in $args", p)}}
		})
	register("instantiateUfo", "Create an instance UFO from a Glyphs or designspace file",
		func(p map[string]any) Operation {
			return &instantiateUFO{fontmakeBase: fontmakeBase{newBase("instantiateUfo",
				`fontmake -i "$instance_name" -o ufo $fontmake_type $in $args`, p)}}
		})
	register("glyphs2ds", "Turn a Glyphs file into a designspace file",
		func(p map[string]any) Operation {
			return &glyphs2DS{fontmakeBase: fontmakeBase{newBase("glyphs2ds",
				"fontmake -o ufo -g $in --output-dir $outdir $args", p)}}
		})
}
