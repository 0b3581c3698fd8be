// Package executil runs the external ninja executor and tears down a run's
// transient artifacts.
package executil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/fontpipe/fontpipe/internal/compiler"
	"github.com/fontpipe/fontpipe/internal/ops"
)

// ExitError carries the executor's exit status so the CLI can mirror it.
type ExitError struct{ Code int }

func (e *ExitError) Error() string {
	return fmt.Sprintf("ninja exited with status %d", e.Code)
}

// RunNinja executes ninja against the given build file, streaming its
// output to the terminal. A failing ninja run comes back as *ExitError.
func RunNinja(ctx context.Context, buildFile string, extraArgs []string) error {
	args := append([]string{"-f", buildFile}, extraArgs...)
	cmd := exec.CommandContext(ctx, "ninja", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	if err := cmd.Run(); err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return &ExitError{Code: ee.ExitCode()}
		}
		return fmt.Errorf("run ninja: %w", err)
	}
	return nil
}

// CleanUp removes the run's transient artifacts: stamp files, instance UFO
// directories, the scratch directory, the build file and ninja's log. It
// must only run after the build succeeded and the cache commit finished;
// removing inputs first would poison the next incremental run.
func CleanUp(g *compiler.Graph, buildFile string) error {
	var firstErr error
	rm := func(path string) {
		if err := os.RemoveAll(path); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, n := range g.BuildNodes() {
		op := n.Op()
		if op.Output() != op.Artifact() {
			rm(op.Output())
		}
		if op.Kind() == "instantiateUfo" && strings.Contains(op.Output(), "instance_ufos") {
			rm(filepath.Dir(op.Output()))
		}
	}
	rm(ops.ScratchDirName)
	rm(buildFile)
	rm(".ninja_log")
	return firstErr
}
