package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fontpipe/fontpipe/internal/cache"
	"github.com/fontpipe/fontpipe/internal/compiler"
	"github.com/fontpipe/fontpipe/internal/config"
	"github.com/fontpipe/fontpipe/internal/executil"
	"github.com/fontpipe/fontpipe/internal/ninja"
	"github.com/fontpipe/fontpipe/internal/recipe"
	"github.com/fontpipe/fontpipe/internal/source"
)

var (
	recipeOnly bool
	emitOnly   bool
	graphFile  string
	ninjaArgs  []string
)

var buildCmd = &cobra.Command{
	Use:   "build <config>",
	Short: "Compile a font project and run the build",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuild(cmd.Context(), args[0])
	},
}

func init() {
	buildCmd.Flags().BoolVar(&recipeOnly, "recipe-only", false,
		"print the expanded recipe and stop")
	buildCmd.Flags().BoolVar(&emitOnly, "emit-only", false,
		"write the build file but do not run ninja")
	buildCmd.Flags().StringVar(&graphFile, "graph", "",
		"also write a Graphviz rendering of the build graph to this file")
	buildCmd.Flags().StringSliceVar(&ninjaArgs, "ninja-args", nil,
		"extra arguments passed to ninja")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(ctx context.Context, configPath string) error {
	cfg, configDir, err := loadProject(configPath)
	if err != nil {
		return err
	}

	catalog := source.NewCatalog()
	r, err := expandRecipe(cfg, catalog)
	if err != nil {
		return err
	}

	if recipeOnly {
		raw, err := yaml.Marshal(r)
		if err != nil {
			return fmt.Errorf("render recipe: %w", err)
		}
		fmt.Print(string(raw))
		return nil
	}

	g, err := compiler.Compile(cfg, r, catalog)
	if err != nil {
		return err
	}
	slog.Info("compiled build graph",
		"targets", len(g.Targets()), "nodes", len(g.Nodes()))

	if graphFile != "" {
		if err := os.WriteFile(graphFile, []byte(g.DOT()), 0o644); err != nil {
			return &ninja.Error{Err: fmt.Errorf("write graph: %w", err)}
		}
	}
	if err := ninja.EmitFile(ninja.DefaultFile, g, runtime.GOOS == "windows"); err != nil {
		return err
	}
	if emitOnly {
		return nil
	}

	if err := executil.RunNinja(ctx, ninja.DefaultFile, ninjaArgs); err != nil {
		return err
	}

	// Commit fingerprints before any cleanup so a crash between the two
	// leaves the cache honest about what was built.
	commitCache(cfg, configDir, g)
	if *cfg.CleanUp {
		if err := executil.CleanUp(g, ninja.DefaultFile); err != nil {
			slog.Warn("cleanup incomplete", "err", err)
		}
	}
	return nil
}

// loadProject loads the config and moves the process into its directory;
// recipes and build files use config-relative paths throughout.
func loadProject(configPath string) (*config.Config, string, error) {
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return nil, "", &config.Error{Err: err}
	}
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, "", err
	}
	cfg.Path = abs
	dir := filepath.Dir(abs)
	if err := os.Chdir(dir); err != nil {
		return nil, "", &config.Error{Err: fmt.Errorf("enter %s: %w", dir, err)}
	}
	return cfg, dir, nil
}

// expandRecipe resolves the provider, or compiles the config's inline
// recipe when one is given.
func expandRecipe(cfg *config.Config, catalog *source.Catalog) (recipe.Recipe, error) {
	if len(cfg.Recipe) > 0 {
		return recipe.Parse(cfg.Recipe)
	}
	srcs := make([]*source.Source, 0, len(cfg.Sources))
	for _, path := range cfg.Sources {
		src, err := catalog.Describe(path)
		if err != nil {
			return nil, err
		}
		srcs = append(srcs, src)
	}
	provider, err := recipe.Resolve(cfg.RecipeProvider)
	if err != nil {
		return nil, err
	}
	return provider.Recipe(cfg, srcs)
}

// commitCache records source and config fingerprints after a successful
// build. Failures are logged, not fatal: the fonts are already built.
func commitCache(cfg *config.Config, configDir string, g *compiler.Graph) {
	path, err := cache.DefaultPath()
	if err != nil {
		slog.Warn("cache unavailable", "err", err)
		return
	}
	c, err := cache.Open(path)
	if err != nil {
		slog.Warn("cache unavailable", "err", err)
		return
	}
	defer c.Close()
	if err := c.AddFiles(absPaths(configDir, g.SourcePaths())); err != nil {
		slog.Warn("cache commit failed", "err", err)
		return
	}
	if err := c.AddConfig(cfg); err != nil {
		slog.Warn("cache commit failed", "err", err)
	}
}

// absPaths keys cache records by absolute path so projects sharing the
// database cannot collide.
func absPaths(base string, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		if filepath.IsAbs(p) {
			out[i] = filepath.Clean(p)
		} else {
			out[i] = filepath.Join(base, p)
		}
	}
	return out
}
