package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fontpipe/fontpipe/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or reset the incremental build cache",
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status <config>",
	Short: "Report which build inputs changed since the last run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCacheStatus(args[0])
	},
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Drop all cached fingerprints",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache()
		if err != nil {
			return err
		}
		defer c.Close()
		return c.Clean()
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatusCmd, cacheCleanCmd)
	rootCmd.AddCommand(cacheCmd)
}

func openCache() (*cache.Cache, error) {
	path, err := cache.DefaultPath()
	if err != nil {
		return nil, err
	}
	return cache.Open(path)
}

func runCacheStatus(configPath string) error {
	cfg, configDir, err := loadProject(configPath)
	if err != nil {
		return err
	}
	c, err := openCache()
	if err != nil {
		return err
	}
	defer c.Close()

	changes, err := c.ChangedFiles(absPaths(configDir, cfg.Sources))
	if err != nil {
		return err
	}
	configChanged, err := c.ChangedConfig(cfg)
	if err != nil {
		return err
	}

	printGroup := func(label string, files []string) {
		for _, f := range files {
			fmt.Printf("%-9s %s\n", label, f)
		}
	}
	printGroup("new", changes.New)
	printGroup("modified", changes.Modified)
	printGroup("missing", changes.Missing)
	if configChanged {
		fmt.Printf("%-9s %s\n", "modified", cfg.Path)
	}
	if changes.Empty() && !configChanged {
		fmt.Println("up to date")
	}
	return nil
}
