package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"flowbridge/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write a default flowbridge configuration",
	Long: `Creates .flowbridge/config.json with the default settings in dir (default:
the current directory). An existing file is left alone unless --force is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	path, created, err := initConfig(absPath(dir), initForce)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !created {
		fmt.Fprintf(out, "flowbridge already initialized: %s\n", path)
		fmt.Fprintln(out, "Run 'flowbridge init --force' to overwrite it.")
		return nil
	}
	fmt.Fprintf(out, "Wrote %s\n", path)
	return nil
}

// initConfig saves the default config under dir. created is false when a
// config already exists and force is not set.
func initConfig(dir string, force bool) (path string, created bool, err error) {
	path = filepath.Join(dir, config.DirName, "config.json")
	if _, statErr := os.Stat(path); statErr == nil && !force {
		return path, false, nil
	}
	if err := config.DefaultConfig().Save(dir); err != nil {
		return path, false, fmt.Errorf("failed to write config: %w", err)
	}
	return path, true, nil
}
