package main

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	configPath string
)

// rootCmd is the base command when bundlecore is called without a
// subcommand, the same shape cobra-based CLIs in the corpus use: child
// commands (build, stats) each own their own flags, root only carries the
// ones every child needs.
var rootCmd = &cobra.Command{
	Use:   "bundlecore",
	Short: "A JS/TS/CSS module bundler",
	Long:  "bundlecore factorizes a module graph from one or more entries, builds a chunk graph, and emits the rendered assets.",
}

// Execute runs the command tree; main.main calls this once.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(statsCmd)
}

func fatalf(format string, args ...any) {
	pterm.Error.Printf(format+"\n", args...)
	os.Exit(1)
}
