package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bundlecore/bundlecore/internal/codegen"
	"github.com/bundlecore/bundlecore/internal/config"
	"github.com/bundlecore/bundlecore/internal/parseplugin"
	"github.com/bundlecore/bundlecore/internal/workpool"
	"github.com/bundlecore/bundlecore/pkg/bundlecore"
)

var (
	entryFlags  []string
	outDir      string
	statsPath   string
	workerCount int
	wantProgress bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Factorize, chunk, and render a module graph",
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().StringArrayVar(&entryFlags, "entry", nil, "name=path entry, repeatable")
	buildCmd.Flags().StringVar(&outDir, "out", "dist", "output directory")
	buildCmd.Flags().StringVar(&statsPath, "stats", "", "write a stats.json describing the build")
	buildCmd.Flags().IntVar(&workerCount, "workers", 0, "factorize/generate worker count (0 = GOMAXPROCS)")
	buildCmd.Flags().BoolVar(&wantProgress, "progress", true, "print build phases to stderr")
}

func runBuild(cmd *cobra.Command, _ []string) error {
	entries, err := parseEntryFlags(entryFlags)
	if err != nil {
		return err
	}

	raw, err := config.Load(configPath, func(v *viper.Viper) error {
		return v.BindPFlags(cmd.Flags())
	})
	if err != nil {
		return err
	}
	opts := raw.ToCompilerOptions(config.CompilerOptions{Entries: entries})

	reporter := newProgressReporter(wantProgress)
	reporter.Phase("factorizing module graph")

	stats, err := bundlecore.Compile(cmd.Context(), bundlecore.Inputs{
		Options:    opts,
		Resolver:   fsResolver{},
		Load:       loadFromDisk,
		Parsers:    parseplugin.NewRegistry(parseplugin.ESMScanner{}, parseplugin.CSSImportScanner{}),
		Generators: codegen.NewRegistry(passthroughGenerator{}),
		Pool:       workpool.New(workerCount),
	})
	if err != nil {
		return err
	}

	reporter.Phase("writing assets")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, asset := range stats.Assets {
		dest := filepath.Join(outDir, asset.Filename)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(dest, asset.Source, 0o644); err != nil {
			return err
		}
	}

	if statsPath != "" {
		if err := writeStatsFile(statsPath, stats); err != nil {
			return err
		}
	}

	reporter.Done(buildSummary(stats))
	return nil
}

// parseEntryFlags turns repeated --entry name=path flags into
// config.EntryOptions, the same flag shape bennypowers-cem uses for its own
// repeatable --package flag.
func parseEntryFlags(flags []string) ([]config.EntryOptions, error) {
	entries := make([]config.EntryOptions, 0, len(flags))
	for _, f := range flags {
		name, path, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --entry %q, want name=path", f)
		}
		entries = append(entries, config.EntryOptions{Name: name, Import: path})
	}
	return entries, nil
}

type statsFile struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Chunks      int       `json:"chunks"`
	Modules     int       `json:"modules"`
	Runtimes    []string  `json:"runtimes"`
	Assets      []string  `json:"assets"`
}

func writeStatsFile(path string, stats *bundlecore.Stats) error {
	names := make([]string, len(stats.Assets))
	for i, a := range stats.Assets {
		names[i] = a.Filename
	}
	payload := statsFile{
		GeneratedAt: time.Now(),
		Chunks:      stats.Chunks,
		Modules:     stats.Modules,
		Runtimes:    stats.Runtimes,
		Assets:      names,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func buildSummary(stats *bundlecore.Stats) string {
	return fmt.Sprintf("built %d asset(s) from %d chunk(s)", len(stats.Assets), stats.Chunks)
}
