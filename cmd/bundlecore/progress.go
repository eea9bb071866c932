package main

import (
	"os"

	"github.com/bundlecore/bundlecore/internal/logger"
	"github.com/pterm/pterm"
)

// progressReporter prints build phases to stderr, the same
// pterm.Info/Success/Warning/Error prefix-printer surface other corpus CLIs
// use for human-facing status. --progress=false (or a non-TTY stderr, e.g.
// piped into a log file) drops to plain pterm.Println so output stays
// greppable instead of carrying spinner control codes.
type progressReporter struct {
	enabled bool
}

func newProgressReporter(wantProgress bool) *progressReporter {
	pterm.SetDefaultOutput(os.Stderr)
	info := logger.GetTerminalInfo(os.Stderr)
	return &progressReporter{enabled: wantProgress && info.IsTTY}
}

func (p *progressReporter) Phase(name string) {
	if p.enabled {
		pterm.Info.Printf("%s\n", name)
		return
	}
	pterm.Println(name)
}

func (p *progressReporter) Done(summary string) {
	if p.enabled {
		pterm.Success.Printf("%s\n", summary)
		return
	}
	pterm.Println(summary)
}

func (p *progressReporter) Warn(format string, args ...any) {
	pterm.Warning.Printf(format+"\n", args...)
}
