package main

import (
	"os"

	"statement-splitter/cmd/splitter/cmd"
	"statement-splitter/internal/reporter"
	splittererrors "statement-splitter/pkg/errors"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, date)

	if err := cmd.Execute(); err != nil {
		reporter.WriteError(err, os.Stderr)
		os.Exit(splittererrors.ExitCode(err))
	}
}
