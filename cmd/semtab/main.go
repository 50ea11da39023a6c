// Package main provides the entry point for the semtab CLI tool.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tablab/semtab/cmd/semtab/cmd"
	"github.com/tablab/semtab/pkg/logging"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, version, commit); err != nil {
		logging.Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
