package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vtejapy/new-cft2/internal/cli"
	"github.com/vtejapy/new-cft2/internal/logging"
)

// main is the entry point for the cftctl CLI binary. An interrupt cancels
// local observation of in-flight operations; it never aborts them remotely.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.NewLogger(os.Stderr, logging.LevelInfo)
	err := cli.Execute(ctx, os.Args[1:], logger)
	if err != nil {
		logger.Error("command failed", "error", err)
	}
	os.Exit(cli.ExitCode(err))
}
