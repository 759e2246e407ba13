package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/harrison/qasuite/internal/cmd"
)

// Version is the current version of the qasuite application
const Version = "1.0.0"

// applyVersion fills in cmd.Version unless it was set at link time
func applyVersion() {
	if cmd.Version == "dev" {
		cmd.Version = Version
	}
}

func main() {
	applyVersion()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cmd.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	os.Exit(code)
}
