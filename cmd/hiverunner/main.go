package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/koustreak/hiverunner/internal/cli"
)

func main() {
	// SIGINT cancels the running query; the runner reports it as a
	// cancellation and closes the session.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := cli.Run(ctx, os.Args[1:], cli.Options{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
	stop()
	os.Exit(code)
}
