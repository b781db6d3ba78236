package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vk/datamixer/internal/app"
	"github.com/vk/datamixer/internal/cli"
	"github.com/vk/datamixer/internal/hcl"
	"github.com/vk/datamixer/internal/registry"
)

// main is the entrypoint for the datamixer application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	streams := app.Streams{In: os.Stdin, Out: os.Stdout, Log: os.Stderr}
	if err := run(ctx, streams, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error
// handling. Usage text goes to the log stream so stdout carries only bundles.
// modules replaces the compiled-in models when given.
func run(ctx context.Context, streams app.Streams, args []string, modules ...registry.Module) (err error) {
	appConfig, shouldExit, err := cli.Parse(args, streams.Log)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	// The app panics when a compiled-in manifest does not match its model.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("application startup panicked | %v", r)
		}
	}()

	mixerApp := app.NewApp(streams, appConfig, hcl.NewLoader(), hcl.NewConverter(), modules...)
	return mixerApp.Run(ctx)
}
