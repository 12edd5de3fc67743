package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/skobkin/motdwatch/internal/app"
	"github.com/skobkin/motdwatch/internal/platform"
)

func main() {
	configPath := flag.String("config", "", "config file path (json or yaml)")
	devMode := flag.Bool("dev", false, "enable development console commands")
	noConsole := flag.Bool("no-console", false, "do not read commands from stdin")
	flag.Parse()

	paths, err := app.ResolvePaths(*configPath)
	if err != nil {
		slog.Error("resolve paths", "error", err)
		os.Exit(1)
	}
	lock, err := platform.AcquireInstanceLock(app.Name, paths.RootDir)
	switch {
	case errors.Is(err, platform.ErrInstanceAlreadyRunning):
		slog.Error("another watcher is already running for this config", "dir", paths.RootDir)
		os.Exit(1)
	case errors.Is(err, platform.ErrInstanceLockUnsupported):
		slog.Warn("single instance lock is not supported on this platform")
	case err != nil:
		slog.Error("acquire instance lock", "error", err)
		os.Exit(1)
	default:
		defer func() {
			_ = lock.Release()
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := app.Initialize(ctx, app.Options{
		ConfigPath: *configPath,
		DevMode:    *devMode,
		Stdout:     os.Stdout,
	})
	if err != nil {
		slog.Error("initialize app runtime", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = rt.Close()
	}()

	if *noConsole {
		<-ctx.Done()

		return
	}

	if err := rt.NewConsole(os.Stdout).Run(ctx, os.Stdin); err != nil {
		slog.Error("run console", "error", err)
	}
}
