package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/skobkin/motdwatch/internal/app"
	"github.com/skobkin/motdwatch/internal/config"
	"github.com/skobkin/motdwatch/internal/logging"
	"github.com/skobkin/motdwatch/internal/notifications"
	"github.com/skobkin/motdwatch/internal/poller"
	"github.com/skobkin/motdwatch/internal/transport"
)

const checkGrace = 2 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("run debug tool", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "config file path (json or yaml)")
	versionURL := flag.String("version-url", "", "override version endpoint")
	messageURL := flag.String("message-url", "", "override message endpoint")
	versionFile := flag.String("version-file", "", "override local version file")
	lastMessage := flag.String("last-message", "", "treat this body as already seen")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths, err := app.ResolvePaths(*configPath)
	if err != nil {
		return fmt.Errorf("resolve paths: %w", err)
	}
	cfg, err := config.Load(paths.ConfigFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyOverrides(&cfg, *versionURL, *messageURL, *versionFile)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	logMgr := logging.NewManager()
	cfg.Logging.LogToFile = false
	if *verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logMgr.Configure(cfg.Logging, paths.LogFile); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer func() {
		if closeErr := logMgr.Close(); closeErr != nil {
			slog.Warn("close log manager", "error", closeErr)
		}
	}()
	logger := logMgr.Logger("cli")
	logger.Info("starting motdwatch debug", "version", app.BuildVersion(), "build_date", app.BuildDateYMD())

	result, err := checkOnce(ctx, cfg, *lastMessage, logMgr)
	if err != nil {
		return err
	}
	printResult(os.Stdout, result)

	return nil
}

func applyOverrides(cfg *config.AppConfig, versionURL, messageURL, versionFile string) {
	if v := strings.TrimSpace(versionURL); v != "" {
		cfg.Poller.VersionURL = v
	}
	if v := strings.TrimSpace(messageURL); v != "" {
		cfg.Poller.MessageURL = v
	}
	if v := strings.TrimSpace(versionFile); v != "" {
		cfg.Poller.VersionFile = v
	}
}

type checkResult struct {
	LocalVersion  string
	Outdated      bool
	Notifications []notifications.Notification
}

// checkOnce issues both checks, waits for their completions and reports
// what the poller made of them.
func checkOnce(ctx context.Context, cfg config.AppConfig, lastMessage string, logMgr *logging.Manager) (checkResult, error) {
	tr := transport.NewHTTPTransport(transport.HTTPConfig{
		Logger:          logMgr.Logger("transport"),
		UserAgent:       app.UserAgent(),
		StoredBodyLimit: int64(cfg.Poller.MaxBodySize),
	})
	defer func() {
		_ = tr.Close()
	}()

	compare := poller.CompareLexical
	if cfg.Poller.VersionCompare == config.VersionCompareSemver {
		compare = poller.CompareSemver
	}
	p := poller.New(poller.Config{
		VersionURL:     cfg.Poller.VersionURL,
		MessageURL:     cfg.Poller.MessageURL,
		Frequency:      cfg.Poller.CheckFrequencyDuration(),
		RequestTimeout: cfg.Poller.RequestTimeoutDuration(),
		MaxBodySize:    cfg.Poller.MaxBodySize,
		VersionFile:    cfg.Poller.VersionFile,
		Compare:        compare,
		ProductName:    cfg.Poller.ProductName,
		DownloadURL:    cfg.Poller.DownloadURL,
		PopupIcon:      cfg.Notifications.PopupIcon,
		Transport:      tr,
		Logger:         logMgr.Logger("poller"),
	})
	p.RestoreLastMessage(lastMessage)

	p.RequestCheck(poller.RequestVersionCheck)
	p.RequestCheck(poller.RequestMessageCheck)

	deadline := time.After(cfg.Poller.RequestTimeoutDuration() + checkGrace)
	for len(p.State().InFlight) > 0 {
		select {
		case <-ctx.Done():
			return checkResult{}, ctx.Err()
		case <-deadline:
			return checkResult{}, fmt.Errorf("checks did not complete in time")
		case c := <-tr.Completions():
			p.OnRequestCompleted(c)
		}
	}

	return checkResult{
		LocalVersion:  p.LocalVersion(),
		Outdated:      p.IsOutdated(),
		Notifications: p.Notifications(),
	}, nil
}

func printResult(w io.Writer, result checkResult) {
	local := result.LocalVersion
	if local == "" {
		local = "unknown"
	}
	_, _ = fmt.Fprintf(w, "local version: %s\n", local)
	_, _ = fmt.Fprintf(w, "outdated: %t\n", result.Outdated)
	if len(result.Notifications) == 0 {
		_, _ = fmt.Fprintln(w, "no notifications")

		return
	}
	for i, n := range result.Notifications {
		_, _ = fmt.Fprintf(w, "%d. %s\n", i+1, n.Title)
		if body := strings.TrimSpace(n.Body); body != "" {
			_, _ = fmt.Fprintf(w, "%s\n", body)
		}
	}
}
