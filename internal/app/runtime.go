package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/skobkin/motdwatch/internal/bus"
	"github.com/skobkin/motdwatch/internal/config"
	"github.com/skobkin/motdwatch/internal/logging"
	"github.com/skobkin/motdwatch/internal/notifications"
	"github.com/skobkin/motdwatch/internal/persistence"
	"github.com/skobkin/motdwatch/internal/platform"
	"github.com/skobkin/motdwatch/internal/poller"
	"github.com/skobkin/motdwatch/internal/transport"
	"github.com/skobkin/motdwatch/internal/ui"
)

const clearStateTimeout = 5 * time.Second

// Options adjust runtime startup.
type Options struct {
	// ConfigPath overrides the config file location.
	ConfigPath string
	// DevMode enables development console commands regardless of config.
	DevMode bool
	// Stdout receives console popups when desktop notifications are off.
	Stdout io.Writer
	// Autostart overrides the platform login entry manager.
	Autostart platform.AutostartManager
	// System overrides OS helpers such as opening the download page.
	System platform.SystemActions
}

type Runtime struct {
	mu sync.RWMutex

	Ctx    context.Context
	cancel context.CancelFunc

	Paths        Paths
	Config       config.AppConfig
	devFlag      bool
	customConfig bool

	LogManager *logging.Manager
	Bus        *bus.PubSubBus
	DB         *sql.DB

	NotificationRepo *persistence.NotificationRepo
	StateRepo        *persistence.StateRepo
	WriterQueue      *persistence.WriterQueue

	Transport *transport.HTTPTransport
	Session   *Session
	Poller    *poller.Poller
	Loop      *Loop
	Watcher   *config.Watcher
	Popups    *PopupService

	AutostartManager platform.AutostartManager
	SystemActions    platform.SystemActions

	closeOnce sync.Once
}

func Initialize(parent context.Context, opts Options) (*Runtime, error) {
	paths, err := ResolvePaths(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(paths.ConfigFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	ctx, cancel := context.WithCancel(parent)
	rt := &Runtime{
		Ctx:          ctx,
		cancel:       cancel,
		Paths:        paths,
		Config:       cfg,
		devFlag:      opts.DevMode,
		customConfig: strings.TrimSpace(opts.ConfigPath) != "",
	}

	logMgr := logging.NewManager()
	if err := logMgr.Configure(cfg.Logging, paths.LogFile); err != nil {
		_ = logMgr.Close()
		cancel()

		return nil, fmt.Errorf("configure logging: %w", err)
	}
	rt.LogManager = logMgr
	slog.Info("starting motdwatch runtime", "version", BuildVersion(), "build_date", BuildDateYMD(), "config", paths.ConfigFile)

	if created, err := writeDefaultConfig(paths.ConfigFile, cfg); err != nil {
		slog.Warn("write default config", "path", paths.ConfigFile, "error", err)
	} else if created {
		slog.Info("wrote default config", "path", paths.ConfigFile)
	}

	rt.AutostartManager = opts.Autostart
	if rt.AutostartManager == nil {
		rt.AutostartManager = platform.NewAutostartManager()
	}
	rt.SystemActions = opts.System
	if rt.SystemActions == nil {
		rt.SystemActions = platform.NewSystemActions()
	}
	if err := rt.syncAutostart(cfg, "startup"); err != nil {
		slog.Warn("sync autostart on startup", "error", err)
	}

	b := bus.New(logMgr.Logger("bus"))
	rt.Bus = b

	presenter := ui.NewBusPresenter(b, logMgr.Logger("ui"))
	list := notifications.NewList()
	var store poller.StateStore
	lastMessage := ""
	if cfg.Storage.Enabled {
		if err := rt.openStorage(ctx); err != nil {
			_ = rt.Close()

			return nil, err
		}
		items, err := rt.NotificationRepo.ListOrdered(ctx)
		if err != nil {
			_ = rt.Close()

			return nil, err
		}
		list = notifications.NewList(items...)
		if value, ok, err := rt.StateRepo.Get(ctx, persistence.StateKeyLastMessage); err != nil {
			slog.Warn("restore last message", "error", err)
		} else if ok {
			lastMessage = value
		}
		store = presenter
		StartPersistenceProjection(ctx, b, rt.WriterQueue, rt.NotificationRepo, rt.StateRepo, logMgr.Logger("persistence"))
		slog.Info("restored notifications", "count", list.Len(), "unread", list.UnreadCount())
	}

	rt.Transport = transport.NewHTTPTransport(transport.HTTPConfig{
		Logger:          logMgr.Logger("transport"),
		UserAgent:       UserAgent(),
		StoredBodyLimit: int64(cfg.Poller.MaxBodySize),
	})
	rt.Session = NewSession(true, 0)

	compare := poller.CompareLexical
	if cfg.Poller.VersionCompare == config.VersionCompareSemver {
		compare = poller.CompareSemver
	}
	rt.Poller = poller.New(poller.Config{
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
		Transport:      rt.Transport,
		UI:             presenter,
		List:           list,
		Session:        rt.Session,
		Store:          store,
		Logger:         logMgr.Logger("poller"),
	})
	rt.Poller.RestoreLastMessage(lastMessage)

	rt.Popups = NewPopupService(b, rt.popupSender(cfg, opts.Stdout, logMgr), rt.popupsEnabled, logMgr.Logger("popups"))
	rt.Popups.Start(ctx)

	rt.Watcher = config.NewWatcher(paths.ConfigFile, cfg, logMgr.Logger("config"))
	go rt.Watcher.Run(ctx)

	rt.Loop = NewLoop(LoopConfig{
		Poller:        rt.Poller,
		Completions:   rt.Transport.Completions(),
		ConfigUpdates: rt.Watcher.Updates(),
		OnConfig:      rt.applyConfig,
		FrameInterval: cfg.Poller.FrameIntervalDuration(),
		Logger:        logMgr.Logger("loop"),
	})
	go rt.Loop.Run(ctx)

	return rt, nil
}

// writeDefaultConfig saves cfg to path when no config file exists yet, so
// there is a file to edit and watch.
func writeDefaultConfig(path string, cfg config.AppConfig) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat config: %w", err)
	}
	if err := config.Save(path, cfg); err != nil {
		return false, err
	}

	return true, nil
}

func (r *Runtime) openStorage(ctx context.Context) error {
	db, err := persistence.Open(ctx, r.Paths.DBFile)
	if err != nil {
		return err
	}
	r.DB = db
	r.NotificationRepo = persistence.NewNotificationRepo(db)
	r.StateRepo = persistence.NewStateRepo(db)

	// pending writes are drained after ctx is cancelled
	writerQueue := persistence.NewWriterQueue(r.LogManager.Logger("persistence"), 64)
	writerQueue.Start(ctx)
	r.WriterQueue = writerQueue

	return nil
}

func (r *Runtime) popupSender(cfg config.AppConfig, stdout io.Writer, logMgr *logging.Manager) notifications.Sender {
	var sender notifications.Sender
	if cfg.Notifications.Desktop {
		sender = notifications.NewDesktopSender(logMgr.Logger("notifications"))
	} else {
		if stdout == nil {
			stdout = os.Stdout
		}
		sender = notifications.NewWriterSender(stdout)
	}

	return notifications.NewRateLimitedSender(
		sender,
		cfg.Notifications.PopupBurst,
		cfg.Notifications.PopupIntervalDuration(),
		logMgr.Logger("notifications"),
	)
}

// applyConfig runs on the loop goroutine after the config file changed.
func (r *Runtime) applyConfig(p *poller.Poller, cfg config.AppConfig) {
	r.mu.Lock()
	prev := r.Config
	r.Config = cfg
	r.mu.Unlock()

	p.SetFrequency(cfg.Poller.CheckFrequencyDuration())
	if cfg.Logging.Level != prev.Logging.Level {
		if err := r.LogManager.SetLevel(cfg.Logging.Level); err != nil {
			slog.Warn("apply log level", "error", err)
		}
	}
	if cfg.Autostart != prev.Autostart {
		if err := r.syncAutostart(cfg, "config_reload"); err != nil {
			slog.Warn("sync autostart after reload", "error", err)
		}
	}
	if cfg.Poller.VersionURL != prev.Poller.VersionURL || cfg.Poller.MessageURL != prev.Poller.MessageURL {
		slog.Warn("endpoint changes take effect after restart")
	}
	slog.Info("config reloaded")
}

func (r *Runtime) syncAutostart(cfg config.AppConfig, reason string) error {
	if r.AutostartManager == nil {
		return nil
	}
	configPath := ""
	if r.customConfig {
		configPath = r.Paths.ConfigFile
	}
	slog.Debug("sync autostart", "reason", reason, "enabled", cfg.Autostart.Enabled, "headless", cfg.Autostart.Headless)

	return r.AutostartManager.Sync(platform.AutostartConfig{
		Enabled:    cfg.Autostart.Enabled,
		Headless:   cfg.Autostart.Headless,
		ConfigPath: configPath,
	})
}

// OpenDownloadPage opens the configured download URL in the browser.
func (r *Runtime) OpenDownloadPage() error {
	if r.SystemActions == nil {
		return fmt.Errorf("system actions are not available")
	}

	return r.SystemActions.OpenURL(r.CurrentConfig().Poller.DownloadURL)
}

func (r *Runtime) CurrentConfig() config.AppConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.Config
}

func (r *Runtime) DevMode() bool {
	return r.devFlag || r.CurrentConfig().DevMode
}

func (r *Runtime) popupsEnabled() bool {
	return r.CurrentConfig().Notifications.Popups
}

// ClearStoredState wipes persisted notifications and poller state. It is
// queued behind pending writes so a late list snapshot cannot resurrect rows.
func (r *Runtime) ClearStoredState(ctx context.Context) error {
	if r.DB == nil || r.WriterQueue == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, clearStateTimeout)
	defer cancel()

	done := make(chan error, 1)
	r.WriterQueue.Enqueue("clear_database", func(writeCtx context.Context) error {
		err := persistence.ClearDatabase(writeCtx, r.DB)
		select {
		case done <- err:
		default:
		}

		return err
	})

	select {
	case <-ctx.Done():
		return fmt.Errorf("wait for database clear: %w", ctx.Err())
	case err := <-done:
		if err == nil {
			slog.Info("database cleared")
		}

		return err
	}
}

// NewConsole builds an operator console bound to this runtime.
func (r *Runtime) NewConsole(out io.Writer) *Console {
	return NewConsole(ConsoleConfig{
		Loop:    r.Loop,
		Session: r.Session,
		DevMode: r.DevMode,
		Reset:   r.ClearStoredState,
		Open:    r.OpenDownloadPage,
		Out:     out,
		Logger:  r.LogManager.Logger("console"),
	})
}

func (r *Runtime) Close() error {
	r.closeOnce.Do(func() {
		if r.cancel != nil {
			r.cancel()
		}
		if r.Loop != nil {
			<-r.Loop.Stopped()
		}
		if r.Transport != nil {
			_ = r.Transport.Close()
		}
		if r.WriterQueue != nil {
			<-r.WriterQueue.Done()
		}
		if r.Bus != nil {
			r.Bus.Close()
		}
		if r.DB != nil {
			_ = r.DB.Close()
		}
		slog.Info("motdwatch runtime stopped")
		if r.LogManager != nil {
			_ = r.LogManager.Close()
		}
	})

	return nil
}
