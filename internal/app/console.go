package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/skobkin/motdwatch/internal/notifications"
	"github.com/skobkin/motdwatch/internal/poller"
)

var (
	errUnknownCommand = errors.New("unknown command")
	errUsage          = errors.New("invalid arguments")
	errDevOnly        = errors.New("command is available only in dev mode")
)

// ConsoleConfig wires a Console.
type ConsoleConfig struct {
	Loop    *Loop
	Session *Session
	// DevMode reports whether development commands are enabled. It is
	// re-evaluated on every command so config reloads take effect.
	DevMode func() bool
	// Reset wipes stored state after the in-memory list was cleared.
	Reset func(ctx context.Context) error
	// Open shows the download page to the user.
	Open   func() error
	Out    io.Writer
	Logger *slog.Logger
}

// Console executes line-based operator commands against the poller through
// the frame loop.
type Console struct {
	loop    *Loop
	session *Session
	devMode func() bool
	reset   func(ctx context.Context) error
	open    func() error
	out     io.Writer
	logger  *slog.Logger

	commands map[string]consoleCommand
}

type consoleCommand struct {
	usage   string
	help    string
	devOnly bool
	run     func(c *Console, ctx context.Context, args []string) error
}

func commandTable() map[string]consoleCommand {
	return map[string]consoleCommand{
		"help":          {usage: "help", help: "show this help", run: (*Console).cmdHelp},
		"list":          {usage: "list", help: "list notifications", run: (*Console).cmdList},
		"read":          {usage: "read N", help: "mark notification N as read", run: (*Console).cmdRead},
		"dismiss":       {usage: "dismiss N", help: "remove notification N", run: (*Console).cmdDismiss},
		"unread":        {usage: "unread", help: "print the unread count", run: (*Console).cmdUnread},
		"status":        {usage: "status", help: "print poller state", run: (*Console).cmdStatus},
		"version":       {usage: "version", help: "print local and watcher versions", run: (*Console).cmdVersion},
		"session":       {usage: "session on|off [team]", help: "toggle the local session used for popups", run: (*Console).cmdSession},
		"reset":         {usage: "reset", help: "clear notifications and stored state", run: (*Console).cmdReset},
		"download":      {usage: "download", help: "open the download page", run: (*Console).cmdDownload},
		"checkmessages": {usage: "checkmessages", help: "check version and message now", devOnly: true, run: (*Console).cmdCheckMessages},
		"check":         {usage: "check version|message", help: "run one check now", devOnly: true, run: (*Console).cmdCheck},
	}
}

func NewConsole(cfg ConsoleConfig) *Console {
	out := cfg.Out
	if out == nil {
		out = io.Discard
	}
	devMode := cfg.DevMode
	if devMode == nil {
		devMode = func() bool { return false }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default().With("component", "app.console")
	}

	return &Console{
		loop:     cfg.Loop,
		session:  cfg.Session,
		devMode:  devMode,
		reset:    cfg.Reset,
		open:     cfg.Open,
		out:      out,
		logger:   logger,
		commands: commandTable(),
	}
}

// Run reads commands from in until EOF, "quit" or ctx cancellation.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("read console input: %w", err)
					}
				default:
				}

				return nil
			}
			quit, err := c.Execute(ctx, line)
			if err != nil {
				c.printf("error: %v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

// Execute runs a single command line. It reports whether the console should stop.
func (c *Console) Execute(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	name := strings.ToLower(fields[0])
	if name == "quit" || name == "exit" {
		return true, nil
	}

	cmd, ok := c.commands[name]
	if !ok {
		return false, fmt.Errorf("%w: %s", errUnknownCommand, name)
	}
	if cmd.devOnly && !c.devMode() {
		return false, fmt.Errorf("%s: %w", name, errDevOnly)
	}
	c.logger.Debug("console command", "command", name)

	return false, cmd.run(c, ctx, fields[1:])
}

func (c *Console) cmdHelp(_ context.Context, _ []string) error {
	names := make([]string, 0, len(c.commands))
	for name, cmd := range c.commands {
		if cmd.devOnly && !c.devMode() {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cmd := c.commands[name]
		c.printf("  %-24s %s\n", cmd.usage, cmd.help)
	}
	c.printf("  %-24s %s\n", "quit", "stop the watcher")

	return nil
}

func (c *Console) cmdList(ctx context.Context, _ []string) error {
	var items []notifications.Notification
	if err := c.loop.Do(ctx, func(p *poller.Poller) {
		items = p.Notifications()
	}); err != nil {
		return err
	}
	if len(items) == 0 {
		c.printf("no notifications\n")

		return nil
	}
	for i, n := range items {
		marker := " "
		if n.Unread {
			marker = "*"
		}
		c.printf("%2d %s %s  %s\n", i+1, marker, n.CreatedAt.Local().Format("2006-01-02 15:04"), n.Title)
		if body := strings.TrimSpace(n.Body); body != "" {
			for _, line := range strings.Split(body, "\n") {
				c.printf("       %s\n", line)
			}
		}
	}

	return nil
}

func (c *Console) cmdRead(ctx context.Context, args []string) error {
	index, err := parseIndex(args)
	if err != nil {
		return err
	}
	var opErr error
	if err := c.loop.Do(ctx, func(p *poller.Poller) {
		opErr = p.MarkRead(index)
	}); err != nil {
		return err
	}

	return opErr
}

func (c *Console) cmdDismiss(ctx context.Context, args []string) error {
	index, err := parseIndex(args)
	if err != nil {
		return err
	}
	var opErr error
	if err := c.loop.Do(ctx, func(p *poller.Poller) {
		opErr = p.RemoveNotification(index)
	}); err != nil {
		return err
	}
	if opErr != nil {
		return opErr
	}
	c.printf("dismissed %d\n", index+1)

	return nil
}

func (c *Console) cmdUnread(ctx context.Context, _ []string) error {
	var unread int
	if err := c.loop.Do(ctx, func(p *poller.Poller) {
		unread = p.UnreadCount()
	}); err != nil {
		return err
	}
	c.printf("%d unread\n", unread)

	return nil
}

func (c *Console) cmdStatus(ctx context.Context, _ []string) error {
	var state poller.State
	if err := c.loop.Do(ctx, func(p *poller.Poller) {
		state = p.State()
	}); err != nil {
		return err
	}

	pending := make([]string, 0, len(state.InFlight))
	for _, kind := range state.InFlight {
		pending = append(pending, kind.String())
	}
	sort.Strings(pending)
	if len(pending) == 0 {
		pending = append(pending, "none")
	}
	next := state.LastCheck + state.Frequency - state.Elapsed
	if next < 0 {
		next = 0
	}

	c.printf("session time:  %s\n", state.Elapsed.Truncate(time.Second))
	c.printf("frequency:     %s\n", state.Frequency)
	c.printf("next check in: %s\n", next.Truncate(time.Second))
	c.printf("pending:       %s\n", strings.Join(pending, ", "))
	c.printf("outdated:      %t\n", state.Outdated)
	c.printf("session:       %t\n", c.session != nil && c.session.Active())

	return nil
}

func (c *Console) cmdVersion(ctx context.Context, _ []string) error {
	var local string
	if err := c.loop.Do(ctx, func(p *poller.Poller) {
		local = p.LocalVersion()
	}); err != nil {
		return err
	}
	if local == "" {
		local = "unknown"
	}
	c.printf("local version: %s\n", local)
	c.printf("%s %s\n", Name, BuildVersionWithDate())

	return nil
}

func (c *Console) cmdSession(_ context.Context, args []string) error {
	if c.session == nil {
		return errors.New("session is not available")
	}
	if len(args) == 0 {
		c.printf("session active: %t, team: %d\n", c.session.Active(), c.session.Team())

		return nil
	}

	switch strings.ToLower(args[0]) {
	case "on":
		c.session.SetActive(true)
	case "off":
		c.session.SetActive(false)
	default:
		return fmt.Errorf("%w: session on|off [team]", errUsage)
	}
	if len(args) > 1 {
		team, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("%w: team must be a number", errUsage)
		}
		c.session.SetTeam(team)
	}
	c.printf("session active: %t\n", c.session.Active())

	return nil
}

func (c *Console) cmdReset(ctx context.Context, _ []string) error {
	if err := c.loop.Do(ctx, func(p *poller.Poller) {
		p.ClearNotifications()
	}); err != nil {
		return err
	}
	if c.reset != nil {
		if err := c.reset(ctx); err != nil {
			return fmt.Errorf("reset stored state: %w", err)
		}
	}
	c.printf("notifications cleared\n")

	return nil
}

func (c *Console) cmdDownload(_ context.Context, _ []string) error {
	if c.open == nil {
		return errors.New("opening the download page is not available")
	}

	return c.open()
}

func (c *Console) cmdCheckMessages(ctx context.Context, _ []string) error {
	return c.loop.Do(ctx, func(p *poller.Poller) {
		p.RequestCheck(poller.RequestVersionCheck)
		p.RequestCheck(poller.RequestMessageCheck)
	})
}

func (c *Console) cmdCheck(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: check version|message", errUsage)
	}
	kind, ok := poller.ParseRequestKind(args[0])
	if !ok {
		return fmt.Errorf("%w: unknown check %q", errUsage, args[0])
	}

	return c.loop.Do(ctx, func(p *poller.Poller) {
		p.RequestCheck(kind)
	})
}

func (c *Console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

// parseIndex converts a 1-based operator index to a list index.
func parseIndex(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: expected a notification number", errUsage)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", errUsage, args[0])
	}

	return n - 1, nil
}
