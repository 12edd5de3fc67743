package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/skobkin/motdwatch/internal/notifications"
	"github.com/skobkin/motdwatch/internal/poller"
	"github.com/skobkin/motdwatch/internal/transport"
)

type consoleFixture struct {
	console *Console
	loop    *Loop
	session *Session
	list    *notifications.List
	out     *bytes.Buffer
	resets  int
}

func newConsoleFixture(t *testing.T, devMode bool, cfg poller.Config, items ...notifications.Notification) *consoleFixture {
	t.Helper()

	f := &consoleFixture{
		session: NewSession(true, 0),
		list:    notifications.NewList(items...),
		out:     &bytes.Buffer{},
	}
	cfg.List = f.list
	cfg.Session = f.session
	cfg.Logger = discardLogger()
	if cfg.Frequency == 0 {
		cfg.Frequency = time.Hour
	}
	p := poller.New(cfg)

	loopCfg := LoopConfig{Poller: p, FrameInterval: time.Hour}
	if tr, ok := cfg.Transport.(*transport.HTTPTransport); ok {
		loopCfg.Completions = tr.Completions()
	}
	f.loop = startLoop(t, loopCfg)
	f.console = NewConsole(ConsoleConfig{
		Loop:    f.loop,
		Session: f.session,
		DevMode: func() bool { return devMode },
		Reset: func(context.Context) error {
			f.resets++

			return nil
		},
		Out:    f.out,
		Logger: discardLogger(),
	})

	return f
}

func (f *consoleFixture) exec(t *testing.T, line string) error {
	t.Helper()

	quit, err := f.console.Execute(context.Background(), line)
	if quit {
		t.Fatalf("%q must not quit", line)
	}

	return err
}

func (f *consoleFixture) snapshot(t *testing.T) []notifications.Notification {
	t.Helper()

	var items []notifications.Notification
	if err := f.loop.Do(context.Background(), func(p *poller.Poller) {
		items = p.Notifications()
	}); err != nil {
		t.Fatalf("loop do: %v", err)
	}

	return items
}

func TestConsoleListReadDismiss(t *testing.T) {
	f := newConsoleFixture(t, false, poller.Config{},
		notifications.New("First", "one"),
		notifications.New("Second", "two"),
		notifications.New("Third", ""),
	)

	if err := f.exec(t, "list"); err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := strings.Count(f.out.String(), " * "); got != 3 {
		t.Fatalf("expected three unread markers, got %d in:\n%s", got, f.out.String())
	}

	if err := f.exec(t, "read 2"); err != nil {
		t.Fatalf("read: %v", err)
	}
	f.out.Reset()
	if err := f.exec(t, "unread"); err != nil {
		t.Fatalf("unread: %v", err)
	}
	if f.out.String() != "2 unread\n" {
		t.Fatalf("unexpected unread output %q", f.out.String())
	}

	if err := f.exec(t, "dismiss 1"); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	items := f.snapshot(t)
	if len(items) != 2 || items[0].Title != "Second" || items[1].Title != "Third" {
		t.Fatalf("unexpected list after dismiss: %+v", items)
	}
	if items[0].Unread {
		t.Fatalf("read flag must follow the entry")
	}
}

func TestConsoleRejectsBadIndexes(t *testing.T) {
	f := newConsoleFixture(t, false, poller.Config{}, notifications.New("Only", ""))

	if err := f.exec(t, "dismiss 5"); !errors.Is(err, notifications.ErrIndexOutOfRange) {
		t.Fatalf("expected out of range error, got %v", err)
	}
	if err := f.exec(t, "read 0"); !errors.Is(err, poller.ErrIndexOutOfRange) {
		t.Fatalf("expected out of range error, got %v", err)
	}
	if err := f.exec(t, "read one"); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if err := f.exec(t, "dismiss"); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if len(f.snapshot(t)) != 1 {
		t.Fatalf("failed commands must not change the list")
	}
}

func TestConsoleDevOnlyCommands(t *testing.T) {
	f := newConsoleFixture(t, false, poller.Config{})

	if err := f.exec(t, "checkmessages"); !errors.Is(err, errDevOnly) {
		t.Fatalf("expected dev only error, got %v", err)
	}
	if err := f.exec(t, "check version"); !errors.Is(err, errDevOnly) {
		t.Fatalf("expected dev only error, got %v", err)
	}
	if err := f.exec(t, "help"); err != nil {
		t.Fatalf("help: %v", err)
	}
	if strings.Contains(f.out.String(), "checkmessages") {
		t.Fatalf("help must hide dev commands outside dev mode")
	}
}

func TestConsoleCheckMessagesInDevMode(t *testing.T) {
	server := newCheckServer(t, "1.0.0", "Hello\nPlay fair")
	tr := newTestTransport(t)
	f := newConsoleFixture(t, true, poller.Config{
		VersionURL:  server.URL + "/version",
		MessageURL:  server.URL + "/motd",
		VersionFile: writeVersionFile(t, "1.0.0"),
		Transport:   tr,
	})

	if err := f.exec(t, "checkmessages"); err != nil {
		t.Fatalf("checkmessages: %v", err)
	}

	items := waitForNotifications(t, f.loop, 1)
	if len(items) != 1 || items[0].Title != "Hello" {
		t.Fatalf("unexpected notifications %+v", items)
	}
	if server.messageHits.Load() != 1 {
		t.Fatalf("expected one message check, got %d", server.messageHits.Load())
	}

	if err := f.exec(t, "check nonsense"); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestConsoleSession(t *testing.T) {
	f := newConsoleFixture(t, false, poller.Config{})

	if err := f.exec(t, "session off"); err != nil {
		t.Fatalf("session off: %v", err)
	}
	if f.session.Active() {
		t.Fatalf("session must be inactive")
	}
	if err := f.exec(t, "session on 3"); err != nil {
		t.Fatalf("session on: %v", err)
	}
	if !f.session.Active() || f.session.Team() != 3 {
		t.Fatalf("unexpected session active=%t team=%d", f.session.Active(), f.session.Team())
	}
	if err := f.exec(t, "session maybe"); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestConsoleReset(t *testing.T) {
	f := newConsoleFixture(t, false, poller.Config{}, notifications.New("a", ""), notifications.New("b", ""))

	if err := f.exec(t, "reset"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if len(f.snapshot(t)) != 0 {
		t.Fatalf("expected empty list after reset")
	}
	if f.resets != 1 {
		t.Fatalf("expected stored state reset once, got %d", f.resets)
	}
}

func TestConsoleUnknownAndQuit(t *testing.T) {
	f := newConsoleFixture(t, false, poller.Config{})

	if err := f.exec(t, "frobnicate"); !errors.Is(err, errUnknownCommand) {
		t.Fatalf("expected unknown command error, got %v", err)
	}
	if err := f.exec(t, "   "); err != nil {
		t.Fatalf("blank line must be ignored, got %v", err)
	}
	quit, err := f.console.Execute(context.Background(), "QUIT")
	if err != nil || !quit {
		t.Fatalf("expected quit, got quit=%t err=%v", quit, err)
	}
}

func TestConsoleRunStopsAtQuit(t *testing.T) {
	f := newConsoleFixture(t, false, poller.Config{}, notifications.New("a", ""))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := strings.NewReader("unread\nbogus\nquit\nunread\n")
	if err := f.console.Run(ctx, in); err != nil {
		t.Fatalf("run: %v", err)
	}

	out := f.out.String()
	if strings.Count(out, "1 unread") != 1 {
		t.Fatalf("commands after quit must not run:\n%s", out)
	}
	if !strings.Contains(out, "error: unknown command: bogus") {
		t.Fatalf("expected error line in output:\n%s", out)
	}
}

func TestSessionConcurrentAccess(t *testing.T) {
	s := NewSession(false, 1)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.SetActive(i%2 == 0)
			s.SetTeam(i)
			_ = s.Active()
			_ = s.Team()
		}(i)
	}
	wg.Wait()
}

func TestConsoleDownloadWithoutOpener(t *testing.T) {
	f := newConsoleFixture(t, false, poller.Config{})

	if err := f.exec(t, "download"); err == nil {
		t.Fatalf("expected download to fail without an opener")
	}
}
