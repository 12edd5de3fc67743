package poller

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/skobkin/motdwatch/internal/notifications"
	"github.com/skobkin/motdwatch/internal/transport"
)

const (
	defaultFrequency      = 900 * time.Second
	defaultRequestTimeout = 5 * time.Second
	defaultMaxBodySize    = 128

	UpdateTitle    = "Update!"
	updateTemplate = "Your game is out of date.\nThe newest version of %s is %s.\nDownload the update at\n%s"
)

var (
	ErrBodyTooLarge    = errors.New("response body too large")
	ErrIndexOutOfRange = notifications.ErrIndexOutOfRange
)

// Transport is the HTTP capability the poller needs from the host.
type Transport interface {
	CreateRequest(method, url string) (transport.Handle, error)
	SetTimeout(h transport.Handle, timeout time.Duration) error
	Send(h transport.Handle) error
	ResponseBodySize(h transport.Handle) (int, error)
	ResponseBody(h transport.Handle, buf []byte) (int, error)
	Release(h transport.Handle)
}

// UI is notified after every list change and asked to show popups.
type UI interface {
	NotificationListChanged(list *notifications.List)
	ShowPopup(popup notifications.Popup)
}

// Session reports whether a local session is active and which team it plays for.
type Session interface {
	Active() bool
	Team() int
}

// StateStore persists the last accepted message so it survives restarts.
type StateStore interface {
	SaveLastMessage(body string)
}

// Config wires a Poller. Transport may be nil, which makes every check a no-op.
type Config struct {
	VersionURL     string
	MessageURL     string
	Frequency      time.Duration
	RequestTimeout time.Duration
	MaxBodySize    int
	VersionFile    string
	Compare        CompareFunc
	ProductName    string
	DownloadURL    string
	PopupIcon      string

	Transport Transport
	UI        UI
	List      *notifications.List
	Session   Session
	Store     StateStore
	Logger    *slog.Logger
}

// State is a copy of the poller bookkeeping.
type State struct {
	Elapsed     time.Duration
	LastCheck   time.Duration
	Frequency   time.Duration
	InFlight    map[transport.Handle]RequestKind
	LastMessage string
	Outdated    bool
	Completed   bool
}

// Poller checks the version and message endpoints on a timer and turns
// changes into notifications. It is driven by a single goroutine: Tick,
// RequestCheck and OnRequestCompleted must not be called concurrently.
type Poller struct {
	urls           map[RequestKind]string
	frequency      time.Duration
	requestTimeout time.Duration
	maxBodySize    int
	versionFile    string
	compare        CompareFunc
	productName    string
	downloadURL    string
	popupIcon      string

	transport Transport
	ui        UI
	list      *notifications.List
	session   Session
	store     StateStore
	logger    *slog.Logger

	elapsed     time.Duration
	lastCheck   time.Duration
	inFlight    map[transport.Handle]RequestKind
	lastMessage string
	outdated    bool
	completed   bool
}

func New(cfg Config) *Poller {
	frequency := cfg.Frequency
	if frequency <= 0 {
		frequency = defaultFrequency
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	maxBody := cfg.MaxBodySize
	if maxBody <= 0 {
		maxBody = defaultMaxBodySize
	}
	compare := cfg.Compare
	if compare == nil {
		compare = CompareLexical
	}
	ui := cfg.UI
	if ui == nil {
		ui = noopUI{}
	}
	list := cfg.List
	if list == nil {
		list = notifications.NewList()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default().With("component", "poller")
	}

	return &Poller{
		urls: map[RequestKind]string{
			RequestVersionCheck: strings.TrimSpace(cfg.VersionURL),
			RequestMessageCheck: strings.TrimSpace(cfg.MessageURL),
		},
		frequency:      frequency,
		requestTimeout: timeout,
		maxBodySize:    maxBody,
		versionFile:    cfg.VersionFile,
		compare:        compare,
		productName:    cfg.ProductName,
		downloadURL:    cfg.DownloadURL,
		popupIcon:      cfg.PopupIcon,
		transport:      cfg.Transport,
		ui:             ui,
		list:           list,
		session:        cfg.Session,
		store:          cfg.Store,
		logger:         logger,
		// start one period in the past so the first tick polls
		lastCheck: -frequency,
		inFlight:  make(map[transport.Handle]RequestKind),
	}
}

// Tick advances session time by delta and issues both checks once the
// check frequency has elapsed since the previous poll.
func (p *Poller) Tick(delta time.Duration) {
	if delta > 0 {
		p.elapsed += delta
	}
	if p.elapsed-p.lastCheck <= p.frequency {
		return
	}

	p.lastCheck = p.elapsed
	p.logger.Debug("scheduled check", "elapsed", p.elapsed.String())
	p.RequestCheck(RequestVersionCheck)
	p.RequestCheck(RequestMessageCheck)
}

// RequestCheck issues one request of the given kind right away. A kind that
// already has a request in flight is skipped.
func (p *Poller) RequestCheck(kind RequestKind) {
	if p.transport == nil {
		p.logger.Debug("transport unavailable, skipping check", "kind", kind.String())

		return
	}
	target, ok := p.urls[kind]
	if !ok || target == "" {
		return
	}
	if p.pending(kind) {
		p.logger.Debug("check already pending", "kind", kind.String())

		return
	}

	h, err := p.transport.CreateRequest(http.MethodGet, target)
	if err != nil {
		p.logger.Warn("create check request", "kind", kind.String(), "error", err)

		return
	}
	if err := p.transport.SetTimeout(h, p.requestTimeout); err != nil {
		p.transport.Release(h)
		p.logger.Warn("set check request timeout", "kind", kind.String(), "error", err)

		return
	}
	p.inFlight[h] = kind
	if err := p.transport.Send(h); err != nil {
		delete(p.inFlight, h)
		p.transport.Release(h)
		p.logger.Warn("send check request", "kind", kind.String(), "error", err)

		return
	}
	p.completed = false
	p.logger.Debug("check request sent", "kind", kind.String(), "handle", h, "url", target)
}

func (p *Poller) pending(kind RequestKind) bool {
	for _, k := range p.inFlight {
		if k == kind {
			return true
		}
	}

	return false
}

// OnRequestCompleted handles a transport completion. Completions for handles
// the poller does not track are ignored.
func (p *Poller) OnRequestCompleted(c transport.Completion) {
	kind, ok := p.inFlight[c.Handle]
	if !ok {
		p.logger.Debug("ignoring completion for unknown request", "handle", c.Handle)

		return
	}
	defer func() {
		delete(p.inFlight, c.Handle)
		if p.transport != nil {
			p.transport.Release(c.Handle)
		}
		p.completed = true
	}()

	p.logger.Debug("check request completed", "kind", kind.String(), "handle", c.Handle, "status_code", c.StatusCode)
	if c.IOFailure {
		p.logger.Warn("check request failed", "kind", kind.String(), "error", c.Err)

		return
	}
	if c.StatusCode != http.StatusOK {
		p.logger.Warn("check request failed", "kind", kind.String(), "status_code", c.StatusCode)

		return
	}

	body, err := p.readBody(c.Handle)
	if err != nil {
		p.logger.Warn("read check response", "kind", kind.String(), "error", err)

		return
	}

	switch kind {
	case RequestVersionCheck:
		p.OnVersionCheckCompleted(body)
	case RequestMessageCheck:
		p.OnMessageCheckCompleted(body)
	case RequestIdle:
	}
}

func (p *Poller) readBody(h transport.Handle) (string, error) {
	if p.transport == nil {
		return "", nil
	}
	size, err := p.transport.ResponseBodySize(h)
	if err != nil {
		return "", fmt.Errorf("get body size: %w", err)
	}
	if size > p.maxBodySize {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrBodyTooLarge, size, p.maxBodySize)
	}
	if size <= 0 {
		return "", nil
	}

	buf := make([]byte, size)
	n, err := p.transport.ResponseBody(h, buf)
	if err != nil {
		return "", fmt.Errorf("get body: %w", err)
	}

	return normalizeBody(buf[:n]), nil
}

// OnVersionCheckCompleted compares the local version with the remote one and
// announces an update when the local version is older.
func (p *Poller) OnVersionCheckCompleted(body string) {
	remote := strings.TrimSpace(body)
	if remote == "" {
		return
	}

	local := p.LocalVersion()
	if p.compare(local, remote) >= 0 {
		p.outdated = false
		p.logger.Debug("version is up to date", "local", local, "remote", remote)

		return
	}

	p.outdated = true
	p.logger.Info("update available", "local", local, "remote", remote)
	p.EmitNotification(notifications.New(
		UpdateTitle,
		fmt.Sprintf(updateTemplate, p.productName, remote, p.downloadURL),
	))
}

// OnMessageCheckCompleted emits the message of the day unless it repeats the
// previous one.
func (p *Poller) OnMessageCheckCompleted(body string) {
	if body == "" || body == p.lastMessage {
		return
	}

	title, message := SplitMessage(body)
	p.lastMessage = body
	if p.store != nil {
		p.store.SaveLastMessage(body)
	}
	p.logger.Info("new message received", "title", title)
	p.EmitNotification(notifications.New(title, message))
}

// EmitNotification appends n and informs the UI. A popup is requested only
// while a local session is active.
func (p *Poller) EmitNotification(n notifications.Notification) {
	p.list.Append(n)
	p.ui.NotificationListChanged(p.list)

	if p.session == nil || !p.session.Active() {
		return
	}
	p.ui.ShowPopup(notifications.Popup{
		Title:  n.Title,
		Body:   n.Body,
		IconID: p.popupIcon,
		Team:   p.session.Team(),
	})
}

func (p *Poller) RemoveNotification(index int) error {
	if _, err := p.list.Remove(index); err != nil {
		return err
	}
	p.ui.NotificationListChanged(p.list)

	return nil
}

func (p *Poller) MarkRead(index int) error {
	if err := p.list.MarkRead(index); err != nil {
		return err
	}
	p.ui.NotificationListChanged(p.list)

	return nil
}

// ClearNotifications empties the list and forgets the last message so the
// next message check is announced again.
func (p *Poller) ClearNotifications() {
	p.list.Clear()
	p.lastMessage = ""
	p.ui.NotificationListChanged(p.list)
}

func (p *Poller) UnreadCount() int {
	return p.list.UnreadCount()
}

func (p *Poller) Notifications() []notifications.Notification {
	return p.list.Snapshot()
}

// LocalVersion reads the version descriptor on every call. Any failure
// yields an empty string.
func (p *Poller) LocalVersion() string {
	if p.versionFile == "" {
		return ""
	}
	version, err := ReadVersionFile(p.versionFile)
	if err != nil {
		p.logger.Debug("local version unavailable", "path", p.versionFile, "error", err)

		return ""
	}

	return version
}

func (p *Poller) SetFrequency(d time.Duration) {
	if d <= 0 || d == p.frequency {
		return
	}
	p.logger.Info("check frequency changed", "from", p.frequency.String(), "to", d.String())
	p.frequency = d
}

func (p *Poller) RestoreLastMessage(body string) {
	p.lastMessage = body
}

func (p *Poller) IsOutdated() bool {
	return p.outdated
}

func (p *Poller) State() State {
	inFlight := make(map[transport.Handle]RequestKind, len(p.inFlight))
	for h, k := range p.inFlight {
		inFlight[h] = k
	}

	return State{
		Elapsed:     p.elapsed,
		LastCheck:   p.lastCheck,
		Frequency:   p.frequency,
		InFlight:    inFlight,
		LastMessage: p.lastMessage,
		Outdated:    p.outdated,
		Completed:   p.completed,
	}
}

type noopUI struct{}

func (noopUI) NotificationListChanged(*notifications.List) {}
func (noopUI) ShowPopup(notifications.Popup)               {}
