package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	// MaxStoredBodyLimit is the largest body a transport will keep.
	MaxStoredBodyLimit     = 64 * 1024
	defaultStoredBodyLimit = MaxStoredBodyLimit
	defaultRequestTimeout  = 5 * time.Second
	defaultCompletionQueue = 16
)

var (
	ErrUnknownHandle = errors.New("unknown request handle")
	ErrAlreadySent   = errors.New("request already sent")
	ErrNotCompleted  = errors.New("request not completed")
	ErrClosed        = errors.New("transport closed")
	ErrBodyTooLarge  = errors.New("response body too large")
)

// Handle identifies one request for its whole lifetime, from CreateRequest to Release.
type Handle uint64

// Completion is delivered once per sent request, on success, failure or timeout.
type Completion struct {
	Handle     Handle
	StatusCode int
	IOFailure  bool
	Err        error
}

// HTTPConfig customizes HTTPTransport behavior.
type HTTPConfig struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
	UserAgent  string
	// StoredBodyLimit caps how much of a response body is kept. A larger body
	// fails the request with ErrBodyTooLarge; nothing truncated is handed out.
	StoredBodyLimit int64
	QueueSize       int
}

// HTTPTransport issues asynchronous GET-style requests over net/http and
// reports completions on a single channel, so one goroutine can own all
// request bookkeeping.
type HTTPTransport struct {
	client    *http.Client
	logger    *slog.Logger
	userAgent string
	bodyLimit int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	completions chan Completion

	mu       sync.Mutex
	next     Handle
	requests map[Handle]*request
	closed   bool
}

type request struct {
	method  string
	url     string
	timeout time.Duration
	sent    bool
	done    bool
	status  int
	body    []byte
}

func NewHTTPTransport(cfg HTTPConfig) *HTTPTransport {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = transportLogger("http", "user_agent", strings.TrimSpace(cfg.UserAgent))
	}
	limit := cfg.StoredBodyLimit
	if limit <= 0 || limit > MaxStoredBodyLimit {
		limit = defaultStoredBodyLimit
	}
	queue := cfg.QueueSize
	if queue <= 0 {
		queue = defaultCompletionQueue
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &HTTPTransport{
		client:      client,
		logger:      logger,
		userAgent:   strings.TrimSpace(cfg.UserAgent),
		bodyLimit:   limit,
		ctx:         ctx,
		cancel:      cancel,
		completions: make(chan Completion, queue),
		requests:    make(map[Handle]*request),
	}
}

func (t *HTTPTransport) Completions() <-chan Completion {
	return t.completions
}

func (t *HTTPTransport) CreateRequest(method, rawURL string) (Handle, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return 0, fmt.Errorf("parse request url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return 0, fmt.Errorf("unsupported url scheme %q", parsed.Scheme)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, ErrClosed
	}
	t.next++
	h := t.next
	t.requests[h] = &request{
		method:  method,
		url:     parsed.String(),
		timeout: defaultRequestTimeout,
	}

	return h, nil
}

// SetTimeout sets the network activity timeout for a request that was not sent yet.
func (t *HTTPTransport) SetTimeout(h Handle, timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	req, ok := t.requests[h]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	if req.sent {
		return fmt.Errorf("%w: %d", ErrAlreadySent, h)
	}
	if timeout > 0 {
		req.timeout = timeout
	}

	return nil
}

func (t *HTTPTransport) Send(h Handle) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()

		return ErrClosed
	}
	req, ok := t.requests[h]
	if !ok {
		t.mu.Unlock()

		return fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	if req.sent {
		t.mu.Unlock()

		return fmt.Errorf("%w: %d", ErrAlreadySent, h)
	}
	req.sent = true
	method, target, timeout := req.method, req.url, req.timeout
	t.wg.Add(1)
	t.mu.Unlock()

	go t.do(h, method, target, timeout)

	return nil
}

func (t *HTTPTransport) do(h Handle, method, target string, timeout time.Duration) {
	defer t.wg.Done()

	ctx, cancel := context.WithTimeout(t.ctx, timeout)
	defer cancel()

	completion := Completion{Handle: h}
	status, body, err := t.fetch(ctx, method, target)
	if err != nil {
		completion.IOFailure = true
		completion.Err = err
		t.logger.Debug("request failed", "handle", h, "url", target, "error", err)
	} else {
		completion.StatusCode = status
		t.logger.Debug("request completed", "handle", h, "url", target, "status_code", status, "body_size", len(body))
	}

	t.mu.Lock()
	if req, ok := t.requests[h]; ok {
		req.done = true
		req.status = status
		req.body = body
	}
	t.mu.Unlock()

	select {
	case t.completions <- completion:
	case <-t.ctx.Done():
	}
}

func (t *HTTPTransport) fetch(ctx context.Context, method, target string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, t.bodyLimit+1))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response body: %w", err)
	}
	if int64(len(body)) > t.bodyLimit {
		return resp.StatusCode, nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, t.bodyLimit)
	}

	return resp.StatusCode, body, nil
}

func (t *HTTPTransport) ResponseBodySize(h Handle) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	req, err := t.completedLocked(h)
	if err != nil {
		return 0, err
	}

	return len(req.body), nil
}

// ResponseBody copies the body into buf. A buffer smaller than the body is
// rejected with io.ErrShortBuffer instead of truncating.
func (t *HTTPTransport) ResponseBody(h Handle, buf []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	req, err := t.completedLocked(h)
	if err != nil {
		return 0, err
	}
	if len(buf) < len(req.body) {
		return 0, io.ErrShortBuffer
	}

	return copy(buf, req.body), nil
}

func (t *HTTPTransport) completedLocked(h Handle) (*request, error) {
	req, ok := t.requests[h]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	if !req.done {
		return nil, fmt.Errorf("%w: %d", ErrNotCompleted, h)
	}

	return req, nil
}

func (t *HTTPTransport) Release(h Handle) {
	t.mu.Lock()
	delete(t.requests, h)
	t.mu.Unlock()
}

// Pending reports how many requests were created and not released yet.
func (t *HTTPTransport) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.requests)
}

// Close aborts in-flight requests and waits for their goroutines.
func (t *HTTPTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()

		return nil
	}
	t.closed = true
	t.mu.Unlock()

	t.cancel()
	t.wg.Wait()

	return nil
}
