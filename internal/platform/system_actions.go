package platform

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
)

// SystemActions provides OS-specific helpers triggered from the console.
type SystemActions interface {
	OpenURL(rawURL string) error
}

func NewSystemActions() SystemActions {
	return systemActions{goos: runtime.GOOS, start: startCommandDetached}
}

type commandSpec struct {
	name string
	args []string
}

type commandStarter func(name string, args ...string) error

type systemActions struct {
	goos  string
	start commandStarter
}

func (a systemActions) OpenURL(rawURL string) error {
	target, err := NormalizeBrowserURL(rawURL)
	if err != nil {
		return err
	}

	return openURLForOS(a.goos, target, a.start)
}

// NormalizeBrowserURL accepts bare hosts such as "www.tf2classic.com" and
// rejects anything that is not http(s).
func NormalizeBrowserURL(rawURL string) (string, error) {
	value := strings.TrimSpace(rawURL)
	if value == "" {
		return "", errors.New("url is empty")
	}
	if !strings.Contains(value, "://") {
		value = "https://" + value
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported url scheme: %s", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", errors.New("url host is required")
	}

	return parsed.String(), nil
}

func openURLForOS(goos, target string, start commandStarter) error {
	normalizedOS := strings.ToLower(strings.TrimSpace(goos))
	commands, err := openURLCommandsForOS(normalizedOS, target)
	if err != nil {
		return err
	}

	var errs []error
	for i, spec := range commands {
		attempt := i + 1
		if err := start(spec.name, spec.args...); err == nil {
			slog.Info("opened url", "goos", normalizedOS, "command", spec.name, "attempt", attempt, "url", target)

			return nil
		} else {
			slog.Debug(
				"open url command failed",
				"goos", normalizedOS,
				"command", spec.name,
				"attempt", attempt,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("%s: %w", spec.name, err))
		}
	}

	joinedErr := errors.Join(errs...)
	slog.Warn("failed to open url", "goos", normalizedOS, "error", joinedErr)

	return joinedErr
}

func openURLCommandsForOS(goos, target string) ([]commandSpec, error) {
	switch goos {
	case "windows":
		return []commandSpec{
			{name: "rundll32", args: []string{"url.dll,FileProtocolHandler", target}},
		}, nil
	case "darwin":
		return []commandSpec{
			{name: "open", args: []string{target}},
		}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return []commandSpec{
			{name: "xdg-open", args: []string{target}},
			{name: "gio", args: []string{"open", target}},
			{name: "sensible-browser", args: []string{target}},
		}, nil
	default:
		return nil, fmt.Errorf("opening urls is not supported on %s", goos)
	}
}

func startCommandDetached(name string, args ...string) error {
	// #nosec G204 -- command names are fixed per OS and the url is validated.
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()

	return nil
}
