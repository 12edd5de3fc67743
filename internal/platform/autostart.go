package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	autostartEntryName = "motdwatch"
	headlessArg        = "-no-console"
	configArg          = "-config"
)

// AutostartConfig describes the login entry that launches the watcher.
type AutostartConfig struct {
	Enabled bool
	// Headless starts without the stdin console and without a terminal window.
	Headless bool
	// ConfigPath is passed with -config when set.
	ConfigPath string
}

type AutostartManager interface {
	Sync(cfg AutostartConfig) error
}

func NewAutostartManager() AutostartManager {
	return newAutostartManager()
}

func launchArgs(cfg AutostartConfig) []string {
	var args []string
	if cfg.Headless {
		args = append(args, headlessArg)
	}
	if path := strings.TrimSpace(cfg.ConfigPath); path != "" {
		args = append(args, configArg, path)
	}

	return args
}

func buildLaunchCommand(cfg AutostartConfig) (string, []string, error) {
	executable, err := resolveExecutablePath()
	if err != nil {
		return "", nil, err
	}

	return executable, launchArgs(cfg), nil
}

func resolveExecutablePath() (string, error) {
	rawPath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable path: %w", err)
	}
	trimmed := strings.TrimSpace(rawPath)
	if trimmed == "" {
		return "", fmt.Errorf("resolve executable path: path is empty")
	}
	if !filepath.IsAbs(trimmed) {
		trimmed, err = filepath.Abs(trimmed)
		if err != nil {
			return "", fmt.Errorf("resolve executable absolute path: %w", err)
		}
	}

	if resolved, err := filepath.EvalSymlinks(trimmed); err == nil {
		trimmed = resolved
	}

	return filepath.Clean(trimmed), nil
}
