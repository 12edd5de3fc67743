package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// VersionCompareMode selects how local and remote version strings are ordered.
type VersionCompareMode string

const (
	VersionCompareLexical VersionCompareMode = "lexical"
	VersionCompareSemver  VersionCompareMode = "semver"

	DefaultVersionURL       = "http://services.0x13.io/tf2c/version/?latest=1"
	DefaultMessageURL       = "http://services.0x13.io/tf2c/motd/"
	DefaultCheckFrequency   = 900
	DefaultRequestTimeout   = 5
	DefaultMaxBodySize      = 128
	DefaultFrameIntervalMS  = 250
	DefaultVersionFile      = "version.txt"
	DefaultProductName      = "TF2C"
	DefaultDownloadURL      = "www.tf2classic.com"
	DefaultPopupIcon        = "ico_notify_flag_moving"
	DefaultPopupBurst       = 3
	DefaultPopupIntervalSec = 10
)

// MaxBodySizeLimit matches the largest body the HTTP transport keeps.
const MaxBodySizeLimit = 64 * 1024

// LoggingConfig defines runtime logging behavior.
type LoggingConfig struct {
	Level     string `json:"level"`
	LogToFile bool   `json:"log_to_file"`
}

// PollerConfig controls endpoints and timing of the version and message checks.
type PollerConfig struct {
	VersionURL     string             `json:"version_url"`
	MessageURL     string             `json:"message_url"`
	CheckFrequency int                `json:"check_frequency"`
	RequestTimeout int                `json:"request_timeout"`
	MaxBodySize    int                `json:"max_body_size"`
	FrameInterval  int                `json:"frame_interval"`
	VersionFile    string             `json:"version_file"`
	VersionCompare VersionCompareMode `json:"version_compare"`
	ProductName    string             `json:"product_name"`
	DownloadURL    string             `json:"download_url"`
}

// NotificationConfig stores popup delivery preferences.
type NotificationConfig struct {
	Popups        bool   `json:"popups"`
	Desktop       bool   `json:"desktop"`
	PopupIcon     string `json:"popup_icon"`
	PopupBurst    int    `json:"popup_burst"`
	PopupInterval int    `json:"popup_interval"`
}

// StorageConfig toggles sqlite persistence of notifications and poller state.
type StorageConfig struct {
	Enabled bool `json:"enabled"`
}

// AutostartConfig controls the login entry that launches the watcher.
type AutostartConfig struct {
	Enabled  bool `json:"enabled"`
	Headless bool `json:"headless"`
}

// AppConfig is the root persisted application configuration.
type AppConfig struct {
	Logging       LoggingConfig      `json:"logging"`
	Poller        PollerConfig       `json:"poller"`
	Notifications NotificationConfig `json:"notifications"`
	Storage       StorageConfig      `json:"storage"`
	Autostart     AutostartConfig    `json:"autostart"`
	DevMode       bool               `json:"dev_mode"`
}

func Default() AppConfig {
	return AppConfig{
		Logging: LoggingConfig{
			Level:     "info",
			LogToFile: false,
		},
		Poller: PollerConfig{
			VersionURL:     DefaultVersionURL,
			MessageURL:     DefaultMessageURL,
			CheckFrequency: DefaultCheckFrequency,
			RequestTimeout: DefaultRequestTimeout,
			MaxBodySize:    DefaultMaxBodySize,
			FrameInterval:  DefaultFrameIntervalMS,
			VersionFile:    DefaultVersionFile,
			VersionCompare: VersionCompareLexical,
			ProductName:    DefaultProductName,
			DownloadURL:    DefaultDownloadURL,
		},
		Notifications: NotificationConfig{
			Popups:        true,
			Desktop:       true,
			PopupIcon:     DefaultPopupIcon,
			PopupBurst:    DefaultPopupBurst,
			PopupInterval: DefaultPopupIntervalSec,
		},
		Storage: StorageConfig{
			Enabled: true,
		},
		Autostart: AutostartConfig{
			Enabled:  false,
			Headless: true,
		},
		DevMode: false,
	}
}

func Load(path string) (AppConfig, error) {
	cfg := Default()
	cleanPath := filepath.Clean(path)
	// #nosec G304 -- path is resolved by app runtime and points to user config dir.
	raw, err := os.ReadFile(cleanPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}

		return AppConfig{}, fmt.Errorf("read config: %w", err)
	}

	if err := decode(cleanPath, raw, &cfg); err != nil {
		return AppConfig{}, err
	}
	cfg.FillMissingDefaults()

	return cfg, nil
}

func decode(path string, raw []byte, cfg *AppConfig) error {
	jsonRaw, format, err := coerceToJSONBytes(path, raw)
	if err != nil {
		return fmt.Errorf("decode config %s: %w", format, err)
	}

	dec := json.NewDecoder(bytes.NewReader(jsonRaw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decode config %s: %w", format, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config %s: trailing data", format)
	}

	return nil
}

func (c *AppConfig) FillMissingDefaults() {
	def := Default()
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = def.Logging.Level
	}
	if strings.TrimSpace(c.Poller.VersionURL) == "" {
		c.Poller.VersionURL = def.Poller.VersionURL
	}
	if strings.TrimSpace(c.Poller.MessageURL) == "" {
		c.Poller.MessageURL = def.Poller.MessageURL
	}
	if c.Poller.CheckFrequency <= 0 {
		c.Poller.CheckFrequency = def.Poller.CheckFrequency
	}
	if c.Poller.RequestTimeout <= 0 {
		c.Poller.RequestTimeout = def.Poller.RequestTimeout
	}
	if c.Poller.MaxBodySize <= 0 {
		c.Poller.MaxBodySize = def.Poller.MaxBodySize
	}
	if c.Poller.FrameInterval <= 0 {
		c.Poller.FrameInterval = def.Poller.FrameInterval
	}
	if strings.TrimSpace(c.Poller.VersionFile) == "" {
		c.Poller.VersionFile = def.Poller.VersionFile
	}
	c.Poller.VersionCompare = normalizeCompareMode(c.Poller.VersionCompare)
	if strings.TrimSpace(c.Poller.ProductName) == "" {
		c.Poller.ProductName = def.Poller.ProductName
	}
	if strings.TrimSpace(c.Poller.DownloadURL) == "" {
		c.Poller.DownloadURL = def.Poller.DownloadURL
	}
	if strings.TrimSpace(c.Notifications.PopupIcon) == "" {
		c.Notifications.PopupIcon = def.Notifications.PopupIcon
	}
	if c.Notifications.PopupBurst <= 0 {
		c.Notifications.PopupBurst = def.Notifications.PopupBurst
	}
	if c.Notifications.PopupInterval <= 0 {
		c.Notifications.PopupInterval = def.Notifications.PopupInterval
	}
}

func normalizeCompareMode(mode VersionCompareMode) VersionCompareMode {
	switch VersionCompareMode(strings.ToLower(strings.TrimSpace(string(mode)))) {
	case VersionCompareSemver:
		return VersionCompareSemver
	default:
		return VersionCompareLexical
	}
}

func (c AppConfig) Validate() error {
	if err := validateEndpoint("version_url", c.Poller.VersionURL); err != nil {
		return err
	}
	if err := validateEndpoint("message_url", c.Poller.MessageURL); err != nil {
		return err
	}
	if c.Poller.CheckFrequency <= 0 {
		return errors.New("check frequency must be positive")
	}
	if c.Poller.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}
	if c.Poller.MaxBodySize <= 0 {
		return errors.New("max body size must be positive")
	}
	if c.Poller.MaxBodySize > MaxBodySizeLimit {
		return fmt.Errorf("max body size must not exceed %d bytes", MaxBodySizeLimit)
	}
	switch c.Poller.VersionCompare {
	case VersionCompareLexical, VersionCompareSemver:
	default:
		return fmt.Errorf("unknown version compare mode: %s", c.Poller.VersionCompare)
	}

	return nil
}

func validateEndpoint(name, raw string) error {
	value := strings.TrimSpace(raw)
	if value == "" {
		return fmt.Errorf("%s is required", name)
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) url", name)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s host is required", name)
	}

	return nil
}

// CheckFrequencyDuration returns the minimum interval between automatic polls.
func (c PollerConfig) CheckFrequencyDuration() time.Duration {
	return time.Duration(c.CheckFrequency) * time.Second
}

func (c PollerConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

func (c PollerConfig) FrameIntervalDuration() time.Duration {
	return time.Duration(c.FrameInterval) * time.Millisecond
}

func (c NotificationConfig) PopupIntervalDuration() time.Duration {
	return time.Duration(c.PopupInterval) * time.Second
}

func Save(path string, cfg AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0o600); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp config: %w", err)
	}

	return nil
}
