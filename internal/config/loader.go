package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidVoices lists the synthesised voices recognised by the realtime
// endpoint. Used by [Validate] to warn about unrecognised names; the list is
// advisory, the endpoint remains the authority.
var ValidVoices = []string{"alloy", "ash", "ballad", "coral", "echo", "sage", "shimmer", "verse"}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and validates
// the result. Useful in tests where configs are constructed from string
// literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills zero values in cfg with their documented defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Realtime.ConnectTimeout == 0 {
		cfg.Realtime.ConnectTimeout = 15 * time.Second
	}
	if cfg.Reconnect.MaxRetries == 0 {
		cfg.Reconnect.MaxRetries = 10
	}
	if cfg.Reconnect.Backoff == 0 {
		cfg.Reconnect.Backoff = time.Second
	}
	if cfg.Reconnect.MaxBackoff == 0 {
		cfg.Reconnect.MaxBackoff = 30 * time.Second
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Realtime
	if cfg.Realtime.APIKey == "" {
		errs = append(errs, errors.New("realtime.api_key is required"))
	}
	if cfg.Realtime.ConnectTimeout < 0 {
		errs = append(errs, fmt.Errorf("realtime.connect_timeout %s must not be negative", cfg.Realtime.ConnectTimeout))
	}
	if cfg.Realtime.Voice != "" && !slices.Contains(ValidVoices, cfg.Realtime.Voice) {
		slog.Warn("unrecognised realtime voice; the endpoint may reject it",
			"voice", cfg.Realtime.Voice)
	}

	// Reconnect
	if cfg.Reconnect.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("reconnect.max_retries %d must not be negative", cfg.Reconnect.MaxRetries))
	}
	if cfg.Reconnect.Backoff < 0 {
		errs = append(errs, fmt.Errorf("reconnect.backoff %s must not be negative", cfg.Reconnect.Backoff))
	}
	if cfg.Reconnect.MaxBackoff < cfg.Reconnect.Backoff {
		errs = append(errs, fmt.Errorf("reconnect.max_backoff %s must be at least reconnect.backoff %s",
			cfg.Reconnect.MaxBackoff, cfg.Reconnect.Backoff))
	}

	return errors.Join(errs...)
}
