// Package config provides the configuration schema and loader for the
// voxwire voice client.
package config

import "time"

// LogLevel controls log verbosity for the client.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for voxwire.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Realtime  RealtimeConfig  `yaml:"realtime"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
}

// ServerConfig holds logging and local endpoint settings.
type ServerConfig struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr is the TCP address serving /metrics and /healthz
	// (e.g. ":9090"). Empty disables the local HTTP endpoint.
	MetricsAddr string `yaml:"metrics_addr"`
}

// RealtimeConfig configures the duplex connection to the conversational
// realtime endpoint.
type RealtimeConfig struct {
	// APIKey authenticates against the realtime endpoint. Required.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the default WebSocket endpoint. Leave empty to use
	// the built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects the conversational model.
	Model string `yaml:"model"`

	// Voice selects the synthesised voice for audio responses.
	Voice string `yaml:"voice"`

	// Instructions is the system-level prompt applied to the session.
	Instructions string `yaml:"instructions"`

	// ConnectTimeout bounds session establishment. Zero means the default
	// of 15 seconds; a hung dial never stalls the client indefinitely.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// ReconnectConfig tunes automatic reconnection after transport loss.
type ReconnectConfig struct {
	// Enabled turns automatic reconnection on.
	Enabled bool `yaml:"enabled"`

	// MaxRetries is the number of attempts before giving up. Defaults to 10
	// if zero.
	MaxRetries int `yaml:"max_retries"`

	// Backoff is the initial delay between attempts; it doubles per attempt
	// up to MaxBackoff. Defaults to 1s if zero.
	Backoff time.Duration `yaml:"backoff"`

	// MaxBackoff is the upper limit on the backoff delay. Defaults to 30s
	// if zero.
	MaxBackoff time.Duration `yaml:"max_backoff"`
}
