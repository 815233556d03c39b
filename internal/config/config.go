// Package config loads the client's YAML configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"vibecraft.ai/internal/settings"
	"vibecraft.ai/internal/transport/ws"
)

const DefaultEndpoint = "ws://localhost:9001"

type Config struct {
	Endpoint  string          `yaml:"endpoint"`
	LogLevel  string          `yaml:"log_level"`
	Transport TransportConfig `yaml:"transport"`
	Client    ClientConfig    `yaml:"client"`
	Settings  SettingsConfig  `yaml:"settings"`
	Recorder  RecorderConfig  `yaml:"recorder"`
	Debug     DebugConfig     `yaml:"debug"`
}

type TransportConfig struct {
	Reconnect        bool          `yaml:"reconnect"`
	InitialBackoff   time.Duration `yaml:"initial_backoff"`
	MaxBackoff       time.Duration `yaml:"max_backoff"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	InboundBuffer    int           `yaml:"inbound_buffer"`
}

type ClientConfig struct {
	ClearOnReconnect bool `yaml:"clear_on_reconnect"`
	LogHistory       int  `yaml:"log_history"`
	VibeBufferBytes  int  `yaml:"vibe_buffer_bytes"`
}

type SettingsConfig struct {
	DBPath           string `yaml:"db_path"`
	ProjectDirectory string `yaml:"project_directory"`
	MistralAPIKey    string `yaml:"mistral_api_key"`
}

type RecorderConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

type DebugConfig struct {
	Listen string `yaml:"listen"`
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		Endpoint: DefaultEndpoint,
		LogLevel: "info",
		Transport: TransportConfig{
			Reconnect:        false,
			InitialBackoff:   200 * time.Millisecond,
			MaxBackoff:       5 * time.Second,
			HandshakeTimeout: 5 * time.Second,
			WriteTimeout:     5 * time.Second,
			InboundBuffer:    64,
		},
		Client: ClientConfig{
			LogHistory:      200,
			VibeBufferBytes: 64 * 1024,
		},
		Settings: SettingsConfig{
			DBPath: "data/settings.db",
		},
		Recorder: RecorderConfig{
			Dir: "data/frames",
		},
	}
}

// Normalize fills zero values left by a partial file.
func (c *Config) Normalize() {
	if c == nil {
		return
	}
	d := defaults()
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	if c.Endpoint == "" {
		c.Endpoint = d.Endpoint
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Transport.InitialBackoff == 0 {
		c.Transport.InitialBackoff = d.Transport.InitialBackoff
	}
	if c.Transport.MaxBackoff == 0 {
		c.Transport.MaxBackoff = d.Transport.MaxBackoff
	}
	if c.Transport.HandshakeTimeout == 0 {
		c.Transport.HandshakeTimeout = d.Transport.HandshakeTimeout
	}
	if c.Transport.WriteTimeout == 0 {
		c.Transport.WriteTimeout = d.Transport.WriteTimeout
	}
	if c.Transport.InboundBuffer == 0 {
		c.Transport.InboundBuffer = d.Transport.InboundBuffer
	}
	if c.Client.LogHistory == 0 {
		c.Client.LogHistory = d.Client.LogHistory
	}
	if c.Client.VibeBufferBytes == 0 {
		c.Client.VibeBufferBytes = d.Client.VibeBufferBytes
	}
	if strings.TrimSpace(c.Settings.DBPath) == "" {
		c.Settings.DBPath = d.Settings.DBPath
	}
	if strings.TrimSpace(c.Recorder.Dir) == "" {
		c.Recorder.Dir = d.Recorder.Dir
	}
}

func (c Config) Validate() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("endpoint: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("endpoint %q: scheme must be ws or wss", c.Endpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint %q: missing host", c.Endpoint)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q: want debug, info, warn or error", c.LogLevel)
	}
	t := c.Transport
	if t.InitialBackoff < 0 || t.MaxBackoff < 0 || t.HandshakeTimeout < 0 || t.WriteTimeout < 0 || t.ReadTimeout < 0 {
		return fmt.Errorf("transport: durations must not be negative")
	}
	if t.MaxBackoff < t.InitialBackoff {
		return fmt.Errorf("transport: max_backoff %s below initial_backoff %s", t.MaxBackoff, t.InitialBackoff)
	}
	if t.InboundBuffer < 0 {
		return fmt.Errorf("transport: inbound_buffer must not be negative")
	}
	if c.Client.LogHistory < 0 || c.Client.VibeBufferBytes < 0 {
		return fmt.Errorf("client: limits must not be negative")
	}
	return nil
}

// ApplyEnv overrides file values with VIBECRAFT_* variables that are set.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv("VIBECRAFT_ENDPOINT")); v != "" {
		c.Endpoint = v
	}
	if v := strings.TrimSpace(getenv("VIBECRAFT_PROJECT_DIR")); v != "" {
		c.Settings.ProjectDirectory = v
	}
	if v := strings.TrimSpace(getenv("VIBECRAFT_MISTRAL_API_KEY")); v != "" {
		c.Settings.MistralAPIKey = v
	}
}

func (c Config) TransportConfig() ws.Config {
	return ws.Config{
		Endpoint:         c.Endpoint,
		Reconnect:        c.Transport.Reconnect,
		InitialBackoff:   c.Transport.InitialBackoff,
		MaxBackoff:       c.Transport.MaxBackoff,
		HandshakeTimeout: c.Transport.HandshakeTimeout,
		WriteTimeout:     c.Transport.WriteTimeout,
		ReadTimeout:      c.Transport.ReadTimeout,
		InboundBuffer:    c.Transport.InboundBuffer,
	}
}

// SettingsOverride is the part of Settings given in the file or the
// environment. It takes precedence over stored values.
func (c Config) SettingsOverride() settings.Settings {
	return settings.Settings{
		ProjectDirectory: c.Settings.ProjectDirectory,
		MistralAPIKey:    c.Settings.MistralAPIKey,
	}
}
