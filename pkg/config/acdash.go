package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const DefaultConfigPath = "acdash.toml"

type Config struct {
	Endpoint   EndpointConfig `toml:"endpoint" yaml:"endpoint"`
	Session    SessionConfig  `toml:"session" yaml:"session"`
	Log        LogConfig      `toml:"log" yaml:"log"`
	Metrics    MetricsConfig  `toml:"metrics" yaml:"metrics"`
	Render     RenderConfig   `toml:"render" yaml:"render"`
	Mock       MockConfig     `toml:"mock" yaml:"mock"`
	configPath string         `toml:"-" yaml:"-"`
}

// EndpointConfig locates the telemetry producer. The feed is always served
// on the /ws path.
type EndpointConfig struct {
	Host string `toml:"host" yaml:"host"`
	Port int    `toml:"port" yaml:"port"`
}

type SessionConfig struct {
	Reconnect        string `toml:"reconnect" yaml:"reconnect"`
	HandshakeTimeout string `toml:"handshake_timeout,omitempty" yaml:"handshake_timeout,omitempty"`
}

type LogConfig struct {
	Level  string        `toml:"level" yaml:"level"`
	Format string        `toml:"format" yaml:"format"`
	File   LogFileConfig `toml:"file" yaml:"file"`
}

// LogFileConfig enables a rotated log file next to stderr when Path is set.
type LogFileConfig struct {
	Path       string `toml:"path,omitempty" yaml:"path,omitempty"`
	MaxSizeMB  int    `toml:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `toml:"compress" yaml:"compress"`
}

// MetricsConfig exposes Prometheus metrics on Addr; empty disables it.
type MetricsConfig struct {
	Addr string `toml:"addr,omitempty" yaml:"addr,omitempty"`
}

type RenderConfig struct {
	Mode   string `toml:"mode" yaml:"mode"`
	Buffer int    `toml:"buffer" yaml:"buffer"`
}

type MockConfig struct {
	Addr string `toml:"addr" yaml:"addr"`
	Rate int    `toml:"rate" yaml:"rate"`
}

const (
	RenderTUI   = "tui"
	RenderJSONL = "jsonl"
)

func Default() Config {
	return Config{
		Endpoint: EndpointConfig{
			Host: "localhost",
			Port: 8765,
		},
		Session: SessionConfig{
			Reconnect: "3s",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			File: LogFileConfig{
				MaxSizeMB:  10,
				MaxBackups: 3,
				MaxAgeDays: 7,
			},
		},
		Render: RenderConfig{
			Mode:   RenderTUI,
			Buffer: 64,
		},
		Mock: MockConfig{
			Addr: "127.0.0.1:8765",
			Rate: 60,
		},
	}
}

func Load(path string) (Config, error) {
	cfg, exists, err := LoadOrDefault(path)
	if err != nil {
		return Config{}, err
	}
	if !exists {
		return Config{}, os.ErrNotExist
	}
	return cfg, nil
}

// LoadOrDefault reads path, filling unset fields with defaults. A missing
// file is not an error; the defaults are returned with exists=false.
func LoadOrDefault(path string) (Config, bool, error) {
	cfg := Default()
	cfg.configPath = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.normalize(path)
			return cfg, false, nil
		}
		return Config{}, false, fmt.Errorf("read config: %w", err)
	}

	if err := unmarshal(path, data, &cfg); err != nil {
		return Config{}, true, fmt.Errorf("parse config: %w", err)
	}
	cfg.normalize(path)

	if err := cfg.Validate(); err != nil {
		return Config{}, true, err
	}
	return cfg, true, nil
}

func (cfg *Config) Save(path string) error {
	cfg.normalize(path)
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := marshal(path, cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (cfg *Config) ConfigPath() string {
	return cfg.configPath
}

func (cfg *Config) ReconnectDelay() time.Duration {
	d, err := time.ParseDuration(cfg.Session.Reconnect)
	if err != nil || d <= 0 {
		return 3 * time.Second
	}
	return d
}

// HandshakeTimeout returns zero when no timeout is configured.
func (cfg *Config) HandshakeTimeout() time.Duration {
	if cfg.Session.HandshakeTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(cfg.Session.HandshakeTimeout)
	if err != nil {
		return 0
	}
	return d
}

func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.Endpoint.Host) == "" {
		return fmt.Errorf("endpoint.host is empty")
	}
	if cfg.Endpoint.Port <= 0 || cfg.Endpoint.Port > 65535 {
		return fmt.Errorf("endpoint.port out of range: %d", cfg.Endpoint.Port)
	}

	d, err := time.ParseDuration(cfg.Session.Reconnect)
	if err != nil {
		return fmt.Errorf("session.reconnect: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("session.reconnect must be positive: %s", cfg.Session.Reconnect)
	}
	if cfg.Session.HandshakeTimeout != "" {
		d, err := time.ParseDuration(cfg.Session.HandshakeTimeout)
		if err != nil {
			return fmt.Errorf("session.handshake_timeout: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("session.handshake_timeout is negative: %s", cfg.Session.HandshakeTimeout)
		}
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level unknown: %s", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json: %s", cfg.Log.Format)
	}

	switch cfg.Render.Mode {
	case RenderTUI, RenderJSONL:
	default:
		return fmt.Errorf("render.mode must be %s or %s: %s", RenderTUI, RenderJSONL, cfg.Render.Mode)
	}

	if cfg.Mock.Rate <= 0 || cfg.Mock.Rate > 1000 {
		return fmt.Errorf("mock.rate out of range: %d", cfg.Mock.Rate)
	}
	return nil
}

func (cfg *Config) normalize(path string) {
	def := Default()

	cfg.Endpoint.Host = strings.TrimSpace(cfg.Endpoint.Host)
	if cfg.Endpoint.Host == "" {
		cfg.Endpoint.Host = def.Endpoint.Host
	}
	if cfg.Endpoint.Port == 0 {
		cfg.Endpoint.Port = def.Endpoint.Port
	}
	if cfg.Session.Reconnect == "" {
		cfg.Session.Reconnect = def.Session.Reconnect
	}

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
	if cfg.Log.File.MaxSizeMB <= 0 {
		cfg.Log.File.MaxSizeMB = def.Log.File.MaxSizeMB
	}

	cfg.Render.Mode = strings.ToLower(strings.TrimSpace(cfg.Render.Mode))
	if cfg.Render.Mode == "" {
		cfg.Render.Mode = def.Render.Mode
	}
	if cfg.Render.Buffer <= 0 {
		cfg.Render.Buffer = def.Render.Buffer
	}

	if cfg.Mock.Addr == "" {
		cfg.Mock.Addr = def.Mock.Addr
	}
	if cfg.Mock.Rate == 0 {
		cfg.Mock.Rate = def.Mock.Rate
	}

	if path == "" {
		path = cfg.configPath
	}
	if path == "" {
		path = DefaultConfigPath
	}
	cfg.configPath = path
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func unmarshal(path string, data []byte, cfg *Config) error {
	if isYAML(path) {
		return yaml.Unmarshal(data, cfg)
	}
	return toml.Unmarshal(data, cfg)
}

func marshal(path string, cfg *Config) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(cfg)
	}
	return toml.Marshal(cfg)
}
