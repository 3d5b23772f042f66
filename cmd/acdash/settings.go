package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"acdash/pkg/config"
)

const envPrefix = "ACDASH"

// setting ties a config key to its flag and to the field it overrides.
type setting struct {
	key  string
	flag string
	get  func(*config.Config) any
	set  func(*config.Config, *viper.Viper, string)
}

var settings = []setting{
	{"endpoint.host", "host",
		func(c *config.Config) any { return c.Endpoint.Host },
		func(c *config.Config, v *viper.Viper, k string) { c.Endpoint.Host = strings.TrimSpace(v.GetString(k)) }},
	{"endpoint.port", "port",
		func(c *config.Config) any { return c.Endpoint.Port },
		func(c *config.Config, v *viper.Viper, k string) { c.Endpoint.Port = v.GetInt(k) }},
	{"session.reconnect", "reconnect",
		func(c *config.Config) any { return c.Session.Reconnect },
		func(c *config.Config, v *viper.Viper, k string) { c.Session.Reconnect = v.GetString(k) }},
	{"session.handshake_timeout", "handshake-timeout",
		func(c *config.Config) any { return c.Session.HandshakeTimeout },
		func(c *config.Config, v *viper.Viper, k string) { c.Session.HandshakeTimeout = v.GetString(k) }},
	{"log.level", "log-level",
		func(c *config.Config) any { return c.Log.Level },
		func(c *config.Config, v *viper.Viper, k string) { c.Log.Level = strings.ToLower(v.GetString(k)) }},
	{"log.format", "log-format",
		func(c *config.Config) any { return c.Log.Format },
		func(c *config.Config, v *viper.Viper, k string) { c.Log.Format = strings.ToLower(v.GetString(k)) }},
	{"log.file.path", "log-file",
		func(c *config.Config) any { return c.Log.File.Path },
		func(c *config.Config, v *viper.Viper, k string) { c.Log.File.Path = v.GetString(k) }},
	{"metrics.addr", "metrics-addr",
		func(c *config.Config) any { return c.Metrics.Addr },
		func(c *config.Config, v *viper.Viper, k string) { c.Metrics.Addr = v.GetString(k) }},
	{"render.mode", "mode",
		func(c *config.Config) any { return c.Render.Mode },
		func(c *config.Config, v *viper.Viper, k string) { c.Render.Mode = strings.ToLower(v.GetString(k)) }},
	{"render.buffer", "buffer",
		func(c *config.Config) any { return c.Render.Buffer },
		func(c *config.Config, v *viper.Viper, k string) { c.Render.Buffer = v.GetInt(k) }},
	{"mock.addr", "addr",
		func(c *config.Config) any { return c.Mock.Addr },
		func(c *config.Config, v *viper.Viper, k string) { c.Mock.Addr = v.GetString(k) }},
	{"mock.rate", "rate",
		func(c *config.Config) any { return c.Mock.Rate },
		func(c *config.Config, v *viper.Viper, k string) { c.Mock.Rate = v.GetInt(k) }},
}

// loadSettings reads the config file named by --config and overlays
// ACDASH_* environment variables and the flags set on cmd.
func loadSettings(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	cfg, _, err := config.LoadOrDefault(path)
	if err != nil {
		return config.Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for _, s := range settings {
		v.SetDefault(s.key, s.get(&cfg))
		if f := cmd.Flags().Lookup(s.flag); f != nil {
			if err := v.BindPFlag(s.key, f); err != nil {
				return config.Config{}, err
			}
		}
	}
	for _, s := range settings {
		s.set(&cfg, v, s.key)
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, usageError{err: err}
	}
	return cfg, nil
}
