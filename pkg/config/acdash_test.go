package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acdash/pkg/config"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "localhost", cfg.Endpoint.Host)
	assert.Equal(t, 8765, cfg.Endpoint.Port)
	assert.Equal(t, 3*time.Second, cfg.ReconnectDelay())
	assert.Zero(t, cfg.HandshakeTimeout())
	assert.Equal(t, config.RenderTUI, cfg.Render.Mode)
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")

	cfg, exists, err := config.LoadOrDefault(path)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, path, cfg.ConfigPath())
	assert.Equal(t, config.Default().Endpoint, cfg.Endpoint)

	_, err = config.Load(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadOrDefaultFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acdash.toml")
	writeFile(t, path, `
[endpoint]
host = " 192.168.1.20 "

[session]
reconnect = "500ms"
handshake_timeout = "2s"

[log]
level = "DEBUG"
`)

	cfg, exists, err := config.LoadOrDefault(path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "192.168.1.20", cfg.Endpoint.Host)
	assert.Equal(t, 8765, cfg.Endpoint.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.ReconnectDelay())
	assert.Equal(t, 2*time.Second, cfg.HandshakeTimeout())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 60, cfg.Mock.Rate)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acdash.yaml")
	writeFile(t, path, `
endpoint:
  host: sim-rig
  port: 9000
render:
  mode: jsonl
metrics:
  addr: 127.0.0.1:9100
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sim-rig", cfg.Endpoint.Host)
	assert.Equal(t, 9000, cfg.Endpoint.Port)
	assert.Equal(t, config.RenderJSONL, cfg.Render.Mode)
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Addr)
	assert.Equal(t, "3s", cfg.Session.Reconnect)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"port":      "[endpoint]\nport = 70000\n",
		"reconnect": "[session]\nreconnect = \"soon\"\n",
		"negative":  "[session]\nreconnect = \"-1s\"\n",
		"handshake": "[session]\nhandshake_timeout = \"x\"\n",
		"level":     "[log]\nlevel = \"loud\"\n",
		"format":    "[log]\nformat = \"xml\"\n",
		"mode":      "[render]\nmode = \"gui\"\n",
		"rate":      "[mock]\nrate = 5000\n",
		"syntax":    "[endpoint\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "acdash.toml")
			writeFile(t, path, content)
			_, _, err := config.LoadOrDefault(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"nested/acdash.toml", "nested/acdash.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			cfg := config.Default()
			cfg.Endpoint.Host = "10.0.0.5"
			cfg.Metrics.Addr = ":9100"
			require.NoError(t, cfg.Save(path))

			loaded, err := config.Load(path)
			require.NoError(t, err)
			assert.Equal(t, cfg.Endpoint, loaded.Endpoint)
			assert.Equal(t, cfg.Metrics, loaded.Metrics)
			assert.Equal(t, cfg.Log, loaded.Log)
		})
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
