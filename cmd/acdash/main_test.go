package main

import (
	"bytes"
	"context"
	"net"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acdash/pkg/bridge/simfeed"
	"acdash/pkg/config"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestTimeParse(t *testing.T) {
	code, out, _ := execute(t, "time", "parse", "1:23.456", ":45:678", "garbage")
	require.Equal(t, 0, code)
	assert.Equal(t, "1:23.456\t83456\t01:23.456\n:45:678\t45678\t00:45.678\ngarbage\tinvalid\n", out)
}

func TestTimeFormat(t *testing.T) {
	code, out, _ := execute(t, "time", "format", "83456", "0")
	require.Equal(t, 0, code)
	assert.Equal(t, "01:23.456\n00:00.000\n", out)

	code, _, errOut := execute(t, "time", "format", "soon")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "invalid milliseconds")
}

func TestUsageErrors(t *testing.T) {
	code, _, errOut := execute(t, "bogus")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "unknown command")

	code, _, _ = execute(t, "time", "parse", "--nope")
	assert.Equal(t, 2, code)

	code, _, errOut = execute(t, "config", "show", "--config", filepath.Join(t.TempDir(), "none.toml"), "--port", "0")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "endpoint.port")
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acdash.toml")

	code, out, _ := execute(t, "config", "init", path)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "wrote "+path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Endpoint, cfg.Endpoint)

	code, _, errOut := execute(t, "config", "init", path)
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "already exists")

	t.Setenv("ACDASH_ENDPOINT_HOST", "sim-rig")
	t.Setenv("ACDASH_RENDER_MODE", "JSONL")
	code, out, _ = execute(t, "config", "show", "--config", path, "--port", "9001")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "host = 'sim-rig'")
	assert.Contains(t, out, "port = 9001")
	assert.Contains(t, out, "mode = 'jsonl'")
}

func TestRunJSONLAgainstSimulatedFeed(t *testing.T) {
	srv := simfeed.NewServer("")
	hs := httptest.NewServer(srv.Handler())
	defer hs.Close()

	addr := hs.Listener.Addr().(*net.TCPAddr)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stdout, stderr syncBuffer
	done := make(chan int, 1)
	go func() {
		done <- run(ctx, []string{
			"run",
			"--config", filepath.Join(t.TempDir(), "none.toml"),
			"--mode", "jsonl",
			"--host", addr.IP.String(),
			"--port", strconv.Itoa(addr.Port),
			"--reconnect", "50ms",
			"--log-level", "error",
		}, &stdout, &stderr)
	}()

	require.Eventually(t, func() bool { return srv.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, srv.Broadcast(simfeed.NewGenerator().Snapshot(100*time.Second)))

	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), `"type":"snapshot"`)
	}, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case code := <-done:
		assert.Equal(t, 0, code, stderr.String())
	case <-time.After(3 * time.Second):
		t.Fatalf("run did not stop after cancel")
	}

	out := stdout.String()
	assert.Contains(t, out, `"type":"connection","connected":true`)
	assert.Contains(t, out, `"timeDiff":"-01:18.750"`)
}
