package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestWatchConfigReloadsOnWrite(t *testing.T) {
	t.Cleanup(func() { SetConfig(nil) })
	SetConfig(nil)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("send_queue_size: 64\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() {
		_ = WatchConfig(ctx, path, zerolog.Nop())
	}()

	// Give the watcher a moment to attach before rewriting the file.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("send_queue_size: 128\n"), 0o600))

	require.Eventually(t, func() bool {
		return ActiveConfig().SendQueueSize == 128
	}, 3*time.Second, 25*time.Millisecond, "live config should pick up the rewritten file")
}

func TestWatchConfigKeepsPreviousOnBadReload(t *testing.T) {
	t.Cleanup(func() { SetConfig(nil) })
	SetConfig(&Config{SendQueueSize: 64})

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("send_queue_size: 64\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() {
		_ = WatchConfig(ctx, path, zerolog.Nop())
	}()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("send_queue_size: [broken\n"), 0o600))

	time.Sleep(300 * time.Millisecond)
	require.Equal(t, 64, ActiveConfig().SendQueueSize)
}
