package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"json-decode-bench/internal/domain"
)

// TestWatchReloadsOnSave checks that external edits reach the callback.
func TestWatchReloadsOnSave(t *testing.T) {
	store := NewJSONStore(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, store.Save(DefaultSettings()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan domain.Settings, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, store, nil, func(s domain.Settings) { changes <- s })
	}()

	want := DefaultSettings()
	want.Threads = 3
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()

	// Saves repeat until seen, since the watcher may not be registered yet.
	for {
		select {
		case got := <-changes:
			if got.Threads == 3 {
				cancel()
				require.NoError(t, <-done)
				return
			}
		case <-tick.C:
			require.NoError(t, store.Save(want))
		case <-deadline:
			t.Fatal("settings change was not observed")
		}
	}
}
