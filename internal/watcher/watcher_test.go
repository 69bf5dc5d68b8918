package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReload_FiresOnceAfterBurst(t *testing.T) {
	dir := t.TempDir()

	var reloads atomic.Int32
	w, err := New(func(name string) error {
		assert.Equal(t, "core", name)
		reloads.Add(1)
		return nil
	}, WithDebounce(100*time.Millisecond))
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	require.NoError(t, w.Watch("core", dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// A segment swap touches several files in quick succession.
	for i := 0; i < 5; i++ {
		path := filepath.Join(dir, "segment")
		require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return reloads.Load() == 1
	}, 3*time.Second, 50*time.Millisecond, "burst should debounce to one reload")

	// The quiet window passed; no extra reloads fire.
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), reloads.Load())
}

func TestReload_PerModuleRouting(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()

	var gotA, gotB atomic.Int32
	w, err := New(func(name string) error {
		switch name {
		case "alpha":
			gotA.Add(1)
		case "beta":
			gotB.Add(1)
		}
		return nil
	}, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	require.NoError(t, w.Watch("alpha", dirA))
	require.NoError(t, w.Watch("beta", dirB))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dirA, "f"), []byte("x"), 0o644))

	require.Eventually(t, func() bool {
		return gotA.Load() == 1
	}, 3*time.Second, 50*time.Millisecond)
	assert.Equal(t, int32(0), gotB.Load())
}

func TestUnwatch_StopsReloads(t *testing.T) {
	dir := t.TempDir()

	var reloads atomic.Int32
	w, err := New(func(string) error {
		reloads.Add(1)
		return nil
	}, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	require.NoError(t, w.Watch("core", dir))
	require.NoError(t, w.Unwatch(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte("x"), 0o644))
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(0), reloads.Load())
}

func TestClose_CancelsPendingReloads(t *testing.T) {
	dir := t.TempDir()

	var reloads atomic.Int32
	w, err := New(func(string) error {
		reloads.Add(1)
		return nil
	}, WithDebounce(200*time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, w.Watch("core", dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte("x"), 0o644))
	time.Sleep(50 * time.Millisecond) // let the event arrive, not the timer
	require.NoError(t, w.Close())

	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int32(0), reloads.Load())
}
