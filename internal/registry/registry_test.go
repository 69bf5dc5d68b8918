package registry

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/blevesearch/bleve/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offlinekit/fedsearch/internal/engine"
	ferrors "github.com/offlinekit/fedsearch/internal/errors"
)

func memModule(t *testing.T, reg *Registry, name string, docs []engine.Document) {
	t.Helper()
	idx, err := engine.OpenMem()
	require.NoError(t, err)
	require.NoError(t, idx.IndexBatch(docs))
	require.NoError(t, reg.LoadIndex(name, idx))
}

func diskIndex(t *testing.T, docs []engine.Document) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index")
	bidx, err := bleve.New(path, engine.NewIndexMapping())
	require.NoError(t, err)
	batch := bidx.NewBatch()
	for _, doc := range docs {
		require.NoError(t, batch.Index(doc.ID, doc))
	}
	require.NoError(t, bidx.Batch(batch))
	require.NoError(t, bidx.Close())
	return path
}

var coreDocs = []engine.Document{
	{ID: "shock-101", Title: "Treating shock", Summary: "Recognize and treat shock", Body: "keep warm"},
	{ID: "bleed-001", Title: "Severe bleeding", Summary: "Stop bleeding", Body: "pressure"},
}

func TestLoad_AndStats(t *testing.T) {
	reg := New()
	path := diskIndex(t, coreDocs)

	require.NoError(t, reg.Load("core", path))
	defer func() { _ = reg.Unload("core") }()

	assert.Equal(t, []string{"core"}, reg.Names())
	assert.Equal(t, map[string]uint64{"core": 2}, reg.Stats())
}

func TestLoad_AlreadyLoaded(t *testing.T) {
	reg := New()
	memModule(t, reg, "core", coreDocs)
	defer func() { _ = reg.Unload("core") }()

	err := reg.Load("core", diskIndex(t, nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ferrors.Code(ferrors.ErrCodeModuleAlreadyLoaded)))
}

func TestLoad_BadPath(t *testing.T) {
	reg := New()
	err := reg.Load("core", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ferrors.Code(ferrors.ErrCodeCorruptIndex)))
	assert.Equal(t, 0, reg.Len())
}

func TestUnload_NotFound(t *testing.T) {
	reg := New()
	err := reg.Unload("ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ferrors.Code(ferrors.ErrCodeModuleNotFound)))
}

func TestReload_NotFound(t *testing.T) {
	reg := New()
	err := reg.Reload("ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ferrors.Code(ferrors.ErrCodeModuleNotFound)))
}

func TestReload_RefreshesModule(t *testing.T) {
	reg := New()
	path := diskIndex(t, coreDocs)
	require.NoError(t, reg.Load("core", path))
	defer func() { _ = reg.Unload("core") }()

	gen := reg.Generation()
	require.NoError(t, reg.Reload("core"))
	assert.Greater(t, reg.Generation(), gen)
	assert.Equal(t, map[string]uint64{"core": 2}, reg.Stats())
}

func TestSnapshot_Filter(t *testing.T) {
	reg := New()
	memModule(t, reg, "core", coreDocs)
	memModule(t, reg, "medical", nil)
	defer func() {
		_ = reg.Unload("core")
		_ = reg.Unload("medical")
	}()

	snap := reg.Snapshot([]string{"medical", "ghost"})
	defer snap.Close()

	require.Equal(t, 1, snap.Len())
	assert.Equal(t, "medical", snap.Modules()[0].Name())
}

func TestSnapshot_EmptyFilterMeansNone(t *testing.T) {
	reg := New()
	memModule(t, reg, "core", coreDocs)
	defer func() { _ = reg.Unload("core") }()

	snap := reg.Snapshot([]string{})
	defer snap.Close()
	assert.Equal(t, 0, snap.Len())

	all := reg.Snapshot(nil)
	defer all.Close()
	assert.Equal(t, 1, all.Len())
}

func TestSnapshot_OrderIsDeterministic(t *testing.T) {
	reg := New()
	memModule(t, reg, "medical", nil)
	memModule(t, reg, "core", nil)
	memModule(t, reg, "advanced", nil)

	snap := reg.Snapshot(nil)
	defer snap.Close()

	names := make([]string, 0, snap.Len())
	for _, m := range snap.Modules() {
		names = append(names, m.Name())
	}
	assert.Equal(t, []string{"advanced", "core", "medical"}, names)
}

func TestSnapshot_SurvivesUnload(t *testing.T) {
	reg := New()
	memModule(t, reg, "core", coreDocs)

	snap := reg.Snapshot(nil)
	require.Equal(t, 1, snap.Len())
	mod := snap.Modules()[0]

	// Unload while the snapshot is live: the handle must keep working.
	require.NoError(t, reg.Unload("core"))
	assert.Equal(t, 0, reg.Len())

	count, err := mod.Index().DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	q, err := mod.Index().BuildQuery("bleeding")
	require.NoError(t, err)
	hits, err := mod.Index().Search(context.Background(), q, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	// Last reference released: the index closes for real.
	snap.Close()
	_, err = mod.Index().DocCount()
	assert.Error(t, err)
}

func TestSnapshot_CloseIdempotent(t *testing.T) {
	reg := New()
	memModule(t, reg, "core", coreDocs)
	defer func() { _ = reg.Unload("core") }()

	snap := reg.Snapshot(nil)
	snap.Close()
	snap.Close()
}

func TestGeneration_BumpsOnMutation(t *testing.T) {
	reg := New()
	g0 := reg.Generation()

	memModule(t, reg, "core", coreDocs)
	g1 := reg.Generation()
	assert.Greater(t, g1, g0)

	require.NoError(t, reg.Unload("core"))
	assert.Greater(t, reg.Generation(), g1)
}

func TestConcurrentStatsSearchLoad(t *testing.T) {
	reg := New()
	memModule(t, reg, "core", coreDocs)
	defer func() {
		for _, name := range reg.Names() {
			_ = reg.Unload(name)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				snap := reg.Snapshot(nil)
				for _, m := range snap.Modules() {
					q, err := m.Index().BuildQuery("shock")
					if err != nil {
						continue
					}
					_, _ = m.Index().Search(context.Background(), q, 5)
				}
				snap.Close()
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 50; j++ {
			stats := reg.Stats()
			for _, count := range stats {
				assert.LessOrEqual(t, count, uint64(2))
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 10; j++ {
			name := fmt.Sprintf("extra-%d", j)
			idx, err := engine.OpenMem()
			if err != nil {
				continue
			}
			if err := reg.LoadIndex(name, idx); err != nil {
				_ = idx.Close()
			}
		}
	}()

	wg.Wait()
}
