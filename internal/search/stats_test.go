package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offlinekit/fedsearch/internal/engine"
	"github.com/offlinekit/fedsearch/internal/registry"
)

func TestStatsReport(t *testing.T) {
	reg := registry.New()
	loadMemModule(t, reg, "medical", firstAidDocs("med"))
	loadMemModule(t, reg, "core", firstAidDocs("core"))

	report := NewStatsAggregator(reg).Report()

	require.Len(t, report.Modules, 2)
	assert.Equal(t, "core", report.Modules[0].Name)
	assert.Equal(t, "medical", report.Modules[1].Name)
	assert.Equal(t, uint64(2), report.Modules[0].NumDocs)
	assert.Equal(t, uint64(2*1024), report.Modules[0].EstimatedSizeBytes)
	assert.Equal(t, uint64(4), report.TotalDocs)
}

func TestStatsReport_EmptyRegistry(t *testing.T) {
	report := NewStatsAggregator(registry.New()).Report()
	assert.Empty(t, report.Modules)
	assert.Equal(t, uint64(0), report.TotalDocs)
}

func TestStatsReport_AfterUnload(t *testing.T) {
	reg := registry.New()
	loadMemModule(t, reg, "core", firstAidDocs("core"))
	loadMemModule(t, reg, "medical", firstAidDocs("med"))

	require.NoError(t, reg.Unload("medical"))

	report := NewStatsAggregator(reg).Report()
	require.Len(t, report.Modules, 1)
	assert.Equal(t, "core", report.Modules[0].Name)
	assert.Equal(t, uint64(2), report.TotalDocs)
}

func TestStats_UsesModuleIndex(t *testing.T) {
	reg := registry.New()
	idx, err := engine.OpenMem()
	require.NoError(t, err)
	require.NoError(t, reg.LoadIndex("empty", idx))

	report := NewStatsAggregator(reg).Report()
	require.Len(t, report.Modules, 1)
	assert.Equal(t, uint64(0), report.Modules[0].NumDocs)
}
