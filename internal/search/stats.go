package search

import (
	"log/slog"
	"sort"

	"github.com/offlinekit/fedsearch/internal/registry"
)

// estimatedBytesPerDoc is a rough per-document footprint used for the
// size estimate reported to the host; real segment sizes are not exposed
// by the engine.
const estimatedBytesPerDoc = 1024

// ModuleStats reports diagnostics for one loaded module.
type ModuleStats struct {
	Name               string `json:"name"`
	NumDocs            uint64 `json:"num_docs"`
	EstimatedSizeBytes uint64 `json:"estimated_size_bytes"`
}

// StatsReport aggregates per-module stats with a total document count.
type StatsReport struct {
	Modules   []ModuleStats `json:"modules"`
	TotalDocs uint64        `json:"total_docs"`
}

// StatsAggregator reports per-module and aggregate document counts. Pure
// read over a registry snapshot: safe to call concurrently with searches
// and registry mutations.
type StatsAggregator struct {
	reg *registry.Registry
}

// NewStatsAggregator creates a StatsAggregator over the given registry.
func NewStatsAggregator(reg *registry.Registry) *StatsAggregator {
	return &StatsAggregator{reg: reg}
}

// Report returns current per-module document counts, sorted by module name,
// plus the aggregate total.
func (s *StatsAggregator) Report() StatsReport {
	snap := s.reg.Snapshot(nil)
	defer snap.Close()

	report := StatsReport{Modules: make([]ModuleStats, 0, snap.Len())}
	for _, m := range snap.Modules() {
		count, err := m.Index().DocCount()
		if err != nil {
			slog.Warn("stats_doc_count_failed",
				slog.String("module", m.Name()),
				slog.String("error", err.Error()))
			continue
		}
		report.Modules = append(report.Modules, ModuleStats{
			Name:               m.Name(),
			NumDocs:            count,
			EstimatedSizeBytes: count * estimatedBytesPerDoc,
		})
		report.TotalDocs += count
	}

	sort.Slice(report.Modules, func(i, j int) bool {
		return report.Modules[i].Name < report.Modules[j].Name
	})
	return report
}
