package search

import (
	"sort"
)

// Merge combines per-module ranked lists into one globally ranked,
// deduplicated, limit-bounded list.
//
// Ordering is deterministic regardless of fan-out completion order:
// effective score descending, then doc id ascending, then module name
// ascending. When the same doc id appears in several modules, only the
// first kept instance survives; sort order guarantees it carries the
// highest effective score.
func Merge(perModule [][]Result, limit int) []Result {
	total := 0
	for _, list := range perModule {
		total += len(list)
	}
	if total == 0 {
		return []Result{}
	}

	all := make([]Result, 0, total)
	for _, list := range perModule {
		all = append(all, list...)
	}

	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.DocID != b.DocID {
			return a.DocID < b.DocID
		}
		return a.Module < b.Module
	})

	// The limit is unbounded caller input; preallocate from what can
	// actually be returned.
	prealloc := limit
	if total < prealloc {
		prealloc = total
	}
	seen := make(map[string]struct{}, prealloc)
	merged := make([]Result, 0, prealloc)
	for _, r := range all {
		if _, dup := seen[r.DocID]; dup {
			continue
		}
		seen[r.DocID] = struct{}{}
		merged = append(merged, r)
		if len(merged) >= limit {
			break
		}
	}
	return merged
}
