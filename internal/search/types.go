// Package search coordinates one query across the registered index modules:
// parallel weighted fan-out, per-module failure isolation, and a merged,
// deduplicated, globally ranked result list.
package search

// DefaultLimit is the result limit applied when a request leaves it unset.
const DefaultLimit = 20

// DefaultParallelism bounds concurrent per-module searches. Four workers
// overlap I/O-bound module searches without saturating mobile hardware.
const DefaultParallelism = 4

// Request configures one federated search call.
type Request struct {
	// Query is the query text, parsed independently by each module.
	Query string

	// Limit is the maximum number of merged results (default: 20).
	// Zero means default; negative is invalid.
	Limit int

	// Weights maps module name to a positive score multiplier.
	// Unmapped modules use weight 1.0.
	Weights map[string]float64

	// Modules restricts the search to the named modules when non-nil.
	// Names that are not registered contribute nothing.
	Modules []string
}

// Result is one merged search hit. The JSON shape is the host boundary
// contract: {doc_id, title, summary, score, module}.
type Result struct {
	// DocID is the document identifier, unique within its module.
	DocID string `json:"doc_id"`

	// Title and Summary are the stored display fields.
	Title   string `json:"title"`
	Summary string `json:"summary"`

	// Score is the effective score: raw engine score times module weight.
	Score float64 `json:"score"`

	// Module is the name of the module that produced the hit.
	Module string `json:"module"`

	// RawScore is the engine score before weighting. Diagnostic only,
	// not part of the boundary payload.
	RawScore float64 `json:"-"`
}

// weightFor returns the configured weight for a module, defaulting to 1.0.
func (r Request) weightFor(module string) float64 {
	if w, ok := r.Weights[module]; ok {
		return w
	}
	return 1.0
}
