package search

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	ferrors "github.com/offlinekit/fedsearch/internal/errors"
	"github.com/offlinekit/fedsearch/internal/registry"
)

// Coordinator fans one query out across the registered modules and merges
// the per-module results. Module-scoped failures (query parse, engine
// search) degrade that module to zero contributions and never fail the
// overall call.
type Coordinator struct {
	reg         *registry.Registry
	parallelism int
	cache       *resultCache
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithParallelism bounds the number of concurrent per-module searches.
func WithParallelism(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.parallelism = n
		}
	}
}

// WithCache enables an LRU cache of merged result sets with the given
// capacity. Entries are keyed by registry generation, so registry mutations
// invalidate them implicitly.
func WithCache(size int) Option {
	return func(c *Coordinator) {
		if size <= 0 {
			return
		}
		cache, err := newResultCache(size)
		if err != nil {
			return
		}
		c.cache = cache
	}
}

// New creates a Coordinator over the given registry.
func New(reg *registry.Registry, opts ...Option) *Coordinator {
	c := &Coordinator{
		reg:         reg,
		parallelism: DefaultParallelism,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// validate applies request defaults and rejects invalid requests before any
// module work starts.
func validate(req Request) (Request, error) {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return req, ferrors.Newf(ferrors.ErrCodeInvalidQuery, "query text is empty")
	}

	if req.Limit == 0 {
		req.Limit = DefaultLimit
	}
	if req.Limit < 0 {
		return req, ferrors.Newf(ferrors.ErrCodeInvalidLimit, "limit must be positive, got %d", req.Limit)
	}

	for name, w := range req.Weights {
		if w <= 0 {
			return req, ferrors.Newf(ferrors.ErrCodeInvalidWeight, "weight for module %q must be positive, got %g", name, w)
		}
	}

	return req, nil
}

// Search executes one federated query. An empty module set (nothing loaded,
// or a filter matching nothing) yields an empty result list, not an error.
func (c *Coordinator) Search(ctx context.Context, req Request) ([]Result, error) {
	req, err := validate(req)
	if err != nil {
		return nil, err
	}

	var cacheKey string
	if c.cache != nil {
		cacheKey = c.cache.key(c.reg.Generation(), req)
		if cached, ok := c.cache.get(cacheKey); ok {
			return cached, nil
		}
	}

	snap := c.reg.Snapshot(req.Modules)
	defer snap.Close()

	if snap.Len() == 0 {
		return []Result{}, nil
	}

	// Each worker fills its own slot; merge happens single-threaded after
	// the join, so no shared accumulator needs locking.
	perModule := make([][]Result, snap.Len())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallelism)

	for i, mod := range snap.Modules() {
		i, mod := i, mod
		g.Go(func() error {
			perModule[i] = c.searchModule(gctx, mod, req)
			return nil
		})
	}
	// Workers never return errors; module failures are isolated.
	_ = g.Wait()

	merged := Merge(perModule, req.Limit)

	if c.cache != nil {
		c.cache.add(cacheKey, merged)
	}
	return merged, nil
}

// searchModule runs the query against one module, applying its weight.
// Parse and search failures are logged and contribute zero results; an
// over-fetch equal to the global limit is enough since the merge keeps only
// the top limit overall.
func (c *Coordinator) searchModule(ctx context.Context, mod *registry.Module, req Request) []Result {
	q, err := mod.Index().BuildQuery(req.Query)
	if err != nil {
		slog.Debug("module_query_parse_failed",
			slog.String("module", mod.Name()),
			slog.String("query", req.Query),
			slog.String("error", err.Error()))
		return nil
	}

	hits, err := mod.Index().Search(ctx, q, req.Limit)
	if err != nil {
		slog.Warn("module_search_failed",
			slog.String("module", mod.Name()),
			slog.String("error", err.Error()))
		return nil
	}

	weight := req.weightFor(mod.Name())
	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, Result{
			DocID:    h.DocID,
			Title:    h.Title,
			Summary:  h.Summary,
			Score:    h.Score * weight,
			RawScore: h.Score,
			Module:   mod.Name(),
		})
	}
	return results
}
