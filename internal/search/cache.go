package search

import (
	"fmt"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// resultCache caches merged result sets. Keys embed the registry generation,
// so any load, unload, or reload strands prior entries rather than serving
// stale results.
type resultCache struct {
	lru *lru.Cache[string, []Result]
}

func newResultCache(size int) (*resultCache, error) {
	c, err := lru.New[string, []Result](size)
	if err != nil {
		return nil, err
	}
	return &resultCache{lru: c}, nil
}

// key builds a canonical cache key for a request at a registry generation.
// Weights and module filters are order-insensitive maps/sets, so both are
// sorted before keying.
func (c *resultCache) key(generation uint64, req Request) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "g%d|q%s|l%d", generation, req.Query, req.Limit)

	if len(req.Weights) > 0 {
		names := make([]string, 0, len(req.Weights))
		for name := range req.Weights {
			names = append(names, name)
		}
		sort.Strings(names)
		sb.WriteString("|w")
		for _, name := range names {
			fmt.Fprintf(&sb, "%s=%g,", name, req.Weights[name])
		}
	}

	if req.Modules != nil {
		filter := append([]string(nil), req.Modules...)
		sort.Strings(filter)
		sb.WriteString("|m")
		sb.WriteString(strings.Join(filter, ","))
	}

	return sb.String()
}

// get returns a copy of the cached result set, if present. Copying keeps
// caller mutations from poisoning the cache.
func (c *resultCache) get(key string) ([]Result, bool) {
	cached, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	out := make([]Result, len(cached))
	copy(out, cached)
	return out, true
}

func (c *resultCache) add(key string, results []Result) {
	stored := make([]Result, len(results))
	copy(stored, results)
	c.lru.Add(key, stored)
}
