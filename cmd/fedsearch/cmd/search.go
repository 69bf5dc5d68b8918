package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/offlinekit/fedsearch/internal/config"
	ferrors "github.com/offlinekit/fedsearch/internal/errors"
	"github.com/offlinekit/fedsearch/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit      int
	modules    []string // module filter, empty = all
	weights    []string // name=multiplier overrides
	jsonOutput bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search across all loaded index modules",
		Long: `Run one query against every loaded module in parallel and merge
the results into a single ranked, deduplicated list.

Examples:
  fedsearch search "severe bleeding"
  fedsearch search "water purification" --limit 5 --json
  fedsearch search "shock" --module medical --weight medical=2.0`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default 20)")
	cmd.Flags().StringSliceVarP(&opts.modules, "module", "m", nil, "Restrict search to these modules (repeatable)")
	cmd.Flags().StringSliceVarP(&opts.weights, "weight", "w", nil, "Override a module weight as name=multiplier (repeatable)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")

	return cmd
}

// parseWeights turns repeated name=multiplier flags into a weight map.
func parseWeights(pairs []string) (map[string]float64, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	weights := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, ferrors.Newf(ferrors.ErrCodeInvalidWeight, "weight must be name=multiplier, got %q", pair)
		}
		w, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, ferrors.Newf(ferrors.ErrCodeInvalidWeight, "weight for %q is not a number: %q", name, value)
		}
		weights[name] = w
	}
	return weights, nil
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cleanup, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	reg, unload, err := loadModules(cfg)
	if err != nil {
		return err
	}
	defer unload()

	coord := search.New(reg,
		search.WithParallelism(cfg.Search.Parallelism),
		search.WithCache(cfg.Search.CacheSize),
	)

	// Manifest weights apply first; --weight flags override per module.
	weights := cfg.Weights()
	overrides, err := parseWeights(opts.weights)
	if err != nil {
		return err
	}
	if weights == nil && overrides != nil {
		weights = make(map[string]float64, len(overrides))
	}
	for name, w := range overrides {
		weights[name] = w
	}

	var filter []string
	if len(opts.modules) > 0 {
		filter = opts.modules
	}

	limit := opts.limit
	if limit == 0 {
		limit = cfg.Search.DefaultLimit
	}
	if limit > cfg.Search.MaxLimit {
		limit = cfg.Search.MaxLimit
	}

	results, err := coord.Search(cmd.Context(), search.Request{
		Query:   query,
		Limit:   limit,
		Weights: weights,
		Modules: filter,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "No results.")
		return nil
	}
	for i, r := range results {
		fmt.Fprintf(out, "%2d. [%s] %s (%.3f)\n", i+1, r.Module, r.Title, r.Score)
		if r.Summary != "" {
			fmt.Fprintf(out, "    %s\n", r.Summary)
		}
	}
	return nil
}
