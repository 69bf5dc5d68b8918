// Package cmd provides the CLI commands for fedsearch.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/offlinekit/fedsearch/internal/config"
	ferrors "github.com/offlinekit/fedsearch/internal/errors"
	"github.com/offlinekit/fedsearch/internal/logging"
	"github.com/offlinekit/fedsearch/internal/registry"
	"github.com/offlinekit/fedsearch/pkg/version"
)

var (
	configPath string
	debugMode  bool
)

// NewRootCmd creates the root command for the fedsearch CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fedsearch",
		Short: "Federated search across offline full-text index modules",
		Long: `fedsearch coordinates search across independently built full-text
index modules, merging per-module results into a single ranked,
deduplicated answer.

Modules are declared in fedsearch.yaml; each is an index directory
built by an external indexer.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("fedsearch version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigName, "Path to module manifest")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newModulesCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ferrors.FormatForCLI(err))
		return err
	}
	return nil
}

// setupLogging configures slog from the manifest, honoring --debug.
// Returns a cleanup function.
func setupLogging(cfg config.Config) (func(), error) {
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.WriteToStderr = false
	if cfg.Logging.File != "" {
		logCfg.FilePath = cfg.Logging.File
	}
	if debugMode {
		logCfg.Level = "debug"
		logCfg.WriteToStderr = true
	}
	return logging.SetupDefault(logCfg)
}

// loadModules loads every manifest module into a fresh registry. The
// cleanup function unloads everything.
func loadModules(cfg config.Config) (*registry.Registry, func(), error) {
	reg := registry.New()
	cleanup := func() {
		for _, name := range reg.Names() {
			_ = reg.Unload(name)
		}
	}

	for _, m := range cfg.Modules {
		if err := reg.Load(m.Name, m.Path); err != nil {
			cleanup()
			return nil, nil, err
		}
	}
	return reg, cleanup, nil
}
