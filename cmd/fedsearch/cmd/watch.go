package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/offlinekit/fedsearch/internal/config"
	"github.com/offlinekit/fedsearch/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Load all modules and auto-reload them as their indices change",
		Long: `Load every manifest module, then watch each index directory and
reload the module when an external indexer commits new segments.
Runs until interrupted. Useful while iterating on index builds.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd)
		},
	}
}

func runWatch(cmd *cobra.Command) error {
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

	w, err := watcher.New(reg.Reload)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	for _, m := range cfg.Modules {
		if err := w.Watch(m.Name, m.Path); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %d modules. Ctrl-C to stop.\n", len(cfg.Modules))
	w.Run(ctx)
	return nil
}
