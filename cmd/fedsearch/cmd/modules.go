package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/offlinekit/fedsearch/internal/config"
)

func newModulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List the modules declared in the manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(cfg.Modules) == 0 {
				fmt.Fprintln(out, "No modules declared.")
				return nil
			}
			for _, m := range cfg.Modules {
				fmt.Fprintf(out, "%-16s weight=%-5g %s\n", m.Name, m.Weight, m.Path)
			}
			return nil
		},
	}
}
