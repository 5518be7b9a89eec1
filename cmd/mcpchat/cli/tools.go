package cli

import (
	"fmt"

	"github.com/effective-security/mcpchat/catalog"
	"github.com/effective-security/mcpchat/pkg/llmutils"
	"github.com/spf13/cobra"
)

func newToolsCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools offered by the MCP servers and the built-in provider",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			registry, closers, err := newRegistry(cfg, f.builtin)
			if err != nil {
				return err
			}
			defer closeAll(closers)

			descs := catalog.Aggregate(cmd.Context(), registry.Providers())
			fmt.Fprint(cmd.OutOrStdout(), llmutils.ToYAML(descs))
			return nil
		},
	}
}
