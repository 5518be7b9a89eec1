package cli

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llmutils"
	"github.com/effective-security/mcpchat/store"
	"github.com/spf13/cobra"
)

func newSessionsCmd(f *flags) *cobra.Command {
	var del string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List the stored chats, or delete one",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			if cfg.Store == nil {
				return errors.New("no store in the configuration")
			}
			st, err := store.New(cfg.Store)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if del != "" {
				if err := st.Reset(cmd.Context(), del); err != nil {
					return err
				}
				fmt.Fprintf(out, "Deleted: %s\n", del)
				return nil
			}

			list, err := st.ListChats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(out, llmutils.ToYAML(list))
			return nil
		},
	}
	cmd.Flags().StringVar(&del, "delete", "", "Delete the chat with this ID")
	return cmd
}
