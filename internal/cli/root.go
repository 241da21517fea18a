package cli

import "github.com/spf13/cobra"

// NewRootCmd builds the pagectl root command tree.
func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pagectl",
		Short:         "Offline tools for page composer export documents",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newTemplatesCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newMergeCmd())
	cmd.AddCommand(newRecoverCmd())

	return cmd
}
