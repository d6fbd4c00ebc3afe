package cli

import "github.com/spf13/cobra"

type lockOptions = renderOptions

func newLockCommand() *cobra.Command {
	opts := lockOptions{}
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Resolve requirements and produce lock outputs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd.Context(), cmd, opts)
		},
	}
	addRenderFlags(cmd, &opts)
	return cmd
}
