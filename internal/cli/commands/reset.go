package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewResetCommand creates the reset command.
func NewResetCommand() *cobra.Command {
	var (
		forceFlag bool
		seedFlag  bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all stored sentences and dependencies",
		Long: `Delete every stored sentence and dependency row. Requires --force.
With --seed the sample sentences are reinserted afterwards.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !forceFlag {
				return fmt.Errorf("refusing to delete all data without --force")
			}

			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := cmd.Context()
			if err := cmdCtx.Store.Reset(ctx); err != nil {
				return err
			}
			cmdCtx.Renderer.Textf("Database cleared\n")

			if seedFlag {
				if err := cmdCtx.Store.SeedSamples(ctx); err != nil {
					return err
				}
				cmdCtx.Renderer.Textf("Sample sentences inserted\n")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&forceFlag, "force", false, "Confirm the deletion")
	cmd.Flags().BoolVar(&seedFlag, "seed", false, "Reinsert the sample sentences after clearing")
	return cmd
}
