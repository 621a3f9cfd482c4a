package main

import (
	"github.com/spf13/cobra"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Seed built-in roles, permissions and the admin account",
	Long: `Create the USER and ADMIN roles, every built-in permission and, when
ADMIN_EMAIL is set, the admin account. Existing records are left in place.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		app, err := newApplication(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer app.Close(ctx)

		if err := app.runBootstrap(ctx, cfg.Admin); err != nil {
			return err
		}
		log.Info().Msg("bootstrap complete")
		return nil
	},
}
