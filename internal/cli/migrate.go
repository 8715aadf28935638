package cli

import (
	"github.com/UnknownOlympus/locator/internal/config"
	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the PostgreSQL cache table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := config.MustLoad()
			logger := setupLogger(cfg.Env, cmd.ErrOrStderr())

			application := &app{cfg: cfg, log: logger}
			defer application.Close()

			repo, err := application.openRepository(ctx)
			if err != nil {
				return err
			}
			if err = repo.EnsureSchema(ctx); err != nil {
				return err
			}

			logger.InfoContext(ctx, "Database schema is up to date")
			cmd.Println("resolved_addresses table is ready")

			return nil
		},
	}
}
