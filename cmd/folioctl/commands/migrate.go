package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/tendant/folio/pkg/folio/config"
	repopg "github.com/tendant/folio/pkg/folio/repo/postgres"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the content table",
		Long: `Apply pending schema migrations to the configured database.

Postgres uses the embedded SQL migrations. SQLite tables are created on open.
The in-memory store has no schema.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.ReadEnv()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			switch cfg.DB.Type {
			case "postgres":
				if err := repopg.RunMigrations(ctx, cfg.DB.DatabaseURL(), slog.Default()); err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
			case "sqlite":
				store, err := cfg.OpenStore(ctx, slog.Default())
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				store.Close()
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "Nothing to migrate (database type: %s)\n", cfg.DB.Type)
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Migrations completed successfully (database type: %s)\n", cfg.DB.Type)
			return nil
		},
	}
}
