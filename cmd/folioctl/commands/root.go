// Package commands implements the folioctl maintenance commands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/tendant/folio/pkg/folio"
	"github.com/tendant/folio/pkg/folio/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
)

// NewRootCmd builds the folioctl command tree.
func NewRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "folioctl",
		Short: "Maintain the folio content store",
		Long: `folioctl manages the portfolio content table outside the web server.

It reads the same environment variables as the server (FOLIO_DB_TYPE,
DATABASE_URL, FOLIO_SQLITE_PATH, ...). Run "folioctl env" to list them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("%s (commit: %s)", Version, Commit),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress to stderr")

	root.AddCommand(
		newMigrateCmd(),
		newSeedCmd(),
		newDumpCmd(),
		newSetCmd(),
		newTokenCmd(),
		newEnvCmd(),
	)
	root.CompletionOptions.DisableDefaultCmd = true
	return root
}

// openService opens the configured store and wraps it in a service without a
// blob store. The returned func closes the store.
func openService(ctx context.Context) (folio.Service, func(), error) {
	cfg, err := config.ReadEnv()
	if err != nil {
		return nil, nil, err
	}

	store, err := cfg.OpenStore(ctx, slog.Default())
	if err != nil {
		return nil, nil, err
	}

	svc, err := folio.New(
		folio.WithRepository(store.Repository),
		folio.WithLogger(slog.Default()),
	)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return svc, store.Close, nil
}

func newEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "List the environment variables folio reads",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.Usage())
		},
	}
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return readAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
