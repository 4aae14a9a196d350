// Package cli is the operator command line: schedule previews, dev seeding
// and admission session inspection.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/ErlanBelekov/campsite-scheduler/config"
	"github.com/ErlanBelekov/campsite-scheduler/internal/infrastructure/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "campctl",
		Short:         "Operator tooling for the campsite scheduler",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newScheduleCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newSeedCmd())
	root.AddCommand(newSessionCmd())

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openDB connects using DATABASE_URL and applies migrations.
func openDB(ctx context.Context) (*pgxpool.Pool, *config.DatabaseConfig, error) {
	cfg, err := config.LoadDatabase()
	if err != nil {
		return nil, nil, err
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pool, cfg, nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pool, _, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
