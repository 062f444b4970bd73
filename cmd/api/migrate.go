package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Overland-East-Bay/trip-wallet-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/platform/config"
	"github.com/Overland-East-Bay/trip-wallet-api/internal/platform/logging"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := loadPostgresConfig()
				if err != nil {
					return err
				}
				log := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
				return postgres.Migrate(cmd.Context(), cfg.DatabaseURL, log)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "List migrations and when they were applied",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := loadPostgresConfig()
				if err != nil {
					return err
				}
				statuses, err := postgres.MigrationStatus(cmd.Context(), cfg.DatabaseURL)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tSOURCE")
				for _, s := range statuses {
					applied := "-"
					if !s.AppliedAt.IsZero() {
						applied = s.AppliedAt.UTC().Format(time.RFC3339)
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Source.Version, s.State, applied, s.Source.Path)
				}
				return tw.Flush()
			},
		},
	)
	return cmd
}

func loadPostgresConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if cfg.StorageBackend != config.StoragePostgres {
		return config.Config{}, fmt.Errorf("migrate requires STORAGE_BACKEND=%s", config.StoragePostgres)
	}
	return cfg, nil
}
