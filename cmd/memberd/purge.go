package main

import (
	"context"
	"fmt"

	membership "github.com/civicmesh/membership"
	"github.com/spf13/cobra"
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete pending registrations past the verification window",
	RunE:  runPurge,
}

func init() {
	rootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, args []string) error {
	cfg, err := membership.LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	logger := membership.NewLogger()

	db, err := membership.OpenDB(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := membership.NewRepositoryManager(db)
	lifecycle := membership.NewLifecycle(repo,
		membership.WithLifecycleLogger(logger),
		membership.WithPendingTTL(cfg.Registration.PendingTTL),
	)

	purged, err := lifecycle.PurgeExpiredPending(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("purged %d expired pending registrations\n", purged)
	return nil
}
