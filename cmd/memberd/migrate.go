package main

import (
	"context"

	membership "github.com/civicmesh/membership"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
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

	return membership.RunMigrations(context.Background(), db, logger)
}
