package main

import (
	"context"
	"fmt"

	membership "github.com/civicmesh/membership"
	"github.com/spf13/cobra"
)

var bootstrapInput membership.BootstrapInput

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Create the initial super admin account if none exists",
	RunE:  runBootstrap,
}

func init() {
	bootstrapCmd.Flags().StringVar(&bootstrapInput.Email, "email", "", "super admin email")
	bootstrapCmd.Flags().StringVar(&bootstrapInput.Password, "password", "", "super admin password")
	bootstrapCmd.Flags().StringVar(&bootstrapInput.FirstName, "first-name", "System", "first name")
	bootstrapCmd.Flags().StringVar(&bootstrapInput.LastName, "last-name", "Administrator", "last name")
	rootCmd.AddCommand(bootstrapCmd)
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	cfg, err := membership.LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	if bootstrapInput.Email == "" {
		bootstrapInput.Email = cfg.Bootstrap.Email
	}
	if bootstrapInput.Password == "" {
		bootstrapInput.Password = cfg.Bootstrap.Password
	}

	logger := membership.NewLogger()

	ctx := context.Background()

	db, err := membership.OpenDB(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := membership.RunMigrations(ctx, db, logger); err != nil {
		return err
	}

	repo := membership.NewRepositoryManager(db)

	created, err := membership.EnsureSuperAdmin(ctx, repo, bootstrapInput,
		membership.WithBootstrapLogger(logger))
	if err != nil {
		return err
	}

	fmt.Printf("super admin: %s (%s)\n", created.Email, created.MembershipNumber)
	return nil
}
