package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	membership "github.com/civicmesh/membership"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the membership HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := membership.LoadConfig(cfgFile)
	if err != nil {
		return err
	}
	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	logger := membership.NewLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := membership.OpenDB(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := membership.RunMigrations(ctx, db, logger); err != nil {
		return err
	}

	repo := membership.NewRepositoryManager(db)
	repo.MustValidate()

	metrics := membership.NewMetrics()
	sink := membership.NewLoggingActivitySink(logger)

	var mailer membership.Mailer = membership.NoopMailer{}
	if cfg.Mail.Enabled {
		mailer, err = membership.NewSMTPMailer(cfg.Mail.Host, cfg.Mail.Username, cfg.Mail.Password, cfg.Mail.From, cfg.Mail.SkipVerify)
		if err != nil {
			return err
		}
	}

	tokens := membership.NewTokenService([]byte(cfg.Auth.SigningKey), cfg.Auth.TokenTTL, cfg.Auth.Issuer, logger)

	lifecycle := membership.NewLifecycle(repo,
		membership.WithLifecycleMailer(mailer),
		membership.WithLifecycleLogger(logger),
		membership.WithLifecycleActivitySink(sink),
		membership.WithLifecycleMetrics(metrics),
		membership.WithPendingTTL(cfg.Registration.PendingTTL),
		membership.WithClientURL(cfg.Registration.ClientURL),
	)

	auth := membership.NewAuthenticator(repo, tokens,
		membership.WithAuthLogger(logger),
		membership.WithAuthActivitySink(sink),
		membership.WithAuthMetrics(metrics),
	)

	admin := membership.NewAdminService(repo,
		membership.WithAdminLogger(logger),
		membership.WithAdminActivitySink(sink),
		membership.WithAdminMetrics(metrics),
	)

	if cfg.Bootstrap.Email != "" && cfg.Bootstrap.Password != "" {
		if _, err := membership.EnsureSuperAdmin(ctx, repo, membership.BootstrapInput{
			Email:     cfg.Bootstrap.Email,
			Password:  cfg.Bootstrap.Password,
			FirstName: cfg.Bootstrap.FirstName,
			LastName:  cfg.Bootstrap.LastName,
		}, membership.WithBootstrapLogger(logger), membership.WithBootstrapActivitySink(sink)); err != nil {
			return err
		}
	}

	srv := membership.NewServer(cfg, auth, lifecycle, admin,
		membership.WithServerLogger(logger),
		membership.WithServerMetrics(metrics),
	)

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if purged, err := lifecycle.PurgeExpiredPending(ctx); err != nil {
					logger.Warn("pending registration sweep failed: %v", err)
				} else if purged > 0 {
					logger.Info("purged %d expired pending registrations", purged)
				}
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen()
	}()

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logger.Info("shutting down")
		return srv.Shutdown()
	}
}
