// Package main provides the deptdocs admin CLI: migrations and the reminder scheduler.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"deptdocs/internal/config"
	natsnotify "deptdocs/internal/notify/nats"
	"deptdocs/internal/repository/postgres"
	serviceDocsys "deptdocs/internal/service/docsystem"
)

const (
	Version = "0.1.0"
	appName = "deptdocs-admin"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "deptdocs-admin",
		Short:         "Administrative tasks for the department document service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(migrateCmd(), sendRemindersCmd(), remindersCmd(), &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	})
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, closeLog, err := setup("migrate")
			if err != nil {
				return err
			}
			defer closeLog()
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}
			return postgres.RunMigrations(cfg.DatabaseURL, cfg.TablePrefix, logger)
		},
	})

	var steps int
	var yes bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Revert migrations (all of them unless --steps is set)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to revert migrations without --yes")
			}
			cfg, logger, closeLog, err := setup("migrate")
			if err != nil {
				return err
			}
			defer closeLog()
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}
			return postgres.RollbackMigrations(cfg.DatabaseURL, cfg.TablePrefix, steps, logger)
		},
	}
	down.Flags().IntVar(&steps, "steps", 0, "Number of migrations to revert (0 = all)")
	down.Flags().BoolVar(&yes, "yes", false, "Confirm the rollback")
	cmd.AddCommand(down)
	return cmd
}

func sendRemindersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send-reminders",
		Short: "Ask the notification service to send meeting reminders once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, closeLog, err := setup("reminders")
			if err != nil {
				return err
			}
			defer closeLog()

			notifier, conn, err := natsnotify.Connect(cfg.NATSURL, cfg.ReminderSubject, logger)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := notifier.SendReminders(cmd.Context()); err != nil {
				return err
			}
			logger.Info("reminders requested")
			return nil
		},
	}
}

func remindersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Reminder scheduling",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the reminder scheduler until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, closeLog, err := setup("scheduler")
			if err != nil {
				return err
			}
			defer closeLog()

			notifier, conn, err := natsnotify.Connect(cfg.NATSURL, cfg.ReminderSubject, logger)
			if err != nil {
				return err
			}
			defer conn.Drain()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			scheduler := serviceDocsys.NewReminderScheduler(notifier, cfg.BusinessHours, cfg.ReminderInterval, cfg.ReminderRetry, logger)
			if err := scheduler.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	})
	return cmd
}

// setup loads configuration and the logger shared by every command
func setup(name string) (*config.Config, *slog.Logger, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	logger, closer, err := config.NewLogger(cfg, name)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("set up logging: %w", err)
	}
	slog.SetDefault(logger)
	return cfg, logger, func() { closer.Close() }, nil
}
