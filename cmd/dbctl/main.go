package main

import (
	"fmt"
	"os"

	"travelapp/internal/config"
	"travelapp/internal/database"
	"travelapp/internal/pkg/logger"
	"travelapp/internal/repository"
	"travelapp/internal/seed"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dsn string

	rootCmd := &cobra.Command{
		Use:           "dbctl",
		Short:         "Database maintenance for the travel API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "database DSN (overrides TRAVEL_DATABASE_DSN)")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the schema",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(dsn, func(db *gorm.DB, log *zap.Logger) error {
					if err := repository.AutoMigrate(db); err != nil {
						return err
					}
					log.Info("schema migrated")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Replace all data with demo users, listings, bookings and reviews",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(dsn, func(db *gorm.DB, log *zap.Logger) error {
					if err := repository.AutoMigrate(db); err != nil {
						return err
					}
					_, err := seed.Run(cmd.Context(), db, log)
					return err
				})
			},
		},
	)
	return rootCmd
}

func withDB(dsn string, fn func(*gorm.DB, *zap.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if dsn != "" {
		cfg.Database.DSN = dsn
	}

	log, err := logger.New(logger.Options{Level: cfg.Log.Level, Environment: cfg.App.Env, ServiceName: "dbctl"})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := database.Connect(cfg.Database.DSN, database.Options{LogLevel: cfg.Database.LogLevel}, log)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	return fn(db, log)
}
