package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"foodloop/internal/common/config"
	"foodloop/internal/common/logging"
	"foodloop/internal/foodloop/repository"
	"foodloop/internal/foodloop/seed"
	"foodloop/internal/foodloop/service"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := newRootCmd()
	cmd.SetContext(ctx)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		file   string
		dbPath string
	)
	cmd := &cobra.Command{
		Use:           "seed",
		Short:         "Load demo users, donations and messages into the FoodLoop database",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.DBPath = dbPath
			}
			return run(cmd.Context(), cfg, file, cmd)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML fixture (default: embedded demo data)")
	cmd.Flags().StringVar(&dbPath, "db", "", "Database path (overrides FOODLOOP_DB_PATH)")
	return cmd
}

func run(ctx context.Context, cfg *config.Config, file string, cmd *cobra.Command) error {
	log, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	fixture, err := seed.Default()
	if file != "" {
		fixture, err = seed.LoadFile(file)
	}
	if err != nil {
		return err
	}

	db, err := repository.OpenSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	repo := repository.New(db)
	if err := repo.Init(ctx); err != nil {
		return fmt.Errorf("init db: %w", err)
	}

	sessions := service.NewSessionManager(cfg.JWTSecret, time.Hour)
	seeder := seed.New(
		repo,
		service.NewAccountService(repo, sessions, log, service.WithBcryptCost(cfg.BcryptCost)),
		service.NewDonationService(repo, service.NewFileStorage(cfg.UploadsDir), log),
		service.NewMessageService(repo, log),
		log,
	)

	res, err := seeder.Apply(ctx, fixture)
	if err != nil {
		return err
	}
	cmd.Printf("users: %d, donations: %d, advanced: %d, messages: %d, skipped: %d\n",
		res.Users, res.Donations, res.Advanced, res.Messages, res.Skipped)
	return nil
}
