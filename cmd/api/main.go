package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"foodloop/internal/common/config"
	"foodloop/internal/common/logging"
	"foodloop/internal/common/middleware"
	"foodloop/internal/foodloop/handlers"
	"foodloop/internal/foodloop/repository"
	"foodloop/internal/foodloop/service"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// ============================================================
// FoodLoop API
// ============================================================

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := repository.OpenSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo := repository.New(db)
	if err := repo.Init(ctx); err != nil {
		return fmt.Errorf("init db: %w", err)
	}

	sessions := service.NewSessionManager(cfg.JWTSecret, cfg.TokenTTL)
	storage := service.NewFileStorage(cfg.UploadsDir)
	services := handlers.Services{
		Repo:      repo,
		Sessions:  sessions,
		Accounts:  service.NewAccountService(repo, sessions, log, service.WithBcryptCost(cfg.BcryptCost)),
		Donations: service.NewDonationService(repo, storage, log),
		Messages:  service.NewMessageService(repo, log),
		Chat:      service.NewChatService(nil, cfg.ChatHistory),
		Maps:      service.NewMapService(repo),
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeoutDuration(),
		WriteTimeout: cfg.WriteTimeoutDuration(),
		BodyLimit:    8 << 20,
		AppName:      "FoodLoop API",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger(log))
	app.Use(middleware.CORS(cfg.CORSOrigins))

	handlers.Register(app, services, log)

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting FoodLoop API",
		zap.String("addr", addr),
		zap.String("env", cfg.Environment),
		zap.String("db", cfg.DBPath),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})
	return g.Wait()
}
