package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shinyyama/strata-community/internal/config"
	"github.com/shinyyama/strata-community/internal/db"
	"github.com/shinyyama/strata-community/internal/imagestore"
	"github.com/shinyyama/strata-community/internal/logging"
	appmw "github.com/shinyyama/strata-community/internal/middleware"
	"github.com/shinyyama/strata-community/internal/server"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if err := db.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	images, closeImages, err := imagestore.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeImages() }()

	admin, err := appmw.NewAdminAuth(ctx, cfg.AdminToken, cfg.FirebaseProjectID, cfg.AdminEmails, logger)
	if err != nil {
		return fmt.Errorf("init admin auth: %w", err)
	}

	srv := server.New(server.Deps{
		Config: cfg,
		DB:     gdb,
		Images: images,
		Admin:  admin,
		Logger: logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("server stopped", zap.String("env", cfg.AppEnv))
	return nil
}
