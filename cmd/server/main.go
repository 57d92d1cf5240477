package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/pureclean/auth"
	"github.com/diewo77/pureclean/internal/config"
	"github.com/diewo77/pureclean/internal/db"
	"github.com/diewo77/pureclean/internal/logger"
	"github.com/diewo77/pureclean/internal/services"
)

const shutdownTimeout = 10 * time.Second

// env is what every command needs before doing its work.
type env struct {
	cfg *config.Config
	log *zap.Logger
	db  *gorm.DB
}

func main() {
	app := &cli.App{
		Name:  "pureclean",
		Usage: "dry-cleaning shop backend",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: withEnv(serve),
			},
			{
				Name:   "migrate",
				Usage:  "create or update the database schema and exit",
				Action: withEnv(migrate),
			},
			{
				Name:   "seed",
				Usage:  "insert default categories and the admin account",
				Action: withEnv(seed),
			},
			{
				Name:   "migrate-passwords",
				Usage:  "rewrap legacy password hashes in bcrypt",
				Action: withEnv(migratePasswords),
			},
			{
				Name:   "link-clients",
				Usage:  "link accounts created before the user/client link to their client",
				Action: withEnv(linkClients),
			},
		},
		DefaultCommand: "serve",
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withEnv loads configuration, the logger and the database, then runs fn.
func withEnv(fn func(*cli.Context, *env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		// Load environment variables from .env file
		_ = godotenv.Load()
		cfg := config.Load()

		log, err := logger.New(cfg.App.Dev)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer func() { _ = log.Sync() }()

		conn, err := db.Open(cfg.Database, log)
		if err != nil {
			return err
		}
		defer func() {
			if sqlDB, err := conn.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}()
		return fn(c, &env{cfg: cfg, log: log, db: conn})
	}
}

func migrate(_ *cli.Context, e *env) error {
	if err := db.Migrate(e.db); err != nil {
		return err
	}
	e.log.Info("migrations completed")
	return nil
}

func seed(_ *cli.Context, e *env) error {
	if err := db.Seed(e.db, seedOptions(e.cfg)); err != nil {
		return err
	}
	e.log.Info("seeding completed")
	return nil
}

func seedOptions(cfg *config.Config) db.SeedOptions {
	return db.SeedOptions{AdminEmail: cfg.App.AdminEmail, AdminPassword: cfg.App.AdminPassword}
}

func migratePasswords(c *cli.Context, e *env) error {
	n, err := services.NewUserService(e.db).MigrateLegacyPasswords(c.Context)
	if err != nil {
		return err
	}
	e.log.Info("legacy passwords rewrapped", zap.Int("users", n))
	return nil
}

func linkClients(c *cli.Context, e *env) error {
	n, err := services.NewClientService(e.db).LinkLegacyUsers(c.Context)
	if err != nil {
		return err
	}
	e.log.Info("accounts linked to clients", zap.Int("users", n))
	return nil
}

func serve(_ *cli.Context, e *env) error {
	cfg := e.cfg
	if cfg.App.Migrations {
		if err := migrate(nil, e); err != nil {
			return err
		}
	}
	if err := seed(nil, e); err != nil {
		return err
	}
	if cfg.App.SessionSecret == config.DefaultSessionSecret && !cfg.App.Dev {
		e.log.Warn("SESSION_SECRET is the development default")
	}
	auth.SetSecret(cfg.App.SessionSecret)

	routerCfg := NewRouterConfig(e.db, cfg.App, e.log)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      NewApp(e.db, routerCfg, e.log),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		e.log.Info("server starting", zap.String("port", cfg.Server.Port), zap.Bool("dev", cfg.App.Dev))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-quit:
		e.log.Info("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	e.log.Info("server stopped gracefully")
	return nil
}
