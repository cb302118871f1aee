package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tableside/internal/config"
	"tableside/internal/infra"
	"tableside/internal/logger"
	"tableside/internal/repository/gormrepo"
	"tableside/internal/services"
)

func main() {
	var (
		configPath    = flag.String("config", "config.yaml", "path to the YAML config file")
		migrate       = flag.Bool("migrate", true, "create or update the schema")
		seedMenu      = flag.Bool("seed-menu", false, "insert the sample menu when the catalog is empty")
		adminUser     = flag.String("admin-user", "", "create or reset this admin user")
		adminPassword = flag.String("admin-password", "", "password for -admin-user")
	)
	flag.Parse()

	if *adminUser != "" && *adminPassword == "" {
		fmt.Fprintln(os.Stderr, "-admin-password is required with -admin-user")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New("tableside-setup", cfg.Log.Level, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, *migrate, *seedMenu, *adminUser, *adminPassword); err != nil {
		log.Error(ctx, "setup_failed", "Setup failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger, migrate, seed bool, adminUser, adminPassword string) error {
	db, closeDB, err := infra.OpenDatabase(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("db: connect: %w", err)
	}
	defer closeDB()

	if migrate {
		if err := infra.AutoMigrate(ctx, db); err != nil {
			return err
		}
		log.Info(ctx, "schema_migrated", "Schema is up to date")
	}

	if seed {
		n, err := services.NewMenuService(gormrepo.NewMenuRepository(db), log).Seed(ctx, sampleMenu())
		if err != nil {
			return fmt.Errorf("seed menu: %w", err)
		}
		log.Info(ctx, "menu_seeded", "Sample menu processed", "inserted", n)
	}

	if adminUser != "" {
		auth := services.NewAuthService(gormrepo.NewAdminRepository(db), cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, log)
		if _, err := auth.UpsertAdmin(ctx, adminUser, adminPassword); err != nil {
			return fmt.Errorf("admin user: %w", err)
		}
	}
	return nil
}
