package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tableside/internal/config"
	httpapi "tableside/internal/controllers/http"
	"tableside/internal/infra"
	"tableside/internal/infra/rabbitmq"
	rediscache "tableside/internal/infra/redis"
	"tableside/internal/logger"
	"tableside/internal/repository/gormrepo"
	"tableside/internal/services"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("tableside", cfg.Log.Level, os.Stdout)

	if err := run(cfg, log); err != nil {
		log.Error(context.Background(), "server_stopped", "Server exited with error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, closeDB, err := infra.OpenDatabase(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("db: connect: %w", err)
	}
	defer closeDB()

	if err := infra.AutoMigrate(ctx, db); err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("db: handle: %w", err)
	}

	// Left as a nil interface when RabbitMQ is not configured.
	var publisher rabbitmq.PublisherInterface
	if cfg.RabbitMQ.URL != "" {
		p, err := rabbitmq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, log)
		if err != nil {
			log.Error(ctx, "rabbitmq_unavailable", "Order events disabled", err)
		} else {
			defer p.Close()
			publisher = p
		}
	}

	orderService := services.NewOrderService(gormrepo.NewOrderRepository(db, log), publisher, log)
	menuService := services.NewMenuService(gormrepo.NewMenuRepository(db), log)
	authService := services.NewAuthService(gormrepo.NewAdminRepository(db), cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, log)

	if cfg.Redis.Addr != "" {
		client := rediscache.NewClient(cfg.Redis)
		defer client.Close()

		cache := rediscache.NewCache(client, "tableside:")
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := cache.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Warn(ctx, "redis_unavailable", "Redis did not answer; caching and token revocation disabled", "error", err.Error())
		} else {
			orderService.SetCache(cache, cfg.Redis.OrdersTTL)
			menuService.SetCache(cache, cfg.Redis.MenuTTL)
			authService.SetDenylist(cache)
		}
	}

	handler := httpapi.NewHandler(orderService, menuService, authService, sqlDB.PingContext, log)

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(handler, log, cfg.Server.CORSOrigins)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.RequestTimeout,
		WriteTimeout:      cfg.Server.RequestTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "server_started", "Starting HTTP server", "port", cfg.Server.Port, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server run: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "server_stopping", "Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
