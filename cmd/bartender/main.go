package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"smart-bartender/internal/common/logger"
	"smart-bartender/internal/config"
	"smart-bartender/internal/connections/database"
	"smart-bartender/internal/connections/rabbitmq"
	"smart-bartender/internal/events"
	"smart-bartender/internal/notify"
	"smart-bartender/internal/repository"
	"smart-bartender/internal/server"
)

func main() {
	mode := flag.String("mode", "api-server", "api-server | notification-subscriber")
	cfgPath := flag.String("config", "config.yaml", "path to YAML config")
	flag.Parse()

	lg := logger.New("bootstrap")

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		lg.Error("config_load_failed", err, map[string]any{"path": *cfgPath})
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *mode {
	case "api-server":
		if err := runAPIServer(ctx, cfg); err != nil {
			lg.Error("fatal", err, nil)
			os.Exit(1)
		}
	case "notification-subscriber":
		if err := runSubscriber(ctx, cfg); err != nil {
			lg.Error("fatal", err, nil)
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "--mode must be api-server or notification-subscriber")
		os.Exit(2)
	}
}

func runAPIServer(ctx context.Context, cfg *config.Config) error {
	lg := logger.New("api-server")

	var store repository.Store
	switch cfg.Bartender.Storage {
	case "memory":
		store = repository.NewMemoryStore()
		lg.Info("storage_memory", nil)
	default:
		db, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer db.Close()
		pg := repository.NewPostgresStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		store = pg
		lg.Info("storage_postgres", map[string]any{
			"host": cfg.Database.Host, "port": cfg.Database.Port, "database": cfg.Database.Database,
		})
	}

	var pub events.Publisher = events.Noop{}
	if cfg.RabbitMQ.Enabled {
		rmq, err := rabbitmq.Dial(cfg.RabbitMQ)
		if err != nil {
			return fmt.Errorf("rabbitmq connect: %w", err)
		}
		defer rmq.Close()
		if err := rmq.Ping(); err != nil {
			return fmt.Errorf("rabbitmq ping: %w", err)
		}
		pub, err = events.NewAMQPPublisher(rmq)
		if err != nil {
			return fmt.Errorf("declare exchange: %w", err)
		}
		lg.Info("rabbitmq_connected", map[string]any{"host": cfg.RabbitMQ.Host, "port": cfg.RabbitMQ.Port})
	}

	lg.Info("service_started", map[string]any{"service": "api-server", "port": cfg.HTTP.Port})
	return server.Run(ctx, cfg, store, pub, logger.New("api-server"))
}

func runSubscriber(ctx context.Context, cfg *config.Config) error {
	lg := logger.New("notification-subscriber")

	rmq, err := rabbitmq.Dial(cfg.RabbitMQ)
	if err != nil {
		return fmt.Errorf("rabbitmq connect: %w", err)
	}
	defer rmq.Close()
	if err := rmq.Ping(); err != nil {
		return fmt.Errorf("rabbitmq ping: %w", err)
	}

	lg.Info("service_started", map[string]any{"service": "notification-subscriber"})
	return notify.Run(ctx, rmq, lg)
}
