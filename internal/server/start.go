package server

import (
	"context"
	"fmt"

	"smart-bartender/internal/auth"
	"smart-bartender/internal/catalog"
	"smart-bartender/internal/common/httpx"
	"smart-bartender/internal/common/logger"
	"smart-bartender/internal/config"
	"smart-bartender/internal/events"
	"smart-bartender/internal/history"
	"smart-bartender/internal/queue"
	"smart-bartender/internal/recommend"
	"smart-bartender/internal/repository"
)

// Run wires the services over the given store and serves HTTP until ctx
// is canceled.
func Run(ctx context.Context, cfg *config.Config, store repository.Store, pub events.Publisher, log *logger.Logger) error {
	authSvc := auth.NewService(store, cfg.Auth.Secret)
	if err := authSvc.EnsureDefaultAdmin(ctx); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	catalogSvc := catalog.NewService(store)
	if err := catalogSvc.Ensure(ctx); err != nil {
		return fmt.Errorf("seed drinks: %w", err)
	}

	timing := queue.Timing{
		OverheadSec: cfg.Bartender.OrderOverheadSec,
		PerDrinkSec: cfg.Bartender.SecondsPerDrink,
		PrepSec:     cfg.Bartender.PrepSeconds,
	}
	queueSvc := queue.NewService(store, timing, pub, log)
	historySvc := history.NewService(store)
	recommendSvc := recommend.NewService(store)

	h := NewHandler(log, authSvc, queueSvc, historySvc, catalogSvc, recommendSvc, cfg.Bartender.WorkerKey)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	log.Info("http_listening", map[string]any{"addr": addr})
	return httpx.New(addr, Router(h)).Run(ctx)
}
