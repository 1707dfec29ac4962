package repository

import (
	"context"

	"smart-bartender/internal/domain"
)

// Store persists the application's documents whole: each document is read
// and replaced in full, never patched. Reads fail open (a missing or
// unreadable document loads as empty); writes fail loud.
type Store interface {
	LoadQueue(ctx context.Context) ([]domain.QueueEntry, error)
	ReplaceQueue(ctx context.Context, queue []domain.QueueEntry) error

	LoadArchive(ctx context.Context) ([]domain.QueueEntry, error)
	ReplaceArchive(ctx context.Context, archive []domain.QueueEntry) error

	LoadHistory(ctx context.Context) ([]domain.HistoryOrder, error)
	ReplaceHistory(ctx context.Context, history []domain.HistoryOrder) error

	LoadDrinks(ctx context.Context) ([]domain.Drink, error)
	ReplaceDrinks(ctx context.Context, drinks []domain.Drink) error

	LoadUsers(ctx context.Context) (map[string]string, error)
	ReplaceUsers(ctx context.Context, users map[string]string) error
}

// Document names shared by every Store implementation.
const (
	docQueue   = "esp_queue"
	docArchive = "esp_done"
	docHistory = "orders"
	docDrinks  = "drinks"
	docUsers   = "users"
)
