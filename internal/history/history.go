package history

import (
	"context"
	"fmt"

	"smart-bartender/internal/domain"
	"smart-bartender/internal/repository"
)

// Service reads the append-only order history log. Rows are written by
// checkout only; this side never mutates.
type Service struct {
	store repository.Store
}

func NewService(store repository.Store) *Service { return &Service{store: store} }

// ForUser returns the caller's history rows in append order.
func (s *Service) ForUser(ctx context.Context, username string) ([]domain.HistoryOrder, error) {
	all, err := s.store.LoadHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	mine := []domain.HistoryOrder{}
	for _, o := range all {
		if o.Username == username {
			mine = append(mine, o)
		}
	}
	return mine, nil
}
