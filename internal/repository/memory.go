package repository

import (
	"context"
	"encoding/json"
	"sync"

	"smart-bartender/internal/domain"
)

// MemoryStore is a Store backed by process memory. Used for local runs
// without Postgres and by the package tests. Documents are cloned on the
// way in and out so callers cannot alias the stored state.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: map[string][]byte{}}
}

func (s *MemoryStore) load(name string, out any) {
	s.mu.Lock()
	body, ok := s.docs[name]
	s.mu.Unlock()
	if !ok {
		return
	}
	_ = json.Unmarshal(body, out)
}

func (s *MemoryStore) save(name string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.docs[name] = body
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) LoadQueue(context.Context) ([]domain.QueueEntry, error) {
	var q []domain.QueueEntry
	s.load(docQueue, &q)
	return q, nil
}

func (s *MemoryStore) ReplaceQueue(_ context.Context, queue []domain.QueueEntry) error {
	return s.save(docQueue, queue)
}

func (s *MemoryStore) LoadArchive(context.Context) ([]domain.QueueEntry, error) {
	var a []domain.QueueEntry
	s.load(docArchive, &a)
	return a, nil
}

func (s *MemoryStore) ReplaceArchive(_ context.Context, archive []domain.QueueEntry) error {
	return s.save(docArchive, archive)
}

func (s *MemoryStore) LoadHistory(context.Context) ([]domain.HistoryOrder, error) {
	var h []domain.HistoryOrder
	s.load(docHistory, &h)
	return h, nil
}

func (s *MemoryStore) ReplaceHistory(_ context.Context, history []domain.HistoryOrder) error {
	return s.save(docHistory, history)
}

func (s *MemoryStore) LoadDrinks(context.Context) ([]domain.Drink, error) {
	var d []domain.Drink
	s.load(docDrinks, &d)
	return d, nil
}

func (s *MemoryStore) ReplaceDrinks(_ context.Context, drinks []domain.Drink) error {
	return s.save(docDrinks, drinks)
}

func (s *MemoryStore) LoadUsers(context.Context) (map[string]string, error) {
	u := map[string]string{}
	s.load(docUsers, &u)
	return u, nil
}

func (s *MemoryStore) ReplaceUsers(_ context.Context, users map[string]string) error {
	return s.save(docUsers, users)
}
