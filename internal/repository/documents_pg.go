package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"smart-bartender/internal/domain"
)

// PostgresStore keeps every document as a single jsonb row in the
// documents table. This preserves the whole-document read/replace model
// the queue logic is written against while leaving durability to Postgres.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

// EnsureSchema creates the documents table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS documents (
    name       text PRIMARY KEY,
    body       jsonb NOT NULL,
    updated_at timestamptz NOT NULL DEFAULT now()
)`)
	if err != nil {
		return fmt.Errorf("ensure documents table: %w", err)
	}
	return nil
}

// load reads a document into out. Missing row or malformed body leaves
// out untouched: a corrupt store degrades to empty instead of taking the
// whole service down.
func (s *PostgresStore) load(ctx context.Context, name string, out any) error {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE name=$1`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return nil
	}
	_ = json.Unmarshal(body, out)
	return nil
}

func (s *PostgresStore) save(ctx context.Context, name string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", name, err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO documents (name, body, updated_at) VALUES ($1, $2, now())
ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = now()
`, name, body)
	if err != nil {
		return fmt.Errorf("write document %s: %w", name, err)
	}
	return nil
}

func (s *PostgresStore) LoadQueue(ctx context.Context) ([]domain.QueueEntry, error) {
	var q []domain.QueueEntry
	_ = s.load(ctx, docQueue, &q)
	return q, nil
}

func (s *PostgresStore) ReplaceQueue(ctx context.Context, queue []domain.QueueEntry) error {
	return s.save(ctx, docQueue, queue)
}

func (s *PostgresStore) LoadArchive(ctx context.Context) ([]domain.QueueEntry, error) {
	var a []domain.QueueEntry
	_ = s.load(ctx, docArchive, &a)
	return a, nil
}

func (s *PostgresStore) ReplaceArchive(ctx context.Context, archive []domain.QueueEntry) error {
	return s.save(ctx, docArchive, archive)
}

func (s *PostgresStore) LoadHistory(ctx context.Context) ([]domain.HistoryOrder, error) {
	var h []domain.HistoryOrder
	_ = s.load(ctx, docHistory, &h)
	return h, nil
}

func (s *PostgresStore) ReplaceHistory(ctx context.Context, history []domain.HistoryOrder) error {
	return s.save(ctx, docHistory, history)
}

func (s *PostgresStore) LoadDrinks(ctx context.Context) ([]domain.Drink, error) {
	var d []domain.Drink
	_ = s.load(ctx, docDrinks, &d)
	return d, nil
}

func (s *PostgresStore) ReplaceDrinks(ctx context.Context, drinks []domain.Drink) error {
	return s.save(ctx, docDrinks, drinks)
}

func (s *PostgresStore) LoadUsers(ctx context.Context) (map[string]string, error) {
	u := map[string]string{}
	_ = s.load(ctx, docUsers, &u)
	return u, nil
}

func (s *PostgresStore) ReplaceUsers(ctx context.Context, users map[string]string) error {
	return s.save(ctx, docUsers, users)
}
