package queue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"smart-bartender/internal/common/logger"
	"smart-bartender/internal/domain"
	"smart-bartender/internal/events"
	"smart-bartender/internal/repository"
)

var (
	// ErrNotFound: the id is not among active entries. Expected outcome
	// for a completed (or never-existed) order, so callers treat it as a
	// structured result, not a failure.
	ErrNotFound = errors.New("order not found")

	// ErrNoValidItems: validation left nothing usable in the cart.
	ErrNoValidItems = errors.New("no valid items")
)

// TooEarlyError rejects a completion report that arrives faster than the
// hardware can physically pour. Carries the seconds the worker must still
// wait. No state is mutated.
type TooEarlyError struct {
	WaitSeconds int
}

func (e *TooEarlyError) Error() string {
	return fmt.Sprintf("too early to complete, wait %ds", e.WaitSeconds)
}

// minCompleteFloorSec is the absolute minimum a unit must be in progress
// before a completion report is believed, regardless of configuration.
const minCompleteFloorSec = 5

var knownMoods = map[string]bool{
	"chill": true, "energized": true, "sweet": true, "adventurous": true,
}

// Service owns the single-slot dispensing queue: intake splitting, the
// worker claim/complete protocol, and position/ETA reads. Every
// read-modify-write of the store happens under one coarse mutex, which
// restores the effectively-serialized-writer assumption the
// whole-document store depends on.
type Service struct {
	store  repository.Store
	timing Timing
	events events.Publisher
	log    *logger.Logger

	mu    sync.Mutex
	now   func() time.Time
	newID func() string
}

func NewService(store repository.Store, timing Timing, pub events.Publisher, log *logger.Logger) *Service {
	if pub == nil {
		pub = events.Noop{}
	}
	return &Service{
		store:  store,
		timing: timing,
		events: pub,
		log:    log,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

func (s *Service) Timing() Timing { return s.timing }

// Checkout validates the cart, appends one history row per original cart
// line, and enqueues one single-unit entry per physical drink unit.
// Splitting per unit is what makes position and ETA describe individual
// pours on the one-slot machine. Nothing is written when validation
// leaves zero usable lines.
func (s *Service) Checkout(ctx context.Context, username string, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	lines := normalizeLines(req.Items)
	if len(lines) == 0 {
		return domain.CheckoutResponse{}, ErrNoValidItems
	}
	mood := normalizeMood(req.Mood)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	ts := domain.FormatTime(now)

	history, err := s.store.LoadHistory(ctx)
	if err != nil {
		return domain.CheckoutResponse{}, fmt.Errorf("load history: %w", err)
	}
	for _, ln := range lines {
		history = append(history, domain.HistoryOrder{
			Username:  username,
			DrinkID:   ln.DrinkID,
			DrinkName: ln.DrinkName,
			Quantity:  ln.Quantity,
			Calories:  ln.Calories,
			Timestamp: ts,
			Mood:      mood,
		})
	}
	if err := s.store.ReplaceHistory(ctx, history); err != nil {
		return domain.CheckoutResponse{}, fmt.Errorf("save history: %w", err)
	}

	q, err := s.store.LoadQueue(ctx)
	if err != nil {
		return domain.CheckoutResponse{}, fmt.Errorf("load queue: %w", err)
	}

	var ids []string
	for _, ln := range lines {
		for i := 0; i < ln.Quantity; i++ {
			unit := domain.ItemUnit{
				DrinkID:   ln.DrinkID,
				DrinkName: ln.DrinkName,
				Quantity:  1,
				Calories:  ln.Calories,
				Ratios:    ln.Ratios,
			}
			entry := domain.QueueEntry{
				ID:        s.newID(),
				Username:  username,
				CreatedAt: ts,
				Mood:      mood,
				Status:    domain.StatusPending,
				Items:     []domain.ItemUnit{unit},
			}
			entry.EstSeconds = s.timing.Estimate(entry.Items)
			q = append(q, entry)
			ids = append(ids, entry.ID)
		}
	}
	if err := s.store.ReplaceQueue(ctx, q); err != nil {
		return domain.CheckoutResponse{}, fmt.Errorf("save queue: %w", err)
	}

	last := ids[len(ids)-1]
	pos, _ := s.timing.Position(q, last, now)

	for _, id := range ids {
		s.emit(ctx, domain.QueueEvent{
			Type:       domain.EventOrderQueued,
			OrderID:    id,
			Username:   username,
			OccurredAt: ts,
		})
	}
	s.log.Info("checkout_enqueued", map[string]any{"username": username, "units": len(ids), "lines": len(lines)})

	return domain.CheckoutResponse{
		OrderID:  last,
		OrderIDs: ids,
		Count:    len(lines),
		Queue:    pos,
	}, nil
}

// Position reports the queue snapshot for one order id.
func (s *Service) Position(ctx context.Context, orderID string) (domain.PositionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.store.LoadQueue(ctx)
	if err != nil {
		return domain.PositionInfo{}, fmt.Errorf("load queue: %w", err)
	}
	info, ok := s.timing.Position(q, orderID, s.now())
	if !ok {
		return domain.PositionInfo{}, ErrNotFound
	}
	return info, nil
}

// MyQueue returns the caller's active entries annotated with position
// info, sorted by position.
func (s *Service) MyQueue(ctx context.Context, username string) ([]domain.MyQueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.store.LoadQueue(ctx)
	if err != nil {
		return nil, fmt.Errorf("load queue: %w", err)
	}
	now := s.now()

	out := []domain.MyQueueEntry{}
	for _, e := range q {
		if !e.Status.Active() || e.Username != username {
			continue
		}
		info, _ := s.timing.Position(q, e.ID, now)
		me := domain.MyQueueEntry{
			OrderID:      e.ID,
			Status:       e.Status,
			CreatedAt:    e.CreatedAt,
			Mood:         e.Mood,
			Items:        e.Items,
			StepSeconds:  s.timing.PerDrinkSec,
			PositionInfo: info,
		}
		if len(e.Items) > 0 {
			me.DrinkID = e.Items[0].DrinkID
			me.DrinkName = e.Items[0].DrinkName
		}
		out = append(out, me)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// ActiveQueue lists active entries in store order, capped at limit. The
// returned total is the full active count before truncation.
func (s *Service) ActiveQueue(ctx context.Context, limit int) ([]domain.QueueEntry, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.store.LoadQueue(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("load queue: %w", err)
	}
	active := []domain.QueueEntry{}
	for _, e := range q {
		if e.Status.Active() {
			active = append(active, e)
		}
	}
	total := len(active)
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}
	if len(active) > limit {
		active = active[:limit]
	}
	return active, total, nil
}

// NextJob returns the job the worker should act on: the in_progress entry
// if one exists, otherwise the oldest pending entry claimed on the spot
// (status advanced, startedAt stamped, estimate recomputed, persisted).
// Returns nil when the queue is idle; that is an answer, not an error.
func (s *Service) NextJob(ctx context.Context) (*domain.WorkerJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.store.LoadQueue(ctx)
	if err != nil {
		return nil, fmt.Errorf("load queue: %w", err)
	}
	now := s.now()

	idx := -1
	for i := range q {
		if q[i].Status == domain.StatusInProgress {
			idx = i
			break
		}
	}
	if idx < 0 {
		for i := range q {
			if q[i].Status != domain.StatusPending {
				continue
			}
			next, err := q[i].Status.Advance(domain.StatusInProgress)
			if err != nil {
				return nil, err
			}
			q[i].Status = next
			if q[i].StartedAt == "" {
				q[i].StartedAt = domain.FormatTime(now)
			}
			if q[i].EstSeconds <= 0 {
				q[i].EstSeconds = s.timing.Estimate(q[i].Items)
			}
			if err := s.store.ReplaceQueue(ctx, q); err != nil {
				return nil, fmt.Errorf("save queue: %w", err)
			}
			idx = i

			s.emit(ctx, domain.QueueEvent{
				Type:       domain.EventOrderClaimed,
				OrderID:    q[i].ID,
				Username:   q[i].Username,
				DrinkID:    firstItem(q[i]).DrinkID,
				DrinkName:  firstItem(q[i]).DrinkName,
				Remaining:  len(q[i].Items),
				EstSeconds: q[i].EstSeconds,
				OccurredAt: domain.FormatTime(now),
			})
			s.log.Debug("order_claimed", map[string]any{"order_id": q[i].ID})
			break
		}
	}
	if idx < 0 {
		return nil, nil
	}

	e := q[idx]
	info, _ := s.timing.Position(q, e.ID, now)
	first := firstItem(e)
	qty := first.Quantity
	if qty < 1 {
		qty = 1
	}
	eta := info.EtaThisSeconds
	if eta == 0 {
		eta = s.timing.Remaining(e, now)
	}

	// The full multi-item body is never exposed: the controller only ever
	// acts on one unit and has ESP8266-class memory.
	return &domain.WorkerJob{
		ID:              e.ID,
		DrinkID:         first.DrinkID,
		DrinkName:       first.DrinkName,
		Quantity:        qty,
		Ratios:          first.Ratios,
		RemainingItems:  len(e.Items),
		EtaSeconds:      eta,
		QueuePosition:   info.Position,
		QueueAhead:      info.Ahead,
		QueueEtaSeconds: info.EtaSeconds,
		StepSeconds:     s.timing.PerDrinkSec,
		PrepSeconds:     s.timing.PrepSec,
	}, nil
}

// CompleteUnit handles the worker's report that ONE drink unit finished.
// Guards first: unknown/terminal id is a clean not-found (safe to retry),
// and a report arriving before max(5, perDrink) seconds of progress is
// rejected with the remaining wait. On success either one unit is
// consumed and the entry stays in_progress with fresh timing, or the
// drained entry is archived and leaves the active queue.
func (s *Service) CompleteUnit(ctx context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.store.LoadQueue(ctx)
	if err != nil {
		return fmt.Errorf("load queue: %w", err)
	}
	now := s.now()

	idx := -1
	for i := range q {
		if q[i].ID == orderID && q[i].Status.Active() {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}
	e := q[idx]

	if started, ok := domain.ParseTime(e.StartedAt); ok {
		elapsed := now.Sub(started).Seconds()
		required := s.timing.PerDrinkSec
		if required < minCompleteFloorSec {
			required = minCompleteFloorSec
		}
		if elapsed < float64(required) {
			return &TooEarlyError{WaitSeconds: int(float64(required) - elapsed)}
		}
	}

	// Consume exactly one unit off the front.
	if len(e.Items) > 0 {
		if e.Items[0].Quantity > 1 {
			e.Items[0].Quantity--
		} else {
			e.Items = e.Items[1:]
		}
	}

	if len(e.Items) > 0 {
		// Units remain: stay in_progress, restart timing for the new
		// front unit.
		next, err := e.Status.Advance(domain.StatusInProgress)
		if err != nil {
			return err
		}
		e.Status = next
		e.StartedAt = domain.FormatTime(now)
		e.EstSeconds = s.timing.Estimate(e.Items)
		q[idx] = e
		if err := s.store.ReplaceQueue(ctx, q); err != nil {
			return fmt.Errorf("save queue: %w", err)
		}
		s.emit(ctx, domain.QueueEvent{
			Type:       domain.EventUnitDispensed,
			OrderID:    e.ID,
			Username:   e.Username,
			DrinkID:    firstItem(e).DrinkID,
			DrinkName:  firstItem(e).DrinkName,
			Remaining:  len(e.Items),
			EstSeconds: e.EstSeconds,
			OccurredAt: domain.FormatTime(now),
		})
		s.log.Debug("unit_dispensed", map[string]any{"order_id": e.ID, "remaining": len(e.Items)})
		return nil
	}

	// Nothing left: terminal transition, move to the archive.
	next, err := e.Status.Advance(domain.StatusComplete)
	if err != nil {
		return err
	}
	e.Status = next

	archive, err := s.store.LoadArchive(ctx)
	if err != nil {
		return fmt.Errorf("load archive: %w", err)
	}
	archive = append(archive, e)
	if err := s.store.ReplaceArchive(ctx, archive); err != nil {
		return fmt.Errorf("save archive: %w", err)
	}
	q = append(q[:idx], q[idx+1:]...)
	if err := s.store.ReplaceQueue(ctx, q); err != nil {
		return fmt.Errorf("save queue: %w", err)
	}
	s.emit(ctx, domain.QueueEvent{
		Type:       domain.EventOrderCompleted,
		OrderID:    e.ID,
		Username:   e.Username,
		OccurredAt: domain.FormatTime(now),
	})
	s.log.Info("order_completed", map[string]any{"order_id": e.ID, "username": e.Username})
	return nil
}

func (s *Service) emit(ctx context.Context, ev domain.QueueEvent) {
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Error("event_publish_failed", err, map[string]any{"type": ev.Type, "order_id": ev.OrderID})
	}
}

func firstItem(e domain.QueueEntry) domain.ItemUnit {
	if len(e.Items) == 0 {
		return domain.ItemUnit{}
	}
	return e.Items[0]
}

// normalizeLines drops unusable cart lines: missing catalog reference or
// non-positive quantity. The valid subset proceeds.
func normalizeLines(items []domain.CartLine) []domain.CartLine {
	out := make([]domain.CartLine, 0, len(items))
	for _, it := range items {
		id := strings.TrimSpace(it.DrinkID)
		name := strings.TrimSpace(it.DrinkName)
		if id == "" || name == "" || it.Quantity <= 0 {
			continue
		}
		ln := domain.CartLine{
			DrinkID:   id,
			DrinkName: name,
			Quantity:  it.Quantity,
			Calories:  it.Calories,
		}
		if it.Calories < 0 {
			ln.Calories = 0
		}
		if len(it.Ratios) > 0 {
			ln.Ratios = it.Ratios
		}
		out = append(out, ln)
	}
	return out
}

func normalizeMood(raw string) string {
	m := strings.ToLower(strings.TrimSpace(raw))
	if knownMoods[m] {
		return m
	}
	return ""
}
