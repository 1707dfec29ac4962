package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"smart-bartender/internal/common/logger"
	"smart-bartender/internal/domain"
	"smart-bartender/internal/repository"
)

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T) (*Service, *repository.MemoryStore, *testClock) {
	t.Helper()
	store := repository.NewMemoryStore()
	clock := &testClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewService(store, testTiming, nil, logger.New("test"))
	svc.now = clock.Now
	n := 0
	svc.newID = func() string { n++; return fmt.Sprintf("id-%03d", n) }
	return svc, store, clock
}

func cart(lines ...domain.CartLine) domain.CheckoutRequest {
	return domain.CheckoutRequest{Items: lines}
}

func TestCheckout_SplitsPerUnit(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Checkout(ctx, "alice", cart(
		domain.CartLine{DrinkID: "a", DrinkName: "Amber Storm", Quantity: 2, Calories: 104},
		domain.CartLine{DrinkID: "b", DrinkName: "Cola Spark", Quantity: 1, Calories: 81},
	))
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	// sum(quantity) == 3 queue entries, each a single unit.
	if len(resp.OrderIDs) != 3 {
		t.Fatalf("orderIds = %d, want 3", len(resp.OrderIDs))
	}
	if resp.OrderID != resp.OrderIDs[2] {
		t.Fatalf("orderId must be the last enqueued unit")
	}
	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2 (original cart lines)", resp.Count)
	}

	q, _ := store.LoadQueue(ctx)
	if len(q) != 3 {
		t.Fatalf("queue length = %d, want 3", len(q))
	}
	for i, e := range q {
		if e.Status != domain.StatusPending {
			t.Errorf("entry %d status = %q", i, e.Status)
		}
		if len(e.Items) != 1 || e.Items[0].Quantity != 1 {
			t.Errorf("entry %d must hold exactly one single-unit item, got %+v", i, e.Items)
		}
		if e.EstSeconds != 8+1*25 {
			t.Errorf("entry %d estSeconds = %d, want 33", i, e.EstSeconds)
		}
		if e.Username != "alice" {
			t.Errorf("entry %d username = %q", i, e.Username)
		}
	}
	if q[0].Items[0].DrinkID != "a" || q[2].Items[0].DrinkID != "b" {
		t.Errorf("units must keep cart order: %q, %q", q[0].Items[0].DrinkID, q[2].Items[0].DrinkID)
	}

	// One history row per original line, quantities preserved.
	hist, _ := store.LoadHistory(ctx)
	if len(hist) != 2 {
		t.Fatalf("history rows = %d, want 2", len(hist))
	}
	if hist[0].Quantity != 2 || hist[1].Quantity != 1 {
		t.Fatalf("history keeps line quantities: %d, %d", hist[0].Quantity, hist[1].Quantity)
	}

	// Snapshot describes the tail: two units ahead, each 33s + 10s prep.
	if resp.Queue.Position != 3 || resp.Queue.Ahead != 2 {
		t.Fatalf("tail snapshot position=%d ahead=%d", resp.Queue.Position, resp.Queue.Ahead)
	}
	if resp.Queue.EtaAheadSeconds != 2*(33+10) {
		t.Fatalf("etaAheadSeconds = %d, want 86", resp.Queue.EtaAheadSeconds)
	}
}

func TestCheckout_Validation(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	t.Run("drops_bad_lines_keeps_good", func(t *testing.T) {
		resp, err := svc.Checkout(ctx, "alice", cart(
			domain.CartLine{DrinkID: "", DrinkName: "nameless", Quantity: 1},
			domain.CartLine{DrinkID: "x", DrinkName: "", Quantity: 1},
			domain.CartLine{DrinkID: "x", DrinkName: "X", Quantity: 0},
			domain.CartLine{DrinkID: "ok", DrinkName: "OK", Quantity: 1},
		))
		if err != nil {
			t.Fatalf("Checkout: %v", err)
		}
		if len(resp.OrderIDs) != 1 {
			t.Fatalf("orderIds = %d, want 1 (only the valid line)", len(resp.OrderIDs))
		}
	})

	t.Run("all_invalid_rejected_atomically", func(t *testing.T) {
		qBefore, _ := store.LoadQueue(ctx)
		hBefore, _ := store.LoadHistory(ctx)

		_, err := svc.Checkout(ctx, "alice", cart(
			domain.CartLine{DrinkID: "", DrinkName: "", Quantity: 3},
		))
		if !errors.Is(err, ErrNoValidItems) {
			t.Fatalf("err = %v, want ErrNoValidItems", err)
		}

		qAfter, _ := store.LoadQueue(ctx)
		hAfter, _ := store.LoadHistory(ctx)
		if len(qAfter) != len(qBefore) || len(hAfter) != len(hBefore) {
			t.Fatal("rejected checkout must leave no side effects")
		}
	})

	t.Run("empty_cart_rejected", func(t *testing.T) {
		if _, err := svc.Checkout(ctx, "alice", cart()); !errors.Is(err, ErrNoValidItems) {
			t.Fatalf("err = %v, want ErrNoValidItems", err)
		}
	})
}

func TestCheckout_MoodNormalized(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Checkout(ctx, "alice", domain.CheckoutRequest{
		Items: []domain.CartLine{{DrinkID: "a", DrinkName: "A", Quantity: 1}},
		Mood:  "  Chill ",
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	_, err = svc.Checkout(ctx, "alice", domain.CheckoutRequest{
		Items: []domain.CartLine{{DrinkID: "a", DrinkName: "A", Quantity: 1}},
		Mood:  "furious",
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	hist, _ := store.LoadHistory(ctx)
	if hist[0].Mood != "chill" {
		t.Errorf("mood = %q, want normalized \"chill\"", hist[0].Mood)
	}
	if hist[1].Mood != "" {
		t.Errorf("unknown mood must be dropped, got %q", hist[1].Mood)
	}
}

func TestNextJob_ClaimsOldestPending(t *testing.T) {
	svc, store, clock := newTestService(t)
	ctx := context.Background()

	if job, err := svc.NextJob(ctx); err != nil || job != nil {
		t.Fatalf("idle queue: job=%v err=%v, want nil/nil", job, err)
	}

	resp, err := svc.Checkout(ctx, "alice", cart(
		domain.CartLine{DrinkID: "a", DrinkName: "Amber Storm", Quantity: 2},
	))
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	job, err := svc.NextJob(ctx)
	if err != nil {
		t.Fatalf("NextJob: %v", err)
	}
	if job == nil || job.ID != resp.OrderIDs[0] {
		t.Fatalf("must claim the oldest pending unit, got %+v", job)
	}
	// Split units report quantity 1 even for a 2-drink cart line.
	if job.Quantity != 1 {
		t.Fatalf("quantity = %d, want 1", job.Quantity)
	}
	if job.EtaSeconds != 33 {
		t.Fatalf("etaSeconds = %d, want 33", job.EtaSeconds)
	}
	if job.StepSeconds != 25 || job.PrepSeconds != 10 {
		t.Fatalf("timing constants missing: step=%d prep=%d", job.StepSeconds, job.PrepSeconds)
	}
	if job.QueuePosition != 1 || job.QueueAhead != 0 {
		t.Fatalf("claimed job position=%d ahead=%d", job.QueuePosition, job.QueueAhead)
	}

	q, _ := store.LoadQueue(ctx)
	if q[0].Status != domain.StatusInProgress {
		t.Fatalf("claimed entry status = %q", q[0].Status)
	}
	if q[0].StartedAt != domain.FormatTime(clock.Now()) {
		t.Fatalf("startedAt = %q, want claim time", q[0].StartedAt)
	}

	// Repeated polls return the same active job without claiming more.
	clock.Advance(3 * time.Second)
	again, err := svc.NextJob(ctx)
	if err != nil {
		t.Fatalf("NextJob: %v", err)
	}
	if again.ID != job.ID {
		t.Fatalf("poll must return the active job, got %s", again.ID)
	}
	q, _ = store.LoadQueue(ctx)
	inProgress := 0
	for _, e := range q {
		if e.Status == domain.StatusInProgress {
			inProgress++
		}
	}
	if inProgress != 1 {
		t.Fatalf("in_progress entries = %d, want exactly 1", inProgress)
	}
}

func TestCompleteUnit_TooEarly(t *testing.T) {
	svc, store, clock := newTestService(t)
	ctx := context.Background()

	resp, _ := svc.Checkout(ctx, "alice", cart(domain.CartLine{DrinkID: "a", DrinkName: "A", Quantity: 1}))
	if _, err := svc.NextJob(ctx); err != nil {
		t.Fatalf("NextJob: %v", err)
	}

	clock.Advance(4 * time.Second)
	err := svc.CompleteUnit(ctx, resp.OrderID)
	var tooEarly *TooEarlyError
	if !errors.As(err, &tooEarly) {
		t.Fatalf("err = %v, want TooEarlyError", err)
	}
	// required max(5,25)=25, elapsed 4 -> wait 21.
	if tooEarly.WaitSeconds != 21 {
		t.Fatalf("waitSeconds = %d, want 21", tooEarly.WaitSeconds)
	}

	// No mutation on rejection.
	q, _ := store.LoadQueue(ctx)
	if len(q) != 1 || q[0].Status != domain.StatusInProgress || len(q[0].Items) != 1 {
		t.Fatal("too-early rejection must not mutate the entry")
	}
}

func TestCompleteUnit_ArchivesLastUnit(t *testing.T) {
	svc, store, clock := newTestService(t)
	ctx := context.Background()

	resp, _ := svc.Checkout(ctx, "alice", cart(domain.CartLine{DrinkID: "a", DrinkName: "A", Quantity: 1}))
	if _, err := svc.NextJob(ctx); err != nil {
		t.Fatalf("NextJob: %v", err)
	}

	clock.Advance(25 * time.Second)
	if err := svc.CompleteUnit(ctx, resp.OrderID); err != nil {
		t.Fatalf("CompleteUnit: %v", err)
	}

	q, _ := store.LoadQueue(ctx)
	if len(q) != 0 {
		t.Fatalf("queue length = %d, want 0", len(q))
	}
	archive, _ := store.LoadArchive(ctx)
	if len(archive) != 1 {
		t.Fatalf("archive length = %d, want 1", len(archive))
	}
	if archive[0].Status != domain.StatusComplete {
		t.Fatalf("archived status = %q", archive[0].Status)
	}

	if _, err := svc.Position(ctx, resp.OrderID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("archived order position err = %v, want ErrNotFound", err)
	}

	// Replayed completion of a terminal id: not found, no duplicate append.
	if err := svc.CompleteUnit(ctx, resp.OrderID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("replay err = %v, want ErrNotFound", err)
	}
	archive, _ = store.LoadArchive(ctx)
	if len(archive) != 1 {
		t.Fatalf("replay must not duplicate the archive append, length = %d", len(archive))
	}
}

func TestCompleteUnit_MultiItemShrinksThenArchives(t *testing.T) {
	svc, store, clock := newTestService(t)
	ctx := context.Background()

	// Legacy-shaped entry: one order carrying two single-unit items.
	seed := []domain.QueueEntry{{
		ID:        "legacy-1",
		Username:  "bob",
		CreatedAt: domain.FormatTime(clock.Now()),
		Status:    domain.StatusPending,
		Items: []domain.ItemUnit{
			{DrinkID: "a", DrinkName: "A", Quantity: 1},
			{DrinkID: "b", DrinkName: "B", Quantity: 1},
		},
	}}
	if err := store.ReplaceQueue(ctx, seed); err != nil {
		t.Fatal(err)
	}

	job, err := svc.NextJob(ctx)
	if err != nil || job == nil {
		t.Fatalf("NextJob: job=%v err=%v", job, err)
	}
	if job.RemainingItems != 2 || job.DrinkID != "a" {
		t.Fatalf("job must expose only the first item: %+v", job)
	}

	claimTime := clock.Now()
	clock.Advance(30 * time.Second)
	if err := svc.CompleteUnit(ctx, "legacy-1"); err != nil {
		t.Fatalf("CompleteUnit: %v", err)
	}

	q, _ := store.LoadQueue(ctx)
	if len(q) != 1 {
		t.Fatalf("entry with units left must stay queued")
	}
	e := q[0]
	if e.Status != domain.StatusInProgress {
		t.Fatalf("status = %q, want in_progress", e.Status)
	}
	if len(e.Items) != 1 || e.Items[0].DrinkID != "b" {
		t.Fatalf("front unit must be consumed, items = %+v", e.Items)
	}
	if e.StartedAt == domain.FormatTime(claimTime) {
		t.Fatal("startedAt must reset when the entry advances to the next unit")
	}
	if e.StartedAt != domain.FormatTime(clock.Now()) {
		t.Fatalf("startedAt = %q, want completion time", e.StartedAt)
	}
	if e.EstSeconds != 8+1*25 {
		t.Fatalf("estSeconds = %d, want recomputed 33", e.EstSeconds)
	}

	// Second unit after the required wait: archived and gone.
	clock.Advance(25 * time.Second)
	if err := svc.CompleteUnit(ctx, "legacy-1"); err != nil {
		t.Fatalf("CompleteUnit: %v", err)
	}
	q, _ = store.LoadQueue(ctx)
	if len(q) != 0 {
		t.Fatal("drained order must leave the active queue")
	}
	archive, _ := store.LoadArchive(ctx)
	if len(archive) != 1 || archive[0].ID != "legacy-1" {
		t.Fatalf("archive = %+v", archive)
	}
}

func TestLegacyCasedStatusStillServed(t *testing.T) {
	// Older revisions wrote "Pending" / "In Progress" into the queue
	// document. Such entries must still position and claim.
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	seed := []domain.QueueEntry{{
		ID:       "legacy-cased",
		Username: "bob",
		Status:   domain.Status("Pending"),
		Items:    []domain.ItemUnit{{DrinkID: "a", DrinkName: "A", Quantity: 1}},
	}}
	if err := store.ReplaceQueue(ctx, seed); err != nil {
		t.Fatal(err)
	}

	info, err := svc.Position(ctx, "legacy-cased")
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if info.Position != 1 {
		t.Fatalf("position = %d, want 1", info.Position)
	}

	job, err := svc.NextJob(ctx)
	if err != nil {
		t.Fatalf("NextJob: %v", err)
	}
	if job == nil || job.ID != "legacy-cased" {
		t.Fatalf("entry must be claimable, got %+v", job)
	}

	q, _ := store.LoadQueue(ctx)
	if q[0].Status != domain.StatusInProgress {
		t.Fatalf("status = %q, want canonical in_progress", q[0].Status)
	}
}

func TestCompleteUnit_DecrementsBundledQuantity(t *testing.T) {
	svc, store, clock := newTestService(t)
	ctx := context.Background()

	seed := []domain.QueueEntry{{
		ID:       "bundle-1",
		Username: "bob",
		Status:   domain.StatusPending,
		Items:    []domain.ItemUnit{{DrinkID: "a", DrinkName: "A", Quantity: 2}},
	}}
	if err := store.ReplaceQueue(ctx, seed); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.NextJob(ctx); err != nil {
		t.Fatalf("NextJob: %v", err)
	}

	clock.Advance(25 * time.Second)
	if err := svc.CompleteUnit(ctx, "bundle-1"); err != nil {
		t.Fatalf("CompleteUnit: %v", err)
	}

	q, _ := store.LoadQueue(ctx)
	if len(q) != 1 || len(q[0].Items) != 1 || q[0].Items[0].Quantity != 1 {
		t.Fatalf("front quantity must decrement, items = %+v", q[0].Items)
	}
}

func TestCompleteUnit_PendingWithoutStartedAt(t *testing.T) {
	// A pending entry has no startedAt, so the minimum-elapsed guard does
	// not apply and the unit is consumed directly.
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	resp, _ := svc.Checkout(ctx, "alice", cart(domain.CartLine{DrinkID: "a", DrinkName: "A", Quantity: 1}))
	if err := svc.CompleteUnit(ctx, resp.OrderID); err != nil {
		t.Fatalf("CompleteUnit: %v", err)
	}
	archive, _ := store.LoadArchive(ctx)
	if len(archive) != 1 {
		t.Fatalf("archive length = %d, want 1", len(archive))
	}
}

func TestFIFO_AcrossCompletions(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()

	a, _ := svc.Checkout(ctx, "alice", cart(domain.CartLine{DrinkID: "a", DrinkName: "A", Quantity: 1}))
	b, _ := svc.Checkout(ctx, "bob", cart(domain.CartLine{DrinkID: "b", DrinkName: "B", Quantity: 1}))

	posA, _ := svc.Position(ctx, a.OrderID)
	posB, _ := svc.Position(ctx, b.OrderID)
	if !(posA.Position < posB.Position) {
		t.Fatalf("FIFO violated: A=%d B=%d", posA.Position, posB.Position)
	}

	if _, err := svc.NextJob(ctx); err != nil {
		t.Fatal(err)
	}
	clock.Advance(25 * time.Second)
	if err := svc.CompleteUnit(ctx, a.OrderID); err != nil {
		t.Fatal(err)
	}

	posB, err := svc.Position(ctx, b.OrderID)
	if err != nil {
		t.Fatal(err)
	}
	if posB.Position != 1 || posB.Ahead != 0 {
		t.Fatalf("B must move to the front: position=%d ahead=%d", posB.Position, posB.Ahead)
	}
}

func TestActiveQueue_CountSurvivesTruncation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, _ = svc.Checkout(ctx, "alice", cart(domain.CartLine{DrinkID: "a", DrinkName: "A", Quantity: 3}))

	active, total, err := svc.ActiveQueue(ctx, 2)
	if err != nil {
		t.Fatalf("ActiveQueue: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("listed entries = %d, want limit 2", len(active))
	}
	if total != 3 {
		t.Fatalf("total = %d, want full active count 3", total)
	}
}

func TestMyQueue(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, _ = svc.Checkout(ctx, "alice", cart(domain.CartLine{DrinkID: "a", DrinkName: "A", Quantity: 1}))
	_, _ = svc.Checkout(ctx, "bob", cart(domain.CartLine{DrinkID: "b", DrinkName: "B", Quantity: 1}))
	_, _ = svc.Checkout(ctx, "alice", cart(domain.CartLine{DrinkID: "c", DrinkName: "C", Quantity: 1}))

	mine, err := svc.MyQueue(ctx, "alice")
	if err != nil {
		t.Fatalf("MyQueue: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("alice entries = %d, want 2", len(mine))
	}
	if mine[0].Position >= mine[1].Position {
		t.Fatalf("entries must sort by position: %d, %d", mine[0].Position, mine[1].Position)
	}
	if mine[0].DrinkID != "a" || mine[1].DrinkID != "c" {
		t.Fatalf("unexpected drinks: %q, %q", mine[0].DrinkID, mine[1].DrinkID)
	}
	if mine[0].StepSeconds != 25 {
		t.Fatalf("stepSeconds = %d, want 25", mine[0].StepSeconds)
	}

	none, err := svc.MyQueue(ctx, "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Fatalf("stranger entries = %d, want 0", len(none))
	}
}
