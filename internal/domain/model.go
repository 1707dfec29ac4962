package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle of a queue entry. Transitions are strictly
// forward: pending -> in_progress -> complete.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
)

func (s Status) Active() bool {
	return s == StatusPending || s == StatusInProgress
}

func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusInProgress:
		return 1
	case StatusComplete:
		return 2
	}
	return -1
}

// Advance validates a transition and returns the new status. Staying on
// in_progress is allowed (a multi-unit order shrinks without changing
// status); any backward move is rejected.
func (s Status) Advance(to Status) (Status, error) {
	if s.rank() < 0 || to.rank() < 0 {
		return s, fmt.Errorf("unknown status %q -> %q", s, to)
	}
	if to.rank() < s.rank() {
		return s, fmt.Errorf("status cannot regress: %q -> %q", s, to)
	}
	if s == StatusComplete && to != StatusComplete {
		return s, fmt.Errorf("status %q is terminal", s)
	}
	return to, nil
}

// UnmarshalJSON folds the stored value through ParseStatus, so documents
// written by older revisions ("Pending", "In Progress") load as the
// canonical forms.
func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = ParseStatus(raw)
	return nil
}

// ParseStatus folds case and spacing into the canonical lowercase forms.
func ParseStatus(raw string) Status {
	v := strings.ToLower(strings.TrimSpace(raw))
	v = strings.ReplaceAll(v, " ", "_")
	switch v {
	case "pending":
		return StatusPending
	case "in_progress":
		return StatusInProgress
	case "complete", "completed", "done":
		return StatusComplete
	}
	return Status(v)
}

// ItemUnit is one position of a queue entry: a catalog reference plus a
// count of identical drink units. Ratios are pump proportions passed
// through to the hardware untouched.
type ItemUnit struct {
	DrinkID   string         `json:"drinkId"`
	DrinkName string         `json:"drinkName"`
	Quantity  int            `json:"quantity"`
	Calories  int            `json:"calories"`
	Ratios    map[string]int `json:"ratios,omitempty"`
}

// QueueEntry is one unit of dispensing work. After intake splitting an
// entry carries a single one-unit item, but the completion protocol also
// handles multi-item bodies (legacy documents).
type QueueEntry struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	CreatedAt  string     `json:"ts"`
	Mood       string     `json:"mood,omitempty"`
	Status     Status     `json:"status"`
	Items      []ItemUnit `json:"items"`
	StartedAt  string     `json:"startedAt,omitempty"`
	EstSeconds int        `json:"estSeconds"`
}

// TotalQuantity sums the unit counts of all items, with only the final
// total clamped to at least 1 so a malformed body never zeroes the ETA.
func (e QueueEntry) TotalQuantity() int {
	total := 0
	for _, it := range e.Items {
		total += it.Quantity
	}
	if total <= 0 {
		total = 1
	}
	return total
}

// HistoryOrder is one denormalized row of the append-only order log, one
// per cart line at checkout. Never mutated; read by history and the
// recommender.
type HistoryOrder struct {
	Username  string `json:"username"`
	DrinkID   string `json:"drinkId"`
	DrinkName string `json:"drinkName"`
	Quantity  int    `json:"quantity"`
	Calories  int    `json:"calories"`
	Timestamp string `json:"ts"`
	Mood      string `json:"mood,omitempty"`
}

// Drink is a catalog record. Identity is owned by the catalog; the queue
// only carries ids and names through.
type Drink struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Calories    int      `json:"calories"`
	Ingredients []string `json:"ingredients,omitempty"`
}

// FormatTime serializes a timestamp the way every store document expects
// it: RFC 3339 in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseTime accepts RFC 3339 and treats a naive timestamp as UTC. The
// zero time and false are returned when nothing parses.
func ParseTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02T15:04:05.999999999", raw); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse("2006-01-02T15:04:05", raw); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}
