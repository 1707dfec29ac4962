package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestStatusAdvance(t *testing.T) {
	cases := []struct {
		name    string
		from    Status
		to      Status
		wantErr bool
	}{
		{"pending_to_in_progress", StatusPending, StatusInProgress, false},
		{"in_progress_to_complete", StatusInProgress, StatusComplete, false},
		{"in_progress_stays", StatusInProgress, StatusInProgress, false},
		{"pending_to_complete", StatusPending, StatusComplete, false},
		{"regress_in_progress_to_pending", StatusInProgress, StatusPending, true},
		{"regress_complete_to_pending", StatusComplete, StatusPending, true},
		{"regress_complete_to_in_progress", StatusComplete, StatusInProgress, true},
		{"unknown_target", StatusPending, Status("weird"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.from.Advance(tc.to)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Advance(%q -> %q): expected error", tc.from, tc.to)
				}
				if got != tc.from {
					t.Fatalf("failed Advance must not change status, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Advance(%q -> %q): %v", tc.from, tc.to, err)
			}
			if got != tc.to {
				t.Fatalf("Advance(%q -> %q) = %q", tc.from, tc.to, got)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"pending":     StatusPending,
		"Pending":     StatusPending,
		"in_progress": StatusInProgress,
		"In Progress": StatusInProgress,
		"COMPLETE":    StatusComplete,
		"done":        StatusComplete,
	}
	for raw, want := range cases {
		if got := ParseStatus(raw); got != want {
			t.Errorf("ParseStatus(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestStatusUnmarshalNormalizes(t *testing.T) {
	raw := []byte(`{"id":"e1","username":"alice","status":"In Progress","items":[]}`)
	var e QueueEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Status != StatusInProgress {
		t.Fatalf("status = %q, want %q", e.Status, StatusInProgress)
	}
	if !e.Status.Active() {
		t.Fatal("legacy-cased status must load as active")
	}
}

func TestParseTime(t *testing.T) {
	if _, ok := ParseTime(""); ok {
		t.Fatal("empty string must not parse")
	}
	if _, ok := ParseTime("not-a-time"); ok {
		t.Fatal("garbage must not parse")
	}

	// Explicit zone.
	got, ok := ParseTime("2025-06-01T12:00:00+02:00")
	if !ok {
		t.Fatal("RFC 3339 with offset must parse")
	}
	if got.UTC().Hour() != 10 {
		t.Fatalf("offset not honored: %v", got)
	}

	// Naive timestamps are UTC by contract.
	naive, ok := ParseTime("2025-06-01T12:00:00")
	if !ok {
		t.Fatal("naive timestamp must parse")
	}
	if naive.Location() != time.UTC || naive.Hour() != 12 {
		t.Fatalf("naive timestamp must read as UTC, got %v", naive)
	}
}

func TestTotalQuantity(t *testing.T) {
	cases := []struct {
		name  string
		items []ItemUnit
		want  int
	}{
		{"empty", nil, 1},
		{"single_unit", []ItemUnit{{Quantity: 1}}, 1},
		{"bundled", []ItemUnit{{Quantity: 3}}, 3},
		{"mixed", []ItemUnit{{Quantity: 2}, {Quantity: 1}}, 3},
		{"malformed_zero", []ItemUnit{{Quantity: 0}}, 1},
		{"zero_adds_nothing", []ItemUnit{{Quantity: 0}, {Quantity: 2}}, 2},
		{"negative_total_clamps", []ItemUnit{{Quantity: -4}, {Quantity: 2}}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := (QueueEntry{Items: tc.items}).TotalQuantity(); got != tc.want {
				t.Fatalf("TotalQuantity = %d, want %d", got, tc.want)
			}
		})
	}
}
