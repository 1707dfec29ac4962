package catalog

import (
	"context"
	"testing"

	"smart-bartender/internal/domain"
	"smart-bartender/internal/repository"
)

func TestEnsure_SeedsOnce(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewService(store)
	ctx := context.Background()

	if err := svc.Ensure(ctx); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	drinks, err := svc.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(drinks) == 0 {
		t.Fatal("seed must populate the catalog")
	}
	seen := map[string]bool{}
	for _, d := range drinks {
		if d.ID == "" || d.Name == "" {
			t.Fatalf("malformed seed drink: %+v", d)
		}
		if seen[d.ID] {
			t.Fatalf("duplicate seed id %q", d.ID)
		}
		seen[d.ID] = true
	}

	// A curated catalog must survive restarts untouched.
	curated := []domain.Drink{{ID: "house_special", Name: "House Special", Calories: 42}}
	if err := store.ReplaceDrinks(ctx, curated); err != nil {
		t.Fatal(err)
	}
	if err := svc.Ensure(ctx); err != nil {
		t.Fatal(err)
	}
	drinks, _ = svc.List(ctx)
	if len(drinks) != 1 || drinks[0].ID != "house_special" {
		t.Fatalf("Ensure must not overwrite a non-empty catalog: %v", drinks)
	}
}

func TestGet(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewService(store)
	ctx := context.Background()
	if err := svc.Ensure(ctx); err != nil {
		t.Fatal(err)
	}

	d, ok, err := svc.Get(ctx, "cola_spark")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if d.Name != "Cola Spark" {
		t.Fatalf("name = %q", d.Name)
	}

	_, ok, err = svc.Get(ctx, "ghost")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("unknown id must report not found")
	}
}
