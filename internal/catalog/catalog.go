package catalog

import (
	"context"
	"fmt"

	"smart-bartender/internal/domain"
	"smart-bartender/internal/repository"
)

// Service owns the drink catalog. Identity of drinks lives here; the
// queue only carries ids and names through.
type Service struct {
	store repository.Store
}

func NewService(store repository.Store) *Service { return &Service{store: store} }

// Ensure seeds the starter menu when the catalog document is missing or
// empty.
func (s *Service) Ensure(ctx context.Context) error {
	drinks, err := s.store.LoadDrinks(ctx)
	if err != nil {
		return fmt.Errorf("load drinks: %w", err)
	}
	if len(drinks) > 0 {
		return nil
	}
	if err := s.store.ReplaceDrinks(ctx, starterDrinks()); err != nil {
		return fmt.Errorf("seed drinks: %w", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context) ([]domain.Drink, error) {
	drinks, err := s.store.LoadDrinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load drinks: %w", err)
	}
	if drinks == nil {
		drinks = []domain.Drink{}
	}
	return drinks, nil
}

// Get looks a drink up by id.
func (s *Service) Get(ctx context.Context, id string) (domain.Drink, bool, error) {
	drinks, err := s.store.LoadDrinks(ctx)
	if err != nil {
		return domain.Drink{}, false, fmt.Errorf("load drinks: %w", err)
	}
	for _, d := range drinks {
		if d.ID == id {
			return d, true, nil
		}
	}
	return domain.Drink{}, false, nil
}

func starterDrinks() []domain.Drink {
	return []domain.Drink{
		{ID: "amber_storm", Name: "Amber Storm", Calories: 104, Ingredients: []string{"Coca-Cola", "Ginger Ale"}},
		{ID: "classic_fusion", Name: "Classic Fusion", Calories: 76, Ingredients: []string{"Water", "Lemonade"}},
		{ID: "chaos_punch", Name: "Chaos Punch", Calories: 204, Ingredients: []string{"Coca-Cola", "Red Bull"}},
		{ID: "crystal_chill", Name: "Crystal Chill", Calories: 56, Ingredients: []string{"Water", "Sprite"}},
		{ID: "cola_spark", Name: "Cola Spark", Calories: 81, Ingredients: []string{"Coca-Cola", "Sprite"}},
		{ID: "dark_amber", Name: "Dark Amber", Calories: 65, Ingredients: []string{"Coca-Cola", "Ginger Ale"}},
		{ID: "voltage_fizz", Name: "Voltage Fizz", Calories: 117, Ingredients: []string{"Red Bull", "Sprite"}},
		{ID: "golden_breeze", Name: "Golden Breeze", Calories: 87, Ingredients: []string{"Lemonade", "Ginger Ale", "Water"}},
		{ID: "energy_sunrise", Name: "Energy Sunrise", Calories: 180, Ingredients: []string{"Red Bull", "Lemonade"}},
		{ID: "citrus_cloud", Name: "Citrus Cloud", Calories: 95, Ingredients: []string{"Sprite", "Lemonade"}},
		{ID: "citrus_shine", Name: "Citrus Shine", Calories: 90, Ingredients: []string{"Lemonade", "Sprite", "Water"}},
		{ID: "sparking_citrus", Name: "Sparking Citrus", Calories: 102, Ingredients: []string{"Sprite", "Lemonade", "Ginger Ale"}},
		{ID: "sunset_fizz", Name: "Sunset Fizz", Calories: 120, Ingredients: []string{"Ginger Ale", "Lemonade"}},
		{ID: "tropical_charge", Name: "Tropical Charge", Calories: 160, Ingredients: []string{"Red Bull", "Sprite", "Lemonade"}},

		// Bases
		{ID: "base_water", Name: "Water", Calories: 0},
		{ID: "base_lemonade", Name: "Lemonade", Calories: 150},
		{ID: "base_coca_cola", Name: "Coca-Cola", Calories: 140},
		{ID: "base_sprite", Name: "Sprite", Calories: 140},
		{ID: "base_ginger_ale", Name: "Ginger Ale", Calories: 120},
		{ID: "base_red_bull", Name: "Red Bull", Calories: 110},
	}
}
