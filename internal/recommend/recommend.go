package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"

	"smart-bartender/internal/domain"
	"smart-bartender/internal/repository"
)

// Service scores drinks for a user from the order history: cosine
// similarity between user taste vectors, with popularity as the cold-start
// and no-signal fallback. Stateless over the two documents it reads.
type Service struct {
	store repository.Store
}

func NewService(store repository.Store) *Service { return &Service{store: store} }

const maxSimilarUsers = 25

// ForUser returns up to k recommended drinks for username.
func (s *Service) ForUser(ctx context.Context, username string, k int) ([]domain.Drink, error) {
	if k < 1 {
		k = 1
	}
	if k > 20 {
		k = 20
	}
	drinks, err := s.store.LoadDrinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load drinks: %w", err)
	}
	history, err := s.store.LoadHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	byID := map[string]domain.Drink{}
	menuOrder := []string{}
	for _, d := range drinks {
		if d.ID == "" {
			continue
		}
		if _, dup := byID[d.ID]; !dup {
			menuOrder = append(menuOrder, d.ID)
		}
		byID[d.ID] = d
	}

	vectors, popularity := buildVectors(history)
	target := vectors[username]
	tried := map[string]bool{}
	for id := range target {
		tried[id] = true
	}

	var ranked []string
	switch {
	case len(target) == 0:
		// Cold start: global popularity, then menu order.
		ranked = popularIDs(popularity, nil)
		if len(ranked) == 0 {
			ranked = menuOrder
		}
	default:
		ranked = scoreBySimilarUsers(username, target, vectors, tried)
		if len(ranked) == 0 {
			ranked = popularIDs(popularity, tried)
		}
		if len(ranked) == 0 {
			for _, id := range menuOrder {
				if !tried[id] {
					ranked = append(ranked, id)
				}
			}
		}
	}

	out := []domain.Drink{}
	for _, id := range ranked {
		if d, ok := byID[id]; ok {
			out = append(out, d)
		}
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

// buildVectors returns per-user drink count vectors and global counts.
func buildVectors(history []domain.HistoryOrder) (map[string]map[string]float64, map[string]float64) {
	vectors := map[string]map[string]float64{}
	global := map[string]float64{}
	for _, o := range history {
		if o.Username == "" || o.DrinkID == "" {
			continue
		}
		qty := o.Quantity
		if qty < 1 {
			qty = 1
		}
		v := vectors[o.Username]
		if v == nil {
			v = map[string]float64{}
			vectors[o.Username] = v
		}
		v[o.DrinkID] += float64(qty)
		global[o.DrinkID] += float64(qty)
	}
	return vectors, global
}

func scoreBySimilarUsers(username string, target map[string]float64, vectors map[string]map[string]float64, tried map[string]bool) []string {
	type sim struct {
		user  string
		score float64
	}
	sims := []sim{}
	for other, vec := range vectors {
		if other == username {
			continue
		}
		if s := cosine(target, vec); s > 0 {
			sims = append(sims, sim{other, s})
		}
	}
	sort.SliceStable(sims, func(i, j int) bool { return sims[i].score > sims[j].score })
	if len(sims) > maxSimilarUsers {
		sims = sims[:maxSimilarUsers]
	}

	scores := map[string]float64{}
	for _, sm := range sims {
		for id, cnt := range vectors[sm.user] {
			if tried[id] {
				continue
			}
			scores[id] += sm.score * cnt
		}
	}
	return rankDesc(scores)
}

func popularIDs(popularity map[string]float64, exclude map[string]bool) []string {
	filtered := map[string]float64{}
	for id, c := range popularity {
		if exclude != nil && exclude[id] {
			continue
		}
		filtered[id] = c
	}
	return rankDesc(filtered)
}

func rankDesc(scores map[string]float64) []string {
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.SliceStable(ids, func(i, j int) bool {
		if scores[ids[i]] != scores[ids[j]] {
			return scores[ids[i]] > scores[ids[j]]
		}
		return ids[i] < ids[j] // deterministic ties
	})
	return ids
}

func cosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	dot := 0.0
	for k, av := range a {
		if bv, ok := b[k]; ok {
			dot += av * bv
		}
	}
	na, nb := 0.0, 0.0
	for _, v := range a {
		na += v * v
	}
	for _, v := range b {
		nb += v * v
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
