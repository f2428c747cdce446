package play

import (
	"sort"

	"luckyplay/internal/models"
)

// SelectPrize draws one prize for r in [0, 100).
//
// Prizes are walked in stable order (chance weight desc, id asc) and the first
// whose cumulative weight reaches r wins. Weights are not required to sum to
// 100: when they sum to less, an r past the total falls back to the first
// "none" prize, else the last candidate; when they sum to more, prizes after
// the point where the running total passes 100 can never be drawn.
func SelectPrize(prizes []models.Prize, r float64) (models.Prize, error) {
	candidates := make([]models.Prize, 0, len(prizes))
	for _, p := range prizes {
		if p.InStock() {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return models.Prize{}, exhausted()
	}
	sortPrizes(candidates)

	cumulative := 0
	for _, p := range candidates {
		if p.ChanceWeight <= 0 {
			continue
		}
		cumulative += p.ChanceWeight
		if float64(cumulative) >= r {
			return p, nil
		}
	}
	for _, p := range candidates {
		if p.Kind == models.PrizeNone {
			return p, nil
		}
	}
	return candidates[len(candidates)-1], nil
}

func sortPrizes(prizes []models.Prize) {
	sort.SliceStable(prizes, func(i, j int) bool {
		if prizes[i].ChanceWeight != prizes[j].ChanceWeight {
			return prizes[i].ChanceWeight > prizes[j].ChanceWeight
		}
		return prizes[i].ID < prizes[j].ID
	})
}

func drawPercent(src Source) float64 {
	r := src.Float64() * 100
	if r >= 100 {
		r = 99.999999
	}
	if r < 0 {
		r = 0
	}
	return r
}
