package placement

import (
	"math"

	"github.com/lunarfall/swarmd/internal/random"
)

// weightedIndex picks an index with probability proportional to its
// weight using cumulative sampling. When the total weight is zero,
// negative or non-finite the draw degrades to uniform, so a degenerate
// weight table can never make placement fail.
func weightedIndex(rng *random.Source, weights []float64) int {
	if len(weights) == 0 {
		return 0
	}

	total := 0.0
	for _, w := range weights {
		if w > 0 && !math.IsInf(w, 1) && !math.IsNaN(w) {
			total += w
		}
	}
	if total <= 0 || math.IsInf(total, 1) || math.IsNaN(total) {
		return rng.IntN(len(weights))
	}

	target := rng.Float64() * total
	cum := 0.0
	for i, w := range weights {
		if w <= 0 || math.IsInf(w, 1) || math.IsNaN(w) {
			continue
		}
		cum += w
		if target < cum {
			return i
		}
	}
	// Floating point slack on the last accumulation.
	return len(weights) - 1
}
