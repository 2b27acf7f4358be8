// Package selection picks random katas.
package selection

import (
	"fmt"
	"math/rand/v2"

	"github.com/starford/katac/internal/apperr"
)

// Random returns n distinct names drawn from candidates in random order.
// Duplicate and empty candidates are dropped first. A nil rng uses the
// global source.
func Random(candidates []string, n int, rng *rand.Rand) ([]string, error) {
	if n < 1 {
		return nil, fmt.Errorf("number of katas must be at least 1, got %d: %w", n, apperr.ErrInvalidArgument)
	}
	pool := dedupe(candidates)
	if len(pool) == 0 {
		return nil, fmt.Errorf("no katas to choose from: %w", apperr.ErrEmpty)
	}
	if n > len(pool) {
		return nil, fmt.Errorf("random katas wanted number (%d) is higher than the number of katas found (%d): %w",
			n, len(pool), apperr.ErrTooMany)
	}
	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}
	shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:n], nil
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
