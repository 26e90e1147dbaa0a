package main

import (
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/couchcryptid/storm-data-scheduler/internal/domain"
)

// suggest returns the closest weather name within edit distance, or "".
func suggest(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	best, bestDist := "", -1
	for _, w := range domain.Weathers {
		cand := string(w)
		dist := levenshtein.ComputeDistance(name, cand)
		if dist > levenshteinLimit(len(cand)) {
			continue
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = cand, dist
		}
	}
	return best
}

func levenshteinLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}
