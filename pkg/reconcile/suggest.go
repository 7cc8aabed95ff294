package reconcile

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// suggestEmail returns the known email closest to an unresolved one, or ""
// when nothing is close enough to be a plausible typo.
func suggestEmail(email string, known []string) string {
	if email == "" || len(known) == 0 {
		return ""
	}

	if ranks := fuzzy.RankFindNormalizedFold(email, known); len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}

	limit := len(email) / 5
	if limit < 2 {
		limit = 2
	}
	best, bestDist := "", limit+1
	for _, k := range known {
		if d := fuzzy.LevenshteinDistance(email, k); d < bestDist {
			best, bestDist = k, d
		}
	}
	return best
}
