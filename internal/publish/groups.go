package publish

import (
	"strings"

	"pod2social/internal/config"
)

// FilterGroups intersects the model-suggested subreddits with the configured
// allow-list, keeping only entries with promo_allowed, capped at max. Names
// are matched case-insensitively with or without the "r/" prefix; results
// keep the canonical "r/" form.
func FilterGroups(suggested []string, allowList map[string][]config.Group, max int) []string {
	allowed := make(map[string]bool)
	for _, groups := range allowList {
		for _, g := range groups {
			if g.PromoAllowed {
				allowed[normalizeGroup(g.Name)] = true
			}
		}
	}

	var result []string
	seen := make(map[string]bool)
	for _, name := range suggested {
		if len(result) >= max {
			break
		}
		clean := normalizeGroup(name)
		if clean == "" || seen[clean] || !allowed[clean] {
			continue
		}
		seen[clean] = true
		result = append(result, "r/"+clean)
	}
	return result
}

func normalizeGroup(name string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), "r/")
}
