package recommend

import (
	"strings"

	"extendwork/recommend-service/internal/model"
)

// BuildSearchTerms merges the analyzer's search queries with up to two of
// the user's target roles, drops terms already covered by another term
// (substring containment in either direction) and keeps the first max.
func BuildSearchTerms(criteria *model.SearchCriteria, prefs model.Preferences, max int) []string {
	candidates := make([]string, 0, len(criteria.SearchQueries)+2)
	candidates = append(candidates, criteria.SearchQueries...)

	roles := 0
	for _, role := range prefs.TargetRoles {
		if roles == 2 {
			break
		}
		candidates = append(candidates, role)
		roles++
	}

	terms := make([]string, 0, max)
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" || covered(terms, c) {
			continue
		}
		terms = append(terms, c)
		if len(terms) == max {
			break
		}
	}
	return terms
}

// covered reports whether candidate is a substring of an existing term or
// vice versa, case-insensitively.
func covered(terms []string, candidate string) bool {
	lc := strings.ToLower(candidate)
	for _, t := range terms {
		lt := strings.ToLower(t)
		if strings.Contains(lt, lc) || strings.Contains(lc, lt) {
			return true
		}
	}
	return false
}
