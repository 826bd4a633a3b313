// Package analyzer turns a candidate profile and preferences into structured
// search criteria.
package analyzer

import (
	"context"

	"extendwork/recommend-service/internal/model"
)

// Analyzer produces SearchCriteria for a profile. Implementations must
// return criteria with 1–4 search queries and exactly 5 primary skills.
type Analyzer interface {
	Analyze(ctx context.Context, profile model.Profile, prefs model.Preferences) (*model.SearchCriteria, error)
}
