package recommend

// Options are the pipeline tunables. The defaults mirror the production
// heuristics; tests and deployments may override individual fields.
type Options struct {
	// CatalogThreshold is the catalog yield at or above which external
	// providers are skipped entirely (DB-first policy).
	CatalogThreshold int
	// SalaryFloorRatio drops a listing whose max salary is below this
	// fraction of the user's minimum salary preference.
	SalaryFloorRatio float64
	// CatalogWindowDays bounds how far back the catalog search looks.
	CatalogWindowDays int
	// CatalogLimit caps the catalog search result set.
	CatalogLimit int
	// MaxSearchTerms caps the merged search-term list.
	MaxSearchTerms int
	// MaxConfigs caps the location/country search configurations.
	MaxConfigs int
	// MaxProviderCalls caps concurrent external provider calls per run.
	MaxProviderCalls int
	// IngestBatchSize is the upsert/fetch-back batch size.
	IngestBatchSize int
	// MaxResults truncates the final scored output.
	MaxResults int
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		CatalogThreshold:  50,
		SalaryFloorRatio:  0.7,
		CatalogWindowDays: 14,
		CatalogLimit:      500,
		MaxSearchTerms:    4,
		MaxConfigs:        3,
		MaxProviderCalls:  6,
		IngestBatchSize:   250,
		MaxResults:        500,
	}
}
