// Package recommend implements the job recommendation pipeline: cached
// criteria-driven catalog search, bounded concurrent provider fan-out,
// dedup + batched ingestion, weighted compatibility scoring, and an ordered
// progress-event protocol.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"extendwork/recommend-service/internal/analyzer"
	"extendwork/recommend-service/internal/cache"
	"extendwork/recommend-service/internal/fingerprint"
	"extendwork/recommend-service/internal/location"
	"extendwork/recommend-service/internal/model"
	"extendwork/recommend-service/internal/provider"
)

// ErrNotEntitled is returned when the entitlement guard rejects the caller.
var ErrNotEntitled = errors.New("user is not entitled to recommendations")

// CatalogStore is the persistent job catalog the pipeline reads and feeds.
type CatalogStore interface {
	Search(ctx context.Context, terms []string, since time.Time, limit int) ([]model.CanonicalListing, error)
	ExistingKeys(ctx context.Context, keys []string) (map[string]struct{}, error)
	UpsertBatch(ctx context.Context, listings []model.CanonicalListing) (int, error)
	FetchByKeys(ctx context.Context, keys []string) ([]model.CanonicalListing, error)
}

// ResultCache stores recommendation bundles per (user, fingerprint).
type ResultCache interface {
	Get(ctx context.Context, userID, fingerprint string) (*model.CacheEntry, error)
	Put(ctx context.Context, userID, fingerprint string, entry *model.CacheEntry) error
}

// Guard authorizes the caller and records consumption. Called once as a
// precondition, before any paid work.
type Guard interface {
	Authorize(ctx context.Context, userID string) error
}

// Request is one recommendation request.
type Request struct {
	UserID      string
	Profile     model.Profile
	Preferences model.Preferences
}

// Deps aggregates the pipeline's injected collaborators.
type Deps struct {
	Store     CatalogStore
	Cache     ResultCache
	Analyzer  analyzer.Analyzer
	Resolver  location.Resolver
	Providers []provider.Provider
	Guard     Guard
	Logger    *zap.Logger
}

// Pipeline runs recommendation requests. Safe for concurrent use; the only
// user-scoped mutable state is the cache entry, which is always a full
// overwrite.
type Pipeline struct {
	store     CatalogStore
	cache     ResultCache
	analyzer  analyzer.Analyzer
	resolver  location.Resolver
	providers []provider.Provider
	guard     Guard
	opts      Options
	logger    *zap.Logger
}

// New constructs a Pipeline.
func New(deps Deps, opts Options) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		store:     deps.Store,
		cache:     deps.Cache,
		analyzer:  deps.Analyzer,
		resolver:  deps.Resolver,
		providers: deps.Providers,
		guard:     deps.Guard,
		opts:      opts,
		logger:    logger,
	}
}

// Recommend runs the pipeline without progress streaming.
func (p *Pipeline) Recommend(ctx context.Context, req Request) (*model.Result, error) {
	return p.Run(ctx, req, NopSink{})
}

// Run executes the full pipeline, emitting progress events to sink. The
// stream terminates exactly once: a complete event carrying the payload, or
// a single error event. Partial provider and ingestion failures never fail
// the run.
func (p *Pipeline) Run(ctx context.Context, req Request, sink Sink) (result *model.Result, err error) {
	runID := uuid.NewString()
	t := newTracker(sink, p.logger, runID)
	log := p.logger.With(zap.String("run_id", runID), zap.String("user_id", req.UserID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline panicked", zap.Any("panic", r))
			t.Fail("internal error while building recommendations")
			result = nil
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()

	// ── auth ───────────────────────────────────────────────────────────
	t.Stage(model.StageAuth, "checking your plan", 0, nil)
	if p.guard != nil {
		if authErr := p.guard.Authorize(ctx, req.UserID); authErr != nil {
			log.Warn("entitlement check rejected request", zap.Error(authErr))
			t.Fail("you are not authorized to request recommendations")
			return nil, fmt.Errorf("authorize: %w", authErr)
		}
	}
	t.Stage(model.StageAuth, "authorized", pctAuthDone, nil)

	// ── cache fast path ────────────────────────────────────────────────
	fp := fingerprint.Profile(req.Profile, req.Preferences)
	if entry, cacheErr := p.cache.Get(ctx, req.UserID, fp); cacheErr == nil {
		log.Info("serving cached recommendations",
			zap.Int("recommendations", len(entry.Recommendations)),
			zap.Time("created_at", entry.CreatedAt),
		)
		result = &model.Result{
			Recommendations: entry.Recommendations,
			SearchTerms:     entry.Criteria,
			Cached:          true,
		}
		t.Complete("recommendations ready", result, &model.ProgressDetails{
			Cached:     true,
			JobsScored: len(entry.Recommendations),
		})
		return result, nil
	} else if !errors.Is(cacheErr, cache.ErrMiss) {
		// Degraded cache is not fatal; recompute.
		log.Warn("result cache unavailable", zap.Error(cacheErr))
	}

	// ── analyzing ──────────────────────────────────────────────────────
	t.Stage(model.StageAnalyzing, "analyzing your profile", pctAuthDone, nil)
	criteria, err := p.analyzer.Analyze(ctx, req.Profile, req.Preferences)
	if err != nil {
		log.Error("profile analysis failed", zap.Error(err))
		t.Fail("could not analyze your profile")
		return nil, fmt.Errorf("analyze profile: %w", err)
	}
	t.Stage(model.StageAnalyzing, "profile analyzed", pctAnalyzingDone, nil)

	// ── detecting ──────────────────────────────────────────────────────
	t.Stage(model.StageDetecting, "detecting your locations", pctAnalyzingDone, nil)
	locations := candidateLocations(req.Profile, req.Preferences)
	mapping, err := p.resolveLocations(ctx, log, locations)
	if err != nil {
		// Recovered locally: continue with an empty mapping.
		mapping = &location.Mapping{Countries: map[string]string{}}
	}
	t.Stage(model.StageDetecting, "locations detected", pctDetectingDone, nil)

	// ── searching ──────────────────────────────────────────────────────
	terms := BuildSearchTerms(criteria, req.Preferences, p.opts.MaxSearchTerms)
	t.Stage(model.StageSearching, "searching the job catalog", pctDetectingDone, nil)

	since := time.Now().AddDate(0, 0, -p.opts.CatalogWindowDays)
	catalogHits, err := p.store.Search(ctx, terms, since, p.opts.CatalogLimit)
	if err != nil {
		log.Error("catalog search failed", zap.Error(err))
		t.Fail("job catalog is unavailable")
		return nil, fmt.Errorf("catalog search: %w", err)
	}

	jobsFound := len(catalogHits)
	t.Stage(model.StageSearching, "catalog searched", pctDetectingDone+5,
		&model.ProgressDetails{JobsFound: jobsFound})

	merged := catalogHits
	inserted := 0
	if len(catalogHits) < p.opts.CatalogThreshold && len(p.providers) > 0 {
		configs := buildConfigs(locations, mapping, req.Preferences.RemotePreference, p.opts.MaxConfigs)
		plan := buildPlan(terms, configs, p.opts.MaxProviderCalls)
		calls := assignProviders(plan, p.providers)

		log.Info("fanning out to providers",
			zap.Int("catalog_hits", len(catalogHits)),
			zap.Int("calls", len(calls)),
		)

		searchStart := pctDetectingDone + 5
		raws, failed := p.fanOut(ctx, calls, func(completed, total int) {
			pct := searchStart + (pctSearchingDone-searchStart)*completed/total
			t.Stage(model.StageSearching, "searching job boards", pct,
				&model.ProgressDetails{TotalAPIs: total, CompletedAPIs: completed, JobsFound: jobsFound})
		})
		if failed > 0 {
			log.Warn("some provider calls failed", zap.Int("failed", failed), zap.Int("total", len(calls)))
		}
		jobsFound += len(raws)

		// ── inserting ──────────────────────────────────────────────────
		t.Stage(model.StageInserting, "saving new listings", pctSearchingDone,
			&model.ProgressDetails{JobsFound: jobsFound})

		fresh := p.dedupeNew(ctx, raws)
		fetched, ins := p.ingest(ctx, fresh)
		inserted = ins
		merged = mergeListings(catalogHits, fetched)

		t.Stage(model.StageInserting, "listings saved", pctInsertingDone,
			&model.ProgressDetails{JobsFound: jobsFound, JobsInserted: inserted})
	} else {
		log.Info("catalog yield sufficient, skipping providers",
			zap.Int("catalog_hits", len(catalogHits)),
			zap.Int("threshold", p.opts.CatalogThreshold),
		)
		t.Stage(model.StageInserting, "catalog is fresh enough", pctInsertingDone,
			&model.ProgressDetails{JobsFound: jobsFound})
	}

	// ── scoring ────────────────────────────────────────────────────────
	t.Stage(model.StageScoring, "scoring matches", pctInsertingDone, nil)
	scored, stats := ScoreListings(merged, criteria, req.Preferences, p.opts, time.Now())
	log.Info("scoring finished",
		zap.Int("candidates", stats.Total),
		zap.Int("admitted", stats.Admitted),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("salary_filtered", stats.SalaryFiltered),
		zap.Int("seniority_filtered", stats.SeniorityFiltered),
		zap.Int("remote_filtered", stats.RemoteFiltered),
	)
	t.Stage(model.StageScoring, "matches scored", pctScoringDone,
		&model.ProgressDetails{JobsFound: jobsFound, JobsInserted: inserted, JobsScored: len(scored)})

	// ── cache store + complete ─────────────────────────────────────────
	entry := &model.CacheEntry{
		Recommendations: scored,
		Criteria:        criteria,
		CreatedAt:       time.Now().UTC(),
	}
	if putErr := p.cache.Put(ctx, req.UserID, fp, entry); putErr != nil {
		log.Warn("storing result cache entry failed", zap.Error(putErr))
	}

	result = &model.Result{
		Recommendations: scored,
		SearchTerms:     criteria,
		Cached:          false,
	}
	t.Complete("recommendations ready", result, &model.ProgressDetails{
		JobsFound:    jobsFound,
		JobsInserted: inserted,
		JobsScored:   len(scored),
	})
	return result, nil
}

func (p *Pipeline) resolveLocations(ctx context.Context, log *zap.Logger, locations []string) (*location.Mapping, error) {
	if p.resolver == nil || len(locations) == 0 {
		return &location.Mapping{Countries: map[string]string{}}, nil
	}
	mapping, err := p.resolver.Resolve(ctx, locations)
	if err != nil {
		log.Warn("location resolver failed, continuing without countries", zap.Error(err))
		return nil, err
	}
	return mapping, nil
}
