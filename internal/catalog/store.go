// Package catalog implements the persistent job catalog on PostgreSQL.
//
// Expected table (managed by the platform's migrations):
//
//	job_listings (
//	    id uuid primary key default gen_random_uuid(),
//	    dedup_key text unique not null,
//	    title text, company text, location text, description text,
//	    salary_min double precision, salary_max double precision,
//	    salary_currency text, salary_type text,
//	    remote_type text, employment_type text, experience_level text,
//	    skills text[], posted_at timestamptz, source text, apply_url text,
//	    created_at timestamptz default now()
//	)
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"extendwork/recommend-service/internal/model"
)

const listingColumns = `id, dedup_key, title, company, location, description,
	salary_min, salary_max, salary_currency, salary_type,
	remote_type, employment_type, experience_level, skills, posted_at, source, apply_url`

// Store wraps the pgx pool with catalog queries. Writes are always
// upsert/ignore-duplicate on dedup_key so concurrent pipeline runs ingesting
// the same posting never fail destructively.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewStore returns a configured Store.
func NewStore(pool *pgxpool.Pool, logger *zap.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

// SanitizeTerm escapes LIKE wildcard characters in a user-influenced search
// term so it matches literally inside an ILIKE pattern.
func SanitizeTerm(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(strings.TrimSpace(term))
}

// Search returns listings whose title, company or description contains any
// of the terms (case-insensitive) and whose posted_at falls within the
// window since..now. Listings without posted_at are excluded. Ordered by
// posted_at descending, capped at limit.
func (s *Store) Search(ctx context.Context, terms []string, since time.Time, limit int) ([]model.CanonicalListing, error) {
	patterns := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = SanitizeTerm(t); t != "" {
			patterns = append(patterns, "%"+t+"%")
		}
	}
	if len(patterns) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+listingColumns+`
		 FROM job_listings
		 WHERE (title ILIKE ANY($1) OR company ILIKE ANY($1) OR description ILIKE ANY($1))
		   AND posted_at IS NOT NULL
		   AND posted_at >= $2
		 ORDER BY posted_at DESC
		 LIMIT $3`,
		patterns, since, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search job_listings: %w", err)
	}
	defer rows.Close()

	return scanListings(rows)
}

// ExistingKeys returns which of the given dedup keys are already present.
func (s *Store) ExistingKeys(ctx context.Context, keys []string) (map[string]struct{}, error) {
	if len(keys) == 0 {
		return map[string]struct{}{}, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT dedup_key FROM job_listings WHERE dedup_key = ANY($1)`, keys)
	if err != nil {
		return nil, fmt.Errorf("query existing keys: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]struct{})
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan dedup key: %w", err)
		}
		existing[k] = struct{}{}
	}
	return existing, rows.Err()
}

// UpsertBatch inserts the listings in one pgx batch with
// ON CONFLICT (dedup_key) DO NOTHING semantics. Returns how many rows were
// actually inserted (duplicates are silently skipped).
func (s *Store) UpsertBatch(ctx context.Context, listings []model.CanonicalListing) (int, error) {
	if len(listings) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, l := range listings {
		batch.Queue(
			`INSERT INTO job_listings
			   (dedup_key, title, company, location, description,
			    salary_min, salary_max, salary_currency, salary_type,
			    remote_type, employment_type, experience_level, skills, posted_at, source, apply_url)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
			 ON CONFLICT (dedup_key) DO NOTHING`,
			l.DedupKey, l.Title, l.Company, l.Location, l.Description,
			nullFloat(l.SalaryMin), nullFloat(l.SalaryMax), nullStr(l.SalaryCurrency), nullStr(l.SalaryType),
			nullStr(l.RemoteType), nullStr(l.EmploymentType), nullStr(l.ExperienceLevel),
			l.Skills, l.PostedAt, l.Source, nullStr(l.ApplyURL),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	inserted := 0
	for range listings {
		tag, err := br.Exec()
		if err != nil {
			return inserted, fmt.Errorf("batch insert: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}

	return inserted, nil
}

// FetchByKeys returns canonical records (with store-assigned ids) for the
// given dedup keys.
func (s *Store) FetchByKeys(ctx context.Context, keys []string) ([]model.CanonicalListing, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+listingColumns+` FROM job_listings WHERE dedup_key = ANY($1)`, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch by keys: %w", err)
	}
	defer rows.Close()

	return scanListings(rows)
}

// DeleteOlderThan removes listings posted before cutoff, plus undated rows
// created before cutoff. Returns the number of rows removed.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM job_listings
		 WHERE (posted_at IS NOT NULL AND posted_at < $1)
		    OR (posted_at IS NULL AND created_at < $1)`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("delete old listings: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanListings(rows pgx.Rows) ([]model.CanonicalListing, error) {
	var listings []model.CanonicalListing
	for rows.Next() {
		var (
			l                    model.CanonicalListing
			salaryMin, salaryMax *float64
			currency, salaryType *string
			remote, employment   *string
			level, applyURL      *string
		)
		if err := rows.Scan(
			&l.ID, &l.DedupKey, &l.Title, &l.Company, &l.Location, &l.Description,
			&salaryMin, &salaryMax, &currency, &salaryType,
			&remote, &employment, &level, &l.Skills, &l.PostedAt, &l.Source, &applyURL,
		); err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		l.SalaryMin = deref(salaryMin)
		l.SalaryMax = deref(salaryMax)
		l.SalaryCurrency = derefStr(currency)
		l.SalaryType = derefStr(salaryType)
		l.RemoteType = derefStr(remote)
		l.EmploymentType = derefStr(employment)
		l.ExperienceLevel = derefStr(level)
		l.ApplyURL = derefStr(applyURL)
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func nullFloat(f float64) *float64 {
	if f == 0 {
		return nil
	}
	return &f
}

func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
