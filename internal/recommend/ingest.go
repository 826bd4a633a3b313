package recommend

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"extendwork/recommend-service/internal/model"
)

// Canonical defaults applied at ingestion time.
const (
	defaultCurrency   = "PLN"
	defaultSalaryType = "monthly"
)

// toCanonical maps a new raw listing to its canonical catalog shape.
func toCanonical(k keyedListing) model.CanonicalListing {
	l := model.CanonicalListing{
		DedupKey:   k.Key,
		SalaryType: defaultSalaryType,
		RawListing: k.Raw,
	}
	if l.SalaryCurrency == "" && (l.SalaryMin > 0 || l.SalaryMax > 0) {
		l.SalaryCurrency = defaultCurrency
	}
	l.RemoteType = normalizeRemote(l.RemoteType)
	l.EmploymentType = NormalizeEmployment(l.EmploymentType)
	return l
}

// normalizeRemote maps a raw remote flag onto the catalog vocabulary;
// anything unrecognized becomes "any".
func normalizeRemote(remote string) string {
	switch strings.ToLower(strings.TrimSpace(remote)) {
	case model.RemoteRemote:
		return model.RemoteRemote
	case model.RemoteHybrid:
		return model.RemoteHybrid
	case model.RemoteOnsite, "office", "on-site":
		return model.RemoteOnsite
	default:
		return model.RemoteAny
	}
}

// ingest upserts the new listings in fixed-size batches and reads back the
// canonical records with store-assigned ids. Ingestion is best-effort: a
// failed upsert or fetch-back batch is logged and skipped, never retried
// and never pipeline-fatal.
func (p *Pipeline) ingest(ctx context.Context, fresh []keyedListing) (merged []model.CanonicalListing, inserted int) {
	if len(fresh) == 0 {
		return nil, 0
	}

	var ingestedKeys []string
	for start := 0; start < len(fresh); start += p.opts.IngestBatchSize {
		end := min(start+p.opts.IngestBatchSize, len(fresh))

		batch := make([]model.CanonicalListing, 0, end-start)
		keys := make([]string, 0, end-start)
		for _, k := range fresh[start:end] {
			batch = append(batch, toCanonical(k))
			keys = append(keys, k.Key)
		}

		n, err := p.store.UpsertBatch(ctx, batch)
		if err != nil {
			p.logger.Warn("upsert batch failed, skipping",
				zap.Int("batch_size", len(batch)),
				zap.Error(err),
			)
			continue
		}
		inserted += n
		ingestedKeys = append(ingestedKeys, keys...)
	}

	for start := 0; start < len(ingestedKeys); start += p.opts.IngestBatchSize {
		end := min(start+p.opts.IngestBatchSize, len(ingestedKeys))

		fetched, err := p.store.FetchByKeys(ctx, ingestedKeys[start:end])
		if err != nil {
			p.logger.Warn("fetch-back batch failed, skipping",
				zap.Int("batch_size", end-start),
				zap.Error(err),
			)
			continue
		}
		merged = append(merged, fetched...)
	}

	return merged, inserted
}

// mergeListings concatenates the catalog hits and freshly ingested records,
// keeping the first occurrence per dedup key.
func mergeListings(catalog, fetched []model.CanonicalListing) []model.CanonicalListing {
	merged := make([]model.CanonicalListing, 0, len(catalog)+len(fetched))
	seen := make(map[string]struct{}, len(catalog)+len(fetched))
	for _, group := range [][]model.CanonicalListing{catalog, fetched} {
		for _, l := range group {
			if _, dup := seen[l.DedupKey]; dup {
				continue
			}
			seen[l.DedupKey] = struct{}{}
			merged = append(merged, l)
		}
	}
	return merged
}
