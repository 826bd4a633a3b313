package recommend

import (
	"context"

	"go.uber.org/zap"

	"extendwork/recommend-service/internal/fingerprint"
	"extendwork/recommend-service/internal/model"
)

// keyedListing pairs a raw listing with its computed dedup key. The key map
// built here is scoped to one pipeline run and never shared across requests.
type keyedListing struct {
	Key string
	Raw model.RawListing
}

// dedupeNew filters freshly fetched raw listings down to the ones whose
// dedup key is not yet present in the catalog, also collapsing duplicates
// within the batch itself (first occurrence wins). If the existence check
// fails, everything is passed through: the upsert's ignore-duplicate policy
// still guarantees no second canonical record is created.
func (p *Pipeline) dedupeNew(ctx context.Context, raws []model.RawListing) []keyedListing {
	if len(raws) == 0 {
		return nil
	}

	byKey := make(map[string]struct{}, len(raws))
	keyed := make([]keyedListing, 0, len(raws))
	keys := make([]string, 0, len(raws))
	for _, raw := range raws {
		key := fingerprint.DedupKey(raw.Title, raw.Company, raw.Location)
		if _, dup := byKey[key]; dup {
			continue
		}
		byKey[key] = struct{}{}
		keyed = append(keyed, keyedListing{Key: key, Raw: raw})
		keys = append(keys, key)
	}

	existing, err := p.store.ExistingKeys(ctx, keys)
	if err != nil {
		p.logger.Warn("existing-key lookup failed, relying on upsert conflict policy",
			zap.Int("candidates", len(keyed)),
			zap.Error(err),
		)
		return keyed
	}

	fresh := keyed[:0]
	for _, k := range keyed {
		if _, known := existing[k.Key]; !known {
			fresh = append(fresh, k)
		}
	}
	return fresh
}
