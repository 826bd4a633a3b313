// Package provider implements clients for external job-search services.
package provider

import (
	"context"

	"extendwork/recommend-service/internal/model"
)

// Query is one provider search request.
type Query struct {
	Keywords string
	Location string
	Country  string // 2-letter code, optional
}

// Provider is an external job-search service. Implementations must be safe
// for concurrent use: the pipeline issues up to 6 calls at once.
type Provider interface {
	Name() string
	Search(ctx context.Context, q Query) ([]model.RawListing, error)
}
