// Package location maps free-text locations to 2-letter country codes.
package location

import "context"

// Mapping is the result of resolving a batch of location strings.
type Mapping struct {
	// Countries maps each input location to a lower-case ISO 3166-1 alpha-2
	// code; unresolvable locations are absent.
	Countries map[string]string
	// Primary is the resolver's best guess at the user's own country, empty
	// when unknown.
	Primary string
}

// Resolver resolves location strings to country codes. Implementations are
// expected to degrade gracefully: the pipeline treats a resolver failure as
// an empty mapping, never as a fatal error.
type Resolver interface {
	Resolve(ctx context.Context, locations []string) (*Mapping, error)
}
