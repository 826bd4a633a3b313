package recommend

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"extendwork/recommend-service/internal/location"
	"extendwork/recommend-service/internal/model"
	"extendwork/recommend-service/internal/provider"
)

// locationPlaceholders are values that carry no geographic information and
// must never reach the location resolver.
var locationPlaceholders = map[string]struct{}{
	"remote": {}, "anywhere": {}, "any": {}, "flexible": {},
	"worldwide": {}, "n/a": {}, "none": {}, "unknown": {},
}

// candidateLocations picks up to two preferred locations plus the CV
// location, excluding placeholders and strings shorter than 3 characters.
func candidateLocations(profile model.Profile, prefs model.Preferences) []string {
	var out []string
	add := func(loc string) {
		loc = strings.TrimSpace(loc)
		if len(loc) < 3 {
			return
		}
		if _, placeholder := locationPlaceholders[strings.ToLower(loc)]; placeholder {
			return
		}
		for _, existing := range out {
			if strings.EqualFold(existing, loc) {
				return
			}
		}
		out = append(out, loc)
	}

	for i, loc := range prefs.TargetLocations {
		if i == 2 {
			break
		}
		add(loc)
	}
	add(profile.Location)

	return out
}

// searchConfig is one (location, country) combination to query providers
// with.
type searchConfig struct {
	Location string
	Country  string
}

// buildConfigs turns resolved locations into provider search configurations,
// adding "remote in the user's country" and, when the user is not in the US,
// "remote in the US". The remote extras apply only to users open to remote
// work. Configurations
// are deduplicated by (location, country).
func buildConfigs(locations []string, mapping *location.Mapping, remotePref string, max int) []searchConfig {
	if mapping == nil {
		mapping = &location.Mapping{Countries: map[string]string{}}
	}

	var configs []searchConfig
	seen := make(map[string]struct{})
	add := func(cfg searchConfig) {
		key := strings.ToLower(cfg.Location) + "|" + cfg.Country
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		configs = append(configs, cfg)
	}

	for _, loc := range locations {
		// Unresolved locations are still searchable; the country is just
		// left to the provider's default.
		add(searchConfig{Location: loc, Country: mapping.Countries[loc]})
	}

	if remotePref == model.RemoteAny || remotePref == model.RemoteRemote || remotePref == "" {
		add(searchConfig{Location: model.RemoteRemote, Country: mapping.Primary})
		if mapping.Primary != "us" {
			add(searchConfig{Location: model.RemoteRemote, Country: "us"})
		}
	}

	if len(configs) > max {
		configs = configs[:max]
	}
	return configs
}

// buildPlan crosses the first two search terms with the first three
// configurations, capped at maxCalls queries.
func buildPlan(terms []string, configs []searchConfig, maxCalls int) []provider.Query {
	if len(terms) > 2 {
		terms = terms[:2]
	}
	if len(configs) > 3 {
		configs = configs[:3]
	}

	var plan []provider.Query
	for _, term := range terms {
		for _, cfg := range configs {
			if len(plan) == maxCalls {
				return plan
			}
			plan = append(plan, provider.Query{
				Keywords: term,
				Location: cfg.Location,
				Country:  cfg.Country,
			})
		}
	}
	return plan
}

// providerCall binds one planned query to the provider that will serve it.
type providerCall struct {
	Query    provider.Query
	Provider provider.Provider
}

// assignProviders distributes the plan round-robin across the configured
// providers.
func assignProviders(plan []provider.Query, providers []provider.Provider) []providerCall {
	if len(providers) == 0 {
		return nil
	}
	calls := make([]providerCall, 0, len(plan))
	for i, q := range plan {
		calls = append(calls, providerCall{Query: q, Provider: providers[i%len(providers)]})
	}
	return calls
}

// fanOut runs all calls concurrently and accumulates results from fulfilled
// calls only. A rejected call is logged and counted, never fatal, and never
// cancels its siblings. onDone is invoked after each call completes, in
// completion order.
func (p *Pipeline) fanOut(ctx context.Context, calls []providerCall, onDone func(completed, total int)) (listings []model.RawListing, failed int) {
	if len(calls) == 0 {
		return nil, 0
	}

	type settled struct {
		call     providerCall
		listings []model.RawListing
		err      error
	}

	results := make(chan settled, len(calls))
	var wg sync.WaitGroup
	for _, call := range calls {
		wg.Add(1)
		go func(call providerCall) {
			defer wg.Done()
			found, err := call.Provider.Search(ctx, call.Query)
			results <- settled{call: call, listings: found, err: err}
		}(call)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for r := range results {
		completed++
		if r.err != nil {
			failed++
			p.logger.Warn("provider call failed",
				zap.String("provider", r.call.Provider.Name()),
				zap.String("keywords", r.call.Query.Keywords),
				zap.String("location", r.call.Query.Location),
				zap.Error(r.err),
			)
		} else {
			listings = append(listings, r.listings...)
			p.logger.Debug("provider call completed",
				zap.String("provider", r.call.Provider.Name()),
				zap.String("keywords", r.call.Query.Keywords),
				zap.String("location", r.call.Query.Location),
				zap.Int("results", len(r.listings)),
			)
		}
		if onDone != nil {
			onDone(completed, len(calls))
		}
	}

	return listings, failed
}
