// Package fingerprint produces the deterministic content hashes used by the
// pipeline: the (profile, preferences) fingerprint keying the result cache
// and the normalized dedup key identifying one real-world job posting.
package fingerprint

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"extendwork/recommend-service/internal/model"
)

// profileSnapshot holds exactly the fields whose change must invalidate a
// cached recommendation bundle. Slices are sorted before hashing so the
// fingerprint does not depend on input ordering.
type profileSnapshot struct {
	FullName   string                  `json:"fullName"`
	Headline   string                  `json:"headline"`
	Summary    string                  `json:"summary"`
	Location   string                  `json:"location"`
	Skills     []string                `json:"skills"`
	Experience []model.ExperienceEntry `json:"experience"`

	TargetRoles      []string `json:"targetRoles"`
	RemotePreference string   `json:"remotePreference"`
	SalaryMin        float64  `json:"salaryMin"`
	EmploymentTypes  []string `json:"employmentTypes"`
}

// Profile returns a fixed-length hex fingerprint of the hash-relevant parts
// of the profile and preferences. Pure and deterministic.
func Profile(p model.Profile, prefs model.Preferences) string {
	snap := profileSnapshot{
		FullName:         strings.TrimSpace(p.FullName),
		Headline:         strings.TrimSpace(p.Headline),
		Summary:          strings.TrimSpace(p.Summary),
		Location:         strings.TrimSpace(p.Location),
		Skills:           sortedCopy(p.Skills),
		Experience:       append([]model.ExperienceEntry(nil), p.Experience...),
		TargetRoles:      sortedCopy(prefs.TargetRoles),
		RemotePreference: strings.ToLower(strings.TrimSpace(prefs.RemotePreference)),
		SalaryMin:        prefs.SalaryMin,
		EmploymentTypes:  sortedCopy(prefs.EmploymentTypes),
	}

	payload, _ := json.Marshal(snap)
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("%x", sum[:])
}

func sortedCopy(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// legalSuffixes are common legal-entity endings stripped from company names
// so that "Acme Inc." and "acme inc" collapse to the same dedup key.
var legalSuffixes = []string{
	"incorporated", "corporation", "limited", "company",
	"inc", "llc", "ltd", "gmbh", "corp", "plc", "sas", "bv", "oy",
	"sp z oo", "sp zoo", "sa", "co",
}

// DedupKey derives the normalized identity string for a job posting from its
// title, company and location. Referentially transparent: identical postings
// from different providers collapse to the same key with high probability.
func DedupKey(title, company, location string) string {
	t := alnumOnly(strings.ToLower(title))
	c := stripLegalSuffix(normalizeWords(company))
	l := normalizeWords(location)
	return t + "|" + c + "|" + l
}

// alnumOnly drops every non-alphanumeric rune.
func alnumOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalizeWords lower-cases, replaces punctuation with spaces and collapses
// whitespace.
func normalizeWords(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func stripLegalSuffix(company string) string {
	for changed := true; changed; {
		changed = false
		for _, suffix := range legalSuffixes {
			if company == suffix {
				continue
			}
			if strings.HasSuffix(company, " "+suffix) {
				company = strings.TrimSpace(strings.TrimSuffix(company, " "+suffix))
				changed = true
			}
		}
	}
	return company
}
