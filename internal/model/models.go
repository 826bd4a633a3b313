// Package model defines shared data structures for the recommendation service.
package model

import "time"

// Remote preference / remote type values.
const (
	RemoteAny    = "any"
	RemoteRemote = "remote"
	RemoteHybrid = "hybrid"
	RemoteOnsite = "onsite"
)

// Experience levels.
const (
	LevelJunior = "junior"
	LevelMid    = "mid"
	LevelSenior = "senior"
)

// ExperienceEntry is one position from the candidate's CV.
type ExperienceEntry struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Description string `json:"description,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
}

// Profile is the candidate snapshot the pipeline works from. Only the
// identity block, skills and experience entries participate in the cache
// fingerprint.
type Profile struct {
	FullName   string            `json:"fullName"`
	Headline   string            `json:"headline,omitempty"`
	Summary    string            `json:"summary,omitempty"`
	Location   string            `json:"location,omitempty"`
	Skills     []string          `json:"skills,omitempty"`
	Experience []ExperienceEntry `json:"experience,omitempty"`
}

// Preferences are the user-owned search preferences. Read-only input to the
// pipeline; edits change the fingerprint and thereby bust the cache.
type Preferences struct {
	TargetRoles      []string `json:"targetRoles,omitempty"`
	TargetLocations  []string `json:"targetLocations,omitempty"`
	RemotePreference string   `json:"remotePreference,omitempty"` // any|remote|hybrid|onsite
	SalaryMin        float64  `json:"salaryMin,omitempty"`
	SalaryMax        float64  `json:"salaryMax,omitempty"`
	SalaryCurrency   string   `json:"salaryCurrency,omitempty"`
	RequiredSkills   []string `json:"requiredSkills,omitempty"`
	PreferredSkills  []string `json:"preferredSkills,omitempty"`
	EmploymentTypes  []string `json:"employmentTypes,omitempty"`
	ExperienceLevel  string   `json:"experienceLevel,omitempty"` // junior|mid|senior
}

// SearchCriteria is produced once per request by the profile analyzer and
// immutable thereafter.
type SearchCriteria struct {
	SearchQueries   []string `json:"searchQueries"`  // 1–4 short queries
	RoleTitles      []string `json:"roleTitles"`     // alternative role titles
	IndustryDomain  string   `json:"industryDomain"` // empty when unknown
	YearsExperience int      `json:"yearsExperience"`
	Skills          []string `json:"skills"`
	PrimarySkills   []string `json:"primarySkills"` // exactly 5
	SecondarySkills []string `json:"secondarySkills"`
	ExperienceLevel string   `json:"experienceLevel"` // junior|mid|senior
}

// RawListing is a provider-sourced job posting. It exists only during a
// single pipeline run until ingested into the catalog.
type RawListing struct {
	Title           string     `json:"title"`
	Company         string     `json:"company"`
	Location        string     `json:"location"`
	Description     string     `json:"description"`
	SalaryMin       float64    `json:"salaryMin,omitempty"`
	SalaryMax       float64    `json:"salaryMax,omitempty"`
	SalaryCurrency  string     `json:"salaryCurrency,omitempty"`
	RemoteType      string     `json:"remoteType,omitempty"` // remote|hybrid|onsite
	EmploymentType  string     `json:"employmentType,omitempty"`
	ExperienceLevel string     `json:"experienceLevel,omitempty"`
	Skills          []string   `json:"skills,omitempty"`
	PostedAt        *time.Time `json:"postedAt,omitempty"`
	Source          string     `json:"source"`
	ApplyURL        string     `json:"applyUrl,omitempty"`
}

// CanonicalListing is a RawListing persisted in the catalog with a
// store-assigned id and its dedup key.
type CanonicalListing struct {
	ID         string `json:"id"`
	DedupKey   string `json:"-"`
	SalaryType string `json:"salaryType,omitempty"` // monthly|yearly|hourly
	RawListing
}

// ScoredListing is a CanonicalListing plus its compatibility score. Created
// fresh per request; never persisted beyond the cache entry.
type ScoredListing struct {
	CanonicalListing
	CompatibilityScore int `json:"compatibilityScore"` // 0–100
}

// CacheEntry is one cached recommendation bundle for a (user, fingerprint)
// pair. Expiry is enforced by the cache TTL.
type CacheEntry struct {
	Recommendations []ScoredListing `json:"recommendations"`
	Criteria        *SearchCriteria `json:"criteria,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Progress stages in pipeline order.
const (
	StageAuth      = "auth"
	StageAnalyzing = "analyzing"
	StageDetecting = "detecting"
	StageSearching = "searching"
	StageInserting = "inserting"
	StageScoring   = "scoring"
	StageComplete  = "complete"
	StageError     = "error"
)

// ProgressDetails carries optional per-stage counters.
type ProgressDetails struct {
	TotalAPIs     int    `json:"totalApis,omitempty"`
	CompletedAPIs int    `json:"completedApis,omitempty"`
	JobsFound     int    `json:"jobsFound,omitempty"`
	JobsInserted  int    `json:"jobsInserted,omitempty"`
	JobsScored    int    `json:"jobsScored,omitempty"`
	Cached        bool   `json:"cached,omitempty"`
	RunID         string `json:"runId,omitempty"`
}

// Result is the final payload of a pipeline run.
type Result struct {
	Recommendations []ScoredListing `json:"recommendations"`
	SearchTerms     *SearchCriteria `json:"searchTerms,omitempty"`
	Cached          bool            `json:"cached"`
}

// ProgressEvent is one record on the progress stream. Consumed immediately
// by the transport layer; never persisted.
type ProgressEvent struct {
	Stage    string           `json:"stage"`
	Message  string           `json:"message"`
	Progress int              `json:"progress"` // 0–100, non-decreasing per run
	Details  *ProgressDetails `json:"details,omitempty"`
	Data     *Result          `json:"data,omitempty"`
	Error    string           `json:"error,omitempty"`
}
