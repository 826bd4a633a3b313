package recommend

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"extendwork/recommend-service/internal/fingerprint"
	"extendwork/recommend-service/internal/model"
)

// Score factor weights. They sum to 1.
const (
	weightSkill      = 0.35
	weightExperience = 0.20
	weightTitle      = 0.15
	weightSalary     = 0.10
	weightLocation   = 0.10
	weightRecency    = 0.05
	weightEmployment = 0.05
)

// FilterStats reports what the admission filter dropped. Returned by the
// scoring stage instead of mutated in place so the stage stays testable.
type FilterStats struct {
	Total              int
	SalaryFiltered     int
	SeniorityFiltered  int
	EmploymentFiltered int
	RemoteFiltered     int
	UnpaidFiltered     int
	Duplicates         int
	Admitted           int
}

var (
	seniorWordRe  = regexp.MustCompile(`(?i)\b(senior|sr\.?|lead|principal|staff|head|director|architect)\b`)
	seniorRoleRe  = regexp.MustCompile(`(?i)\b(senior|sr\.?)[\s-]+(software\s+)?(developer|engineer|designer)\b`)
	unpaidRe      = regexp.MustCompile(`(?i)\b(unpaid|volunteer|internship|intern)\b`)
	entryLevelRe  = regexp.MustCompile(`(?i)\b(entry[\s-]?level|new\s+grad(uate)?)\b`)
	relocationRe  = regexp.MustCompile(`(?i)(relocation\s+(is\s+)?required|must\s+relocate|on-?site\s+only|no\s+remote)`)
	requiredYears = regexp.MustCompile(`(?i)(\d{1,2})\s*\+?\s*(?:years?|yrs?)`)
)

// ScoreListings applies the admission filter, dedups the candidate set,
// computes the weighted compatibility score per listing, and returns the
// result sorted by score (ties broken by recency) and truncated to
// opts.MaxResults.
func ScoreListings(listings []model.CanonicalListing, criteria *model.SearchCriteria, prefs model.Preferences, opts Options, now time.Time) ([]model.ScoredListing, FilterStats) {
	stats := FilterStats{Total: len(listings)}

	userLevel := strings.ToLower(prefs.ExperienceLevel)
	if userLevel == "" && criteria != nil {
		userLevel = strings.ToLower(criteria.ExperienceLevel)
	}

	seen := make(map[string]struct{}, len(listings))
	scored := make([]model.ScoredListing, 0, len(listings))

	for _, l := range listings {
		if dropped := admit(l, prefs, userLevel, opts, &stats); dropped {
			continue
		}

		key := fingerprint.DedupKey(l.Title, l.Company, "")
		if _, dup := seen[key]; dup {
			stats.Duplicates++
			continue
		}
		seen[key] = struct{}{}

		stats.Admitted++
		scored = append(scored, model.ScoredListing{
			CanonicalListing:   l,
			CompatibilityScore: scoreListing(l, criteria, prefs, userLevel, now),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].CompatibilityScore != scored[j].CompatibilityScore {
			return scored[i].CompatibilityScore > scored[j].CompatibilityScore
		}
		return postedAfter(scored[i].PostedAt, scored[j].PostedAt)
	})

	if len(scored) > opts.MaxResults {
		scored = scored[:opts.MaxResults]
	}
	return scored, stats
}

// admit applies the hard filters. It returns true when the listing must be
// dropped and bumps the matching stats counter.
func admit(l model.CanonicalListing, prefs model.Preferences, userLevel string, opts Options, stats *FilterStats) bool {
	if prefs.SalaryMin > 0 && l.SalaryMax > 0 && l.SalaryMax < opts.SalaryFloorRatio*prefs.SalaryMin {
		stats.SalaryFiltered++
		return true
	}

	if userLevel == model.LevelJunior && (seniorWordRe.MatchString(l.Title) || seniorRoleRe.MatchString(l.Title)) {
		stats.SeniorityFiltered++
		return true
	}

	if len(prefs.EmploymentTypes) > 0 {
		if t := NormalizeEmployment(l.EmploymentType); t != "" && !employmentAllowed(t, prefs.EmploymentTypes) {
			stats.EmploymentFiltered++
			return true
		}
	}

	remotePref := strings.ToLower(prefs.RemotePreference)
	listingRemote := strings.ToLower(l.RemoteType)
	if (remotePref == model.RemoteRemote && listingRemote == model.RemoteOnsite) ||
		(remotePref == model.RemoteOnsite && listingRemote == model.RemoteRemote) {
		stats.RemoteFiltered++
		return true
	}

	if userLevel != model.LevelJunior && unpaidRe.MatchString(l.Title) {
		stats.UnpaidFiltered++
		return true
	}

	return false
}

// scoreListing computes the weighted 0–100 compatibility score.
func scoreListing(l model.CanonicalListing, criteria *model.SearchCriteria, prefs model.Preferences, userLevel string, now time.Time) int {
	score := weightSkill*float64(skillScore(l, criteria)) +
		weightExperience*float64(experienceScore(userLevel, l.ExperienceLevel)) +
		weightTitle*float64(titleScore(l.Title, criteria, prefs)) +
		weightSalary*float64(salaryScore(l, prefs)) +
		weightLocation*float64(locationScore(l, prefs)) +
		weightRecency*float64(recencyScore(l.PostedAt, now)) +
		weightEmployment*float64(employmentScore(l.EmploymentType, prefs.EmploymentTypes))

	score -= float64(penalty(l, criteria, prefs, userLevel))

	return int(math.Round(math.Max(0, math.Min(100, score))))
}

// skillScore: with explicit listing skills, primary-skill hits count double
// and the total is normalized by the listing's skill count; without them the
// description is scanned for user skills at 15 points per distinct match.
func skillScore(l model.CanonicalListing, criteria *model.SearchCriteria) int {
	if criteria == nil {
		return 0
	}

	if len(l.Skills) == 0 {
		desc := strings.ToLower(l.Description)
		score := 0
		for _, skill := range criteria.Skills {
			skill = strings.ToLower(strings.TrimSpace(skill))
			if skill != "" && strings.Contains(desc, skill) {
				score += 15
			}
		}
		return min(score, 100)
	}

	points := 0
	for _, skill := range l.Skills {
		switch {
		case containsFold(criteria.PrimarySkills, skill):
			points += 2
		case containsFold(criteria.Skills, skill):
			points++
		}
	}
	normalized := float64(points) / float64(2*len(l.Skills)) * 100
	return min(int(normalized), 100)
}

// experiencePenaltyTable holds the asymmetric level-mismatch scores.
var experiencePenaltyTable = map[[2]string]int{
	{model.LevelJunior, model.LevelMid}:    60,
	{model.LevelJunior, model.LevelSenior}: 20,
	{model.LevelMid, model.LevelJunior}:    50,
	{model.LevelMid, model.LevelSenior}:    60,
	{model.LevelSenior, model.LevelJunior}: 30,
	{model.LevelSenior, model.LevelMid}:    70,
}

func experienceScore(userLevel, listingLevel string) int {
	listingLevel = strings.ToLower(strings.TrimSpace(listingLevel))
	if listingLevel == "" {
		return 70
	}
	if userLevel == listingLevel {
		return 100
	}
	if s, ok := experiencePenaltyTable[[2]string{userLevel, listingLevel}]; ok {
		return s
	}
	return 50
}

// genericRoleWords are role nouns shared across job families; a match on one
// of these is weaker evidence than matching the variant's specific words.
var genericRoleWords = []string{
	"developer", "engineer", "designer", "manager", "analyst",
	"architect", "consultant", "specialist", "administrator", "scientist",
}

func titleScore(title string, criteria *model.SearchCriteria, prefs model.Preferences) int {
	titleLower := strings.ToLower(title)

	var variants []string
	if criteria != nil {
		variants = append(variants, criteria.RoleTitles...)
	}
	variants = append(variants, prefs.TargetRoles...)

	best := 30
	for _, variant := range variants {
		words := significantWords(variant)
		if len(words) == 0 {
			continue
		}
		matched := 0
		for _, w := range words {
			if strings.Contains(titleLower, w) {
				matched++
			}
		}
		ratio := float64(matched) / float64(len(words))

		s := 30
		switch {
		case ratio >= 0.7:
			s = 100
		case ratio >= 0.5:
			s = 80
		default:
			if sharesGenericRole(titleLower, strings.ToLower(variant)) {
				s = 60
			}
		}
		if s > best {
			best = s
		}
	}
	return best
}

func significantWords(s string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(s)) {
		if len(w) > 2 {
			out = append(out, w)
		}
	}
	return out
}

func sharesGenericRole(title, variant string) bool {
	for _, w := range genericRoleWords {
		if strings.Contains(title, w) && strings.Contains(variant, w) {
			return true
		}
	}
	return false
}

func salaryScore(l model.CanonicalListing, prefs model.Preferences) int {
	if prefs.SalaryMin <= 0 || (l.SalaryMin <= 0 && l.SalaryMax <= 0) {
		return 70 // neutral: nothing to compare
	}

	lMin, lMax := l.SalaryMin, l.SalaryMax
	if lMax <= 0 {
		lMax = lMin
	}
	if lMin <= 0 {
		lMin = lMax
	}

	switch {
	case lMin >= prefs.SalaryMin:
		return 100
	case lMax >= prefs.SalaryMin:
		return 80
	case lMax >= 0.8*prefs.SalaryMin:
		return 50
	default:
		return 20
	}
}

// locationScoreTable maps (preference, listing remote type) to a score; a
// missing pair falls back to a substring match against the target locations.
var locationScoreTable = map[[2]string]int{
	{model.RemoteRemote, model.RemoteRemote}: 100,
	{model.RemoteRemote, model.RemoteHybrid}: 70,
	{model.RemoteRemote, model.RemoteOnsite}: 20,
	{model.RemoteOnsite, model.RemoteOnsite}: 100,
	{model.RemoteOnsite, model.RemoteHybrid}: 70,
	{model.RemoteOnsite, model.RemoteRemote}: 20,
	{model.RemoteHybrid, model.RemoteHybrid}: 100,
	{model.RemoteHybrid, model.RemoteRemote}: 70,
	{model.RemoteHybrid, model.RemoteOnsite}: 70,
}

func locationScore(l model.CanonicalListing, prefs model.Preferences) int {
	pref := strings.ToLower(prefs.RemotePreference)
	listingRemote := strings.ToLower(l.RemoteType)

	if s, ok := locationScoreTable[[2]string{pref, listingRemote}]; ok {
		return s
	}

	loc := strings.ToLower(l.Location)
	for _, target := range prefs.TargetLocations {
		target = strings.ToLower(strings.TrimSpace(target))
		if target != "" && (strings.Contains(loc, target) || strings.Contains(target, loc) && loc != "") {
			return 100
		}
	}
	return 70
}

func recencyScore(postedAt *time.Time, now time.Time) int {
	if postedAt == nil {
		return 50
	}
	age := now.Sub(*postedAt)
	switch {
	case age <= 24*time.Hour:
		return 100
	case age <= 3*24*time.Hour:
		return 90
	case age <= 7*24*time.Hour:
		return 80
	case age <= 14*24*time.Hour:
		return 60
	case age <= 30*24*time.Hour:
		return 40
	default:
		return 20
	}
}

func employmentScore(listingType string, preferred []string) int {
	if len(preferred) == 0 {
		return 70
	}
	t := NormalizeEmployment(listingType)
	if t == "" {
		return 60
	}
	if employmentAllowed(t, preferred) {
		return 100
	}
	return 40 // soft mismatch: the hard filter already passed it
}

// penalty sums the post-score adjustments.
func penalty(l model.CanonicalListing, criteria *model.SearchCriteria, prefs model.Preferences, userLevel string) int {
	total := 0

	if criteria != nil && criteria.YearsExperience > 0 {
		if years, ok := requiredYearsFromDescription(l.Description); ok &&
			float64(years) > 1.5*float64(criteria.YearsExperience) {
			total += 15
		}
	}

	if strings.ToLower(prefs.RemotePreference) == model.RemoteRemote && relocationRe.MatchString(l.Description) {
		total += 20
	}

	if userLevel == model.LevelSenior && entryLevelRe.MatchString(l.Title) {
		total += 10
	}

	return total
}

func requiredYearsFromDescription(description string) (int, bool) {
	m := requiredYears.FindStringSubmatch(description)
	if m == nil {
		return 0, false
	}
	years, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return years, true
}

// NormalizeEmployment collapses employment-type spellings onto a small
// vocabulary; unknown values normalize to "".
func NormalizeEmployment(t string) string {
	switch strings.ToLower(strings.ReplaceAll(strings.ReplaceAll(strings.TrimSpace(t), "_", "-"), " ", "-")) {
	case "full-time", "fulltime", "permanent":
		return "full-time"
	case "part-time", "parttime":
		return "part-time"
	case "contract", "b2b", "freelance", "temporary":
		return "contract"
	case "internship", "intern":
		return "internship"
	default:
		return ""
	}
}

func employmentAllowed(normalized string, preferred []string) bool {
	for _, p := range preferred {
		if NormalizeEmployment(p) == normalized {
			return true
		}
	}
	return false
}

// postedAfter orders timestamps descending with unknown values last.
func postedAfter(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.After(*b)
	}
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(needle)) {
			return true
		}
	}
	return false
}
