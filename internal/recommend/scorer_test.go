package recommend

import (
	"testing"
	"time"

	"extendwork/recommend-service/internal/model"
)

func ts(daysAgo int) *time.Time {
	t := time.Now().Add(-time.Duration(daysAgo) * 24 * time.Hour)
	return &t
}

func baseCriteria() *model.SearchCriteria {
	return &model.SearchCriteria{
		SearchQueries:   []string{"go developer"},
		RoleTitles:      []string{"Go Developer", "Backend Engineer"},
		YearsExperience: 4,
		Skills:          []string{"go", "postgresql", "redis", "docker", "kubernetes"},
		PrimarySkills:   []string{"go", "postgresql", "redis", "docker", "kubernetes"},
		ExperienceLevel: model.LevelMid,
	}
}

func listing(title string) model.CanonicalListing {
	return model.CanonicalListing{
		ID:       "1",
		DedupKey: "k-" + title,
		RawListing: model.RawListing{
			Title:       title,
			Company:     "Acme",
			Location:    "Warsaw",
			Description: "We use go and postgresql daily.",
			PostedAt:    ts(1),
		},
	}
}

// ── Admission filter ───────────────────────────────────────────────────────

func TestAdmission_JuniorExcludesSeniorTitles(t *testing.T) {
	prefs := model.Preferences{ExperienceLevel: model.LevelJunior}
	criteria := baseCriteria()
	criteria.ExperienceLevel = model.LevelJunior

	in := []model.CanonicalListing{
		listing("Senior Software Engineer"),
		listing("Staff Engineer"),
		listing("Head of Engineering"),
		listing("Junior Frontend Developer"),
	}

	scored, stats := ScoreListings(in, criteria, prefs, DefaultOptions(), time.Now())

	if len(scored) != 1 || scored[0].Title != "Junior Frontend Developer" {
		t.Fatalf("expected only the junior listing to survive, got %v", titles(scored))
	}
	if stats.SeniorityFiltered != 3 {
		t.Errorf("expected 3 seniority-filtered, got %d", stats.SeniorityFiltered)
	}
}

func TestAdmission_SalaryFloor(t *testing.T) {
	prefs := model.Preferences{SalaryMin: 8000, RemotePreference: model.RemoteRemote}

	tooLow := listing("Go Developer")
	tooLow.SalaryMax = 5000 // below 0.7 * 8000
	tooLow.RemoteType = model.RemoteRemote

	acceptable := listing("Backend Engineer")
	acceptable.SalaryMax = 7000 // above the floor, below the preference
	acceptable.RemoteType = model.RemoteRemote

	scored, stats := ScoreListings(
		[]model.CanonicalListing{tooLow, acceptable},
		baseCriteria(), prefs, DefaultOptions(), time.Now())

	if len(scored) != 1 || scored[0].Title != "Backend Engineer" {
		t.Fatalf("expected the underpaying listing dropped, got %v", titles(scored))
	}
	if stats.SalaryFiltered != 1 {
		t.Errorf("expected 1 salary-filtered, got %d", stats.SalaryFiltered)
	}
}

func TestAdmission_RemoteMismatch(t *testing.T) {
	prefs := model.Preferences{RemotePreference: model.RemoteRemote, SalaryMin: 8000}

	onsite := listing("Go Developer")
	onsite.RemoteType = model.RemoteOnsite
	onsite.SalaryMin = 20000
	onsite.SalaryMax = 30000
	onsite.Skills = []string{"go", "postgresql", "redis", "docker", "kubernetes"}

	scored, stats := ScoreListings(
		[]model.CanonicalListing{onsite}, baseCriteria(), prefs, DefaultOptions(), time.Now())

	if len(scored) != 0 {
		t.Fatalf("onsite listing must be excluded for a remote-only user even with perfect salary and skills, got %v", titles(scored))
	}
	if stats.RemoteFiltered != 1 {
		t.Errorf("expected 1 remote-filtered, got %d", stats.RemoteFiltered)
	}
}

func TestAdmission_OnsiteUserExcludesRemote(t *testing.T) {
	prefs := model.Preferences{RemotePreference: model.RemoteOnsite}
	remote := listing("Go Developer")
	remote.RemoteType = model.RemoteRemote

	scored, _ := ScoreListings([]model.CanonicalListing{remote}, baseCriteria(), prefs, DefaultOptions(), time.Now())
	if len(scored) != 0 {
		t.Error("remote listing must be excluded for an onsite-only user")
	}
}

func TestAdmission_EmploymentType(t *testing.T) {
	prefs := model.Preferences{EmploymentTypes: []string{"full-time"}}

	contract := listing("Go Developer")
	contract.EmploymentType = "b2b"
	unknown := listing("Backend Engineer")
	unknown.EmploymentType = "moonlighting" // unknown types are not hard-filtered

	scored, stats := ScoreListings(
		[]model.CanonicalListing{contract, unknown}, baseCriteria(), prefs, DefaultOptions(), time.Now())

	if len(scored) != 1 || scored[0].Title != "Backend Engineer" {
		t.Fatalf("expected only the unknown-type listing to survive, got %v", titles(scored))
	}
	if stats.EmploymentFiltered != 1 {
		t.Errorf("expected 1 employment-filtered, got %d", stats.EmploymentFiltered)
	}
}

func TestAdmission_UnpaidForNonJunior(t *testing.T) {
	prefs := model.Preferences{ExperienceLevel: model.LevelSenior}

	scored, stats := ScoreListings(
		[]model.CanonicalListing{listing("Marketing Internship"), listing("Volunteer Developer")},
		baseCriteria(), prefs, DefaultOptions(), time.Now())

	if len(scored) != 0 {
		t.Fatalf("unpaid listings must be excluded for non-juniors, got %v", titles(scored))
	}
	if stats.UnpaidFiltered != 2 {
		t.Errorf("expected 2 unpaid-filtered, got %d", stats.UnpaidFiltered)
	}
}

func TestAdmission_DuplicateTitleCompanyKeepsFirst(t *testing.T) {
	a := listing("Go Developer")
	a.DedupKey = "a"
	a.Location = "Warsaw"
	b := listing("Go  Developer!") // same title modulo normalization, same company
	b.DedupKey = "b"
	b.Location = "Krakow"

	scored, stats := ScoreListings(
		[]model.CanonicalListing{a, b}, baseCriteria(), model.Preferences{}, DefaultOptions(), time.Now())

	if len(scored) != 1 || scored[0].DedupKey != "a" {
		t.Fatalf("expected first occurrence kept, got %v", scored)
	}
	if stats.Duplicates != 1 {
		t.Errorf("expected 1 duplicate, got %d", stats.Duplicates)
	}
}

// ── Score bounds, factors, penalties ───────────────────────────────────────

func TestScores_AlwaysWithinBounds(t *testing.T) {
	prefs := model.Preferences{
		RemotePreference: model.RemoteRemote,
		SalaryMin:        10000,
		EmploymentTypes:  []string{"full-time"},
	}

	listings := []model.CanonicalListing{listing("Go Developer"), listing("Backend Engineer"), listing("Gardener")}
	perfect := &listings[0]
	perfect.Skills = []string{"go", "postgresql", "redis"}
	perfect.SalaryMin = 15000
	perfect.SalaryMax = 20000
	perfect.RemoteType = model.RemoteRemote
	perfect.EmploymentType = "full-time"
	perfect.ExperienceLevel = model.LevelMid

	awful := &listings[2]
	awful.Description = "Must relocate. 15+ years required. no remote"
	awful.PostedAt = ts(90)

	scored, _ := ScoreListings(listings, baseCriteria(), prefs, DefaultOptions(), time.Now())
	for _, s := range scored {
		if s.CompatibilityScore < 0 || s.CompatibilityScore > 100 {
			t.Errorf("score out of bounds for %q: %d", s.Title, s.CompatibilityScore)
		}
	}
}

func TestScore_PenaltyForExcessiveRequiredYears(t *testing.T) {
	criteria := baseCriteria() // 4 years of experience

	plain := listing("Go Developer")
	demanding := listing("Go Developer")
	demanding.DedupKey = "other"
	demanding.Company = "Other Corp"
	demanding.Description = "We use go and postgresql daily. 10+ years of experience required."

	scored, _ := ScoreListings(
		[]model.CanonicalListing{plain, demanding}, criteria, model.Preferences{}, DefaultOptions(), time.Now())
	if len(scored) != 2 {
		t.Fatalf("expected 2 scored listings, got %d", len(scored))
	}

	byTitle := map[string]int{}
	for _, s := range scored {
		byTitle[s.Company] = s.CompatibilityScore
	}
	if byTitle["Other Corp"] >= byTitle["Acme"] {
		t.Errorf("excessive required years must lower the score: %v", byTitle)
	}
}

func TestScore_RecencyOrderingBreaksTies(t *testing.T) {
	older := listing("Go Developer")
	older.Company = "Old Corp"
	older.DedupKey = "old"
	older.PostedAt = ts(5)

	newer := listing("Go Developer")
	newer.Company = "New Corp"
	newer.DedupKey = "new"
	newer.PostedAt = ts(5) // same recency bucket, same factors otherwise
	*newer.PostedAt = newer.PostedAt.Add(2 * time.Hour)

	scored, _ := ScoreListings(
		[]model.CanonicalListing{older, newer}, baseCriteria(), model.Preferences{}, DefaultOptions(), time.Now())
	if len(scored) != 2 {
		t.Fatalf("expected 2 scored, got %d", len(scored))
	}
	if scored[0].CompatibilityScore == scored[1].CompatibilityScore &&
		scored[0].Company != "New Corp" {
		t.Errorf("equal scores must order by posted-at descending, got %v first", scored[0].Company)
	}
}

func TestScore_SortStrictlyDescending(t *testing.T) {
	strong := listing("Go Developer")
	strong.Skills = []string{"go", "postgresql"}
	weak := listing("Gardener")
	weak.DedupKey = "weak"
	weak.Company = "Garden Co"
	weak.Description = "prune roses"
	weak.PostedAt = ts(29)

	scored, _ := ScoreListings(
		[]model.CanonicalListing{weak, strong}, baseCriteria(), model.Preferences{}, DefaultOptions(), time.Now())
	for i := 1; i < len(scored); i++ {
		if scored[i-1].CompatibilityScore < scored[i].CompatibilityScore {
			t.Errorf("output not sorted by score descending: %d before %d",
				scored[i-1].CompatibilityScore, scored[i].CompatibilityScore)
		}
	}
}

func TestScore_Truncation(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxResults = 2

	in := []model.CanonicalListing{listing("A Developer"), listing("B Developer"), listing("C Developer")}
	for i := range in {
		in[i].DedupKey = in[i].Title
		in[i].Company = in[i].Title + " Co"
	}

	scored, _ := ScoreListings(in, baseCriteria(), model.Preferences{}, opts, time.Now())
	if len(scored) != 2 {
		t.Errorf("expected output truncated to 2, got %d", len(scored))
	}
}

// ── Individual factors ─────────────────────────────────────────────────────

func TestRecencyScore(t *testing.T) {
	now := time.Now()
	cases := []struct {
		daysAgo int
		want    int
	}{
		{0, 100}, {2, 90}, {5, 80}, {10, 60}, {20, 40}, {45, 20},
	}
	for _, c := range cases {
		posted := now.Add(-time.Duration(c.daysAgo)*24*time.Hour + time.Hour)
		if got := recencyScore(&posted, now); got != c.want {
			t.Errorf("recencyScore(%d days) = %d, want %d", c.daysAgo, got, c.want)
		}
	}
	if got := recencyScore(nil, now); got != 50 {
		t.Errorf("recencyScore(nil) = %d, want 50", got)
	}
}

func TestExperienceScore(t *testing.T) {
	cases := []struct {
		user, listing string
		want          int
	}{
		{model.LevelMid, model.LevelMid, 100},
		{model.LevelMid, "", 70},
		{model.LevelJunior, model.LevelMid, 60},
		{model.LevelJunior, model.LevelSenior, 20},
		{model.LevelMid, model.LevelJunior, 50},
		{model.LevelMid, model.LevelSenior, 60},
		{model.LevelSenior, model.LevelJunior, 30},
		{model.LevelSenior, model.LevelMid, 70},
		{"", model.LevelMid, 50}, // unmapped pair
	}
	for _, c := range cases {
		if got := experienceScore(c.user, c.listing); got != c.want {
			t.Errorf("experienceScore(%q, %q) = %d, want %d", c.user, c.listing, got, c.want)
		}
	}
}

func TestSkillScore_DescriptionScan(t *testing.T) {
	l := listing("Go Developer")
	l.Description = "You will write Go services backed by PostgreSQL and Redis."

	got := skillScore(l, baseCriteria())
	if got != 45 { // go + postgresql + redis at 15 points each
		t.Errorf("skillScore = %d, want 45", got)
	}
}

func TestSkillScore_ExplicitSkills(t *testing.T) {
	l := listing("Go Developer")
	l.Skills = []string{"go", "postgresql"} // both primary: 4 of 4 points
	if got := skillScore(l, baseCriteria()); got != 100 {
		t.Errorf("skillScore = %d, want 100", got)
	}

	l.Skills = []string{"go", "cobol"} // 2 of 4 points
	if got := skillScore(l, baseCriteria()); got != 50 {
		t.Errorf("skillScore = %d, want 50", got)
	}
}

func TestTitleScore(t *testing.T) {
	criteria := &model.SearchCriteria{RoleTitles: []string{"Python Backend Developer"}}

	cases := []struct {
		title string
		want  int
	}{
		{"Senior Python Backend Developer", 100}, // all significant words present
		{"Backend Developer", 80},                // two of three
		{"PHP Developer", 60},                    // shared generic role word only
		{"Gardener", 30},                         // nothing in common
	}
	for _, c := range cases {
		if got := titleScore(c.title, criteria, model.Preferences{}); got != c.want {
			t.Errorf("titleScore(%q) = %d, want %d", c.title, got, c.want)
		}
	}
}

func TestSalaryScore(t *testing.T) {
	prefs := model.Preferences{SalaryMin: 10000, SalaryMax: 15000}

	mk := func(min, max float64) model.CanonicalListing {
		l := listing("x")
		l.SalaryMin = min
		l.SalaryMax = max
		return l
	}

	cases := []struct {
		min, max float64
		want     int
	}{
		{0, 0, 70},       // no data
		{12000, 18000, 100}, // at/above floor
		{8000, 12000, 80},   // straddles the floor
		{7000, 8500, 50},    // within 80% of the floor
		{1000, 2000, 20},    // far below
	}
	for _, c := range cases {
		if got := salaryScore(mk(c.min, c.max), prefs); got != c.want {
			t.Errorf("salaryScore(%v-%v) = %d, want %d", c.min, c.max, got, c.want)
		}
	}

	if got := salaryScore(mk(1000, 2000), model.Preferences{}); got != 70 {
		t.Errorf("no user minimum must be neutral, got %d", got)
	}
}

func TestLocationScore(t *testing.T) {
	mk := func(remoteType, loc string) model.CanonicalListing {
		l := listing("x")
		l.RemoteType = remoteType
		l.Location = loc
		return l
	}

	remotePref := model.Preferences{RemotePreference: model.RemoteRemote}
	if got := locationScore(mk(model.RemoteRemote, ""), remotePref); got != 100 {
		t.Errorf("remote+remote = %d, want 100", got)
	}
	if got := locationScore(mk(model.RemoteHybrid, ""), remotePref); got != 70 {
		t.Errorf("remote+hybrid = %d, want 70", got)
	}
	if got := locationScore(mk(model.RemoteOnsite, ""), remotePref); got != 20 {
		t.Errorf("remote+onsite = %d, want 20", got)
	}

	// Unknown remote type falls back to target-location substring match.
	targeted := model.Preferences{TargetLocations: []string{"Warsaw"}}
	if got := locationScore(mk("", "Warsaw, Poland"), targeted); got != 100 {
		t.Errorf("target substring match = %d, want 100", got)
	}
	if got := locationScore(mk("", "Berlin"), targeted); got != 70 {
		t.Errorf("no target match = %d, want 70", got)
	}
}

func TestEmploymentScore(t *testing.T) {
	if got := employmentScore("full-time", nil); got != 70 {
		t.Errorf("no preference = %d, want 70", got)
	}
	if got := employmentScore("", []string{"full-time"}); got != 60 {
		t.Errorf("unknown listing type = %d, want 60", got)
	}
	if got := employmentScore("full_time", []string{"full-time"}); got != 100 {
		t.Errorf("normalized match = %d, want 100", got)
	}
	if got := employmentScore("b2b", []string{"full-time"}); got != 40 {
		t.Errorf("mismatch = %d, want 40", got)
	}
}

func TestNormalizeEmployment(t *testing.T) {
	cases := map[string]string{
		"Full-Time":  "full-time",
		"full_time":  "full-time",
		"permanent":  "full-time",
		"B2B":        "contract",
		"Internship": "internship",
		"gig":        "",
	}
	for in, want := range cases {
		if got := NormalizeEmployment(in); got != want {
			t.Errorf("NormalizeEmployment(%q) = %q, want %q", in, got, want)
		}
	}
}

func titles(scored []model.ScoredListing) []string {
	out := make([]string, 0, len(scored))
	for _, s := range scored {
		out = append(out, s.Title)
	}
	return out
}
