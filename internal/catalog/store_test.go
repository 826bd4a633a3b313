package catalog_test

import (
	"testing"

	"extendwork/recommend-service/internal/catalog"
)

func TestSanitizeTerm(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"go developer", "go developer"},
		{"  go developer  ", "go developer"},
		{"100% remote", `100\% remote`},
		{"c_suite", `c\_suite`},
		{`back\slash`, `back\\slash`},
		{"%_%", `\%\_\%`},
		{"", ""},
	}
	for _, c := range cases {
		if got := catalog.SanitizeTerm(c.in); got != c.want {
			t.Errorf("SanitizeTerm(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
