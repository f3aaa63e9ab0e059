package engine

import "testing"

func TestNextPositionCode(t *testing.T) {
	cases := []struct {
		dept  string
		count int
		want  string
	}{
		{"FIN", 0, "FIN-001"},
		{"FIN", 1, "FIN-002"},
		{"ENG", 41, "ENG-042"},
		{"OPS", 999, "OPS-1000"},
	}
	for _, c := range cases {
		if got := NextPositionCode(c.dept, c.count); got != c.want {
			t.Errorf("NextPositionCode(%q, %d) = %q, want %q", c.dept, c.count, got, c.want)
		}
	}
}

func TestNextChartVersion(t *testing.T) {
	cases := []struct {
		enforced, inFlight int
		want               string
	}{
		{0, 0, "1.0"},
		{0, 1, "1.1"},
		{2, 0, "3.0"},
		{2, 3, "3.3"},
	}
	for _, c := range cases {
		if got := NextChartVersion(c.enforced, c.inFlight); got != c.want {
			t.Errorf("NextChartVersion(%d, %d) = %q, want %q", c.enforced, c.inFlight, got, c.want)
		}
	}
}
