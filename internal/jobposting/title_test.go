package jobposting

import "testing"

func TestNormalizeTitle(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input string
		want  string
	}{
		{"Senior Software Engineer", "senior software engineer"},
		{"  Senior   Software\tEngineer ", "senior software engineer"},
		{"Senior Software Engineer (Remote)", "senior software engineer"},
		{"Senior Software Engineer [Contract]", "senior software engineer"},
		{"Senior Software Engineer - URGENT", "senior software engineer"},
		{"Senior Software Engineer | Hiring Now", "senior software engineer"},
		{"Senior Software Engineer - Urgently Hiring (Night Shift)", "senior software engineer"},
		{"Jobs at Acme: Warehouse Operative", "warehouse operative"},
		{"Now Hiring: Forklift Driver", "forklift driver"},
		{"C++ Developer", "c++ developer"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := NormalizeTitle(tc.input); got != tc.want {
			t.Fatalf("NormalizeTitle(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestNormalizeTitleKeepsNonFillerParenthetical(t *testing.T) {
	t.Parallel()

	// Stripping is positional, not semantic: only trailing groups go.
	if got := NormalizeTitle("(Senior) Engineer at scale"); got != "(senior) engineer at scale" {
		t.Fatalf("leading parenthetical must survive, got %q", got)
	}
}

func TestTitleSimilarity(t *testing.T) {
	t.Parallel()

	if got := TitleSimilarity("senior engineer", "senior engineer"); got != 1 {
		t.Fatalf("identical titles must score 1, got %f", got)
	}
	if got := TitleSimilarity("", ""); got != 0 {
		t.Fatalf("empty titles must score 0, got %f", got)
	}
	if got := TitleSimilarity("senior engineer", ""); got != 0 {
		t.Fatalf("one empty title must score 0, got %f", got)
	}

	// One substitution across 15 characters.
	got := TitleSimilarity("senior engineer", "senior enginees")
	want := 1 - 1.0/15
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected %f, got %f", want, got)
	}

	if got := TitleSimilarity("nurse", "forklift operator"); got > 0.5 {
		t.Fatalf("unrelated titles should score low, got %f", got)
	}
}

func TestTitleSimilarityIsSymmetric(t *testing.T) {
	t.Parallel()

	a, b := "warehouse operative", "warehouse operator"
	if TitleSimilarity(a, b) != TitleSimilarity(b, a) {
		t.Fatalf("similarity must be symmetric")
	}
}
