package reader

import (
	"strings"
	"testing"
)

func TestCleanText(t *testing.T) {
	t.Parallel()

	got := CleanText("  First   line \r\n\r\n Second\tline \n\n\n")
	want := "First line\n\nSecond line"
	if got != want {
		t.Fatalf("unexpected cleaned text: %q", got)
	}
}

func TestExtractTextPlain(t *testing.T) {
	t.Parallel()

	got := ExtractText("We are hiring  a   nurse.\n\nApply today.", "https://example.com/jobs/1")
	if got != "We are hiring a nurse.\n\nApply today." {
		t.Fatalf("plain text must only be normalized: %q", got)
	}
}

func TestExtractTextHTML(t *testing.T) {
	t.Parallel()

	html := `<html><body><article><h1>Staff Nurse</h1>` +
		`<p>We are hiring a staff nurse for our Dublin clinic.</p>` +
		`<p>Requirements: NMBI registration and two years of experience.</p>` +
		`</article></body></html>`

	got := ExtractText(html, "https://example.com/jobs/2")
	if !strings.Contains(got, "staff nurse") && !strings.Contains(got, "Staff Nurse") {
		t.Fatalf("extracted text lost the content: %q", got)
	}
	if strings.Contains(got, "<p>") || strings.Contains(got, "<h1>") {
		t.Fatalf("markup must not survive extraction: %q", got)
	}
}

func TestExtractTextBrokenHTMLDegrades(t *testing.T) {
	t.Parallel()

	got := ExtractText("<div>Forklift driver <b>wanted", "not a url")
	if !strings.Contains(got, "Forklift driver") || !strings.Contains(got, "wanted") {
		t.Fatalf("broken markup must still yield the text: %q", got)
	}
}

func TestTruncateText(t *testing.T) {
	t.Parallel()

	clipped, truncated := TruncateText("warehouse operative role", 9)
	if !truncated || clipped != "warehous…" {
		t.Fatalf("unexpected truncation: %q %v", clipped, truncated)
	}

	whole, truncated := TruncateText("short", 10)
	if truncated || whole != "short" {
		t.Fatalf("short text must pass through: %q %v", whole, truncated)
	}
}
