package jobposting

import (
	"bytes"
	"testing"
)

func TestNormalizeURLStripsTrackingParameters(t *testing.T) {
	t.Parallel()

	got := NormalizeURL("https://jobs.example.com/listing/123?utm_source=feed&utm_campaign=aug&fbclid=abc&id=9")
	want := "https://jobs.example.com/listing/123?id=9"
	if got != want {
		t.Fatalf("unexpected normalization: %q != %q", got, want)
	}
}

func TestNormalizeURLSortsQueryAndLowercases(t *testing.T) {
	t.Parallel()

	got := NormalizeURL("HTTP://Jobs.Example.COM/Listing?b=2&a=1")
	want := "https://jobs.example.com/listing?a=1&b=2"
	if got != want {
		t.Fatalf("unexpected normalization: %q != %q", got, want)
	}
}

func TestNormalizeURLDropsFragmentAndTrailingSlash(t *testing.T) {
	t.Parallel()

	if got := NormalizeURL("https://example.com/jobs/123/#apply"); got != "https://example.com/jobs/123" {
		t.Fatalf("unexpected normalization: %q", got)
	}
	if got := NormalizeURL("https://example.com/"); got != "https://example.com" {
		t.Fatalf("root slash should be dropped: %q", got)
	}
}

func TestNormalizeURLDropsDefaultPorts(t *testing.T) {
	t.Parallel()

	if got := NormalizeURL("http://example.com:80/jobs"); got != "https://example.com/jobs" {
		t.Fatalf("unexpected normalization: %q", got)
	}
	if got := NormalizeURL("https://example.com:443/jobs"); got != "https://example.com/jobs" {
		t.Fatalf("unexpected normalization: %q", got)
	}
	if got := NormalizeURL("https://example.com:8080/jobs"); got != "https://example.com:8080/jobs" {
		t.Fatalf("non-default port must survive: %q", got)
	}
}

func TestNormalizeURLIsIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"https://jobs.example.com/listing/123?utm_source=x&id=9&b=2",
		"example.com/careers",
		"not a parseable url at all",
		"",
	}
	for _, input := range inputs {
		once := NormalizeURL(input)
		twice := NormalizeURL(once)
		if once != twice {
			t.Fatalf("normalization not idempotent for %q: %q != %q", input, once, twice)
		}
	}
}

func TestNormalizeURLUnparsableFallsBack(t *testing.T) {
	t.Parallel()

	if got := NormalizeURL("  Not A URL  "); got != "not a url" {
		t.Fatalf("expected trimmed lowercase fallback, got %q", got)
	}
}

func TestHashURLEqualForNormalizedVariants(t *testing.T) {
	t.Parallel()

	a := HashURL("https://jobs.example.com/listing/123?utm_source=feed&id=9")
	b := HashURL("HTTPS://JOBS.EXAMPLE.COM/listing/123/?id=9&gclid=zzz")
	if !bytes.Equal(a, b) {
		t.Fatalf("variant URLs must hash identically")
	}

	c := HashURL("https://jobs.example.com/listing/124?id=9")
	if bytes.Equal(a, c) {
		t.Fatalf("different listings must hash differently")
	}
	if len(a) != 32 {
		t.Fatalf("expected sha-256 digest, got %d bytes", len(a))
	}
}
