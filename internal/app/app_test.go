package app

import (
	"encoding/json"
	"testing"
	"time"
)

func TestSplitPayloadsSingleObject(t *testing.T) {
	t.Parallel()

	payloads, err := splitPayloads(json.RawMessage(`{"title":"Go Engineer"}`))
	if err != nil {
		t.Fatalf("splitPayloads failed: %v", err)
	}
	if len(payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(payloads))
	}
}

func TestSplitPayloadsArray(t *testing.T) {
	t.Parallel()

	payloads, err := splitPayloads(json.RawMessage(`  [{"a":1}, {"b":2}, {"c":3}]`))
	if err != nil {
		t.Fatalf("splitPayloads failed: %v", err)
	}
	if len(payloads) != 3 {
		t.Fatalf("expected 3 payloads, got %d", len(payloads))
	}
}

func TestSplitPayloadsRejectsEmpty(t *testing.T) {
	t.Parallel()

	if _, err := splitPayloads(json.RawMessage(`  `)); err == nil {
		t.Fatal("expected error for blank payload")
	}
	if _, err := splitPayloads(json.RawMessage(`[]`)); err == nil {
		t.Fatal("expected error for empty array")
	}
}

func TestParseOutputFormat(t *testing.T) {
	t.Parallel()

	if format, err := parseOutputFormat(" JSON ", outputFormatTable); err != nil || format != outputFormatJSON {
		t.Fatalf("expected json, got %q err=%v", format, err)
	}
	if format, err := parseOutputFormat("", outputFormatTable); err != nil || format != outputFormatTable {
		t.Fatalf("expected table default, got %q err=%v", format, err)
	}
	if _, err := parseOutputFormat("yaml", outputFormatTable); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestParseUTCDateRange(t *testing.T) {
	t.Parallel()

	from, to, err := parseUTCDateRange("2026-08-01", "2026-08-31")
	if err != nil {
		t.Fatalf("parseUTCDateRange failed: %v", err)
	}
	wantFrom := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	wantTo := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	if !from.Equal(wantFrom) || !to.Equal(wantTo) {
		t.Fatalf("got window [%v, %v), want [%v, %v)", from, to, wantFrom, wantTo)
	}

	if _, _, err := parseUTCDateRange("2026-08-31", "2026-08-01"); err == nil {
		t.Fatal("expected error for inverted range")
	}
	if _, _, err := parseUTCDateRange("not-a-date", "2026-08-01"); err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestTrainingWindowDefaults(t *testing.T) {
	t.Parallel()

	from, to, err := trainingWindow("", "")
	if err != nil {
		t.Fatalf("trainingWindow failed: %v", err)
	}
	if !to.After(from) {
		t.Fatalf("expected from < to, got [%v, %v)", from, to)
	}
	if days := to.Sub(from).Hours() / 24; days < 30 || days > 32 {
		t.Fatalf("expected roughly 31 day window, got %.1f days", days)
	}

	if _, _, err := trainingWindow("2026-08-01", ""); err == nil {
		t.Fatal("expected error when only one bound is set")
	}
}

func TestTruncateForTable(t *testing.T) {
	t.Parallel()

	if got := truncateForTable("  short  ", 20); got != "short" {
		t.Fatalf("expected trimmed passthrough, got %q", got)
	}
	if got := truncateForTable("abcdefghij", 8); got != "abcde..." {
		t.Fatalf("expected ellipsis clip, got %q", got)
	}
	if got := truncateForTable("ab", 2); got != "ab" {
		t.Fatalf("expected unmodified short value, got %q", got)
	}
}
