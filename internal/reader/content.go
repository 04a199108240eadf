// Package reader turns raw posting descriptions into clean plain text.
// Boards deliver descriptions as HTML fragments as often as plain
// text; HTML-looking input goes through readability extraction, the
// rest is only whitespace-normalized.
package reader

import (
	"bytes"
	"net/url"
	"strings"

	readability "codeberg.org/readeck/go-readability/v2"
)

// looksLikeHTML is a cheap sniff: ingestion payloads are either plain
// text or markup, never a mix worth disambiguating further.
func looksLikeHTML(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return false
	}
	if strings.HasPrefix(trimmed, "<") {
		return true
	}
	lower := strings.ToLower(trimmed)
	for _, marker := range []string{"<p>", "<p ", "<div", "<br", "<ul", "<li", "<h1", "<h2", "<h3", "<strong", "<span"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// ExtractText produces the stored description text for a posting.
// Extraction failures degrade to whitespace normalization of the raw
// input so a badly formed fragment never blocks ingestion.
func ExtractText(raw string, sourceURL string) string {
	if !looksLikeHTML(raw) {
		return CleanText(raw)
	}

	pageURL, err := url.Parse(strings.TrimSpace(sourceURL))
	if err != nil {
		pageURL = &url.URL{}
	}

	article, err := readability.FromReader(strings.NewReader(raw), pageURL)
	if err != nil {
		return CleanText(stripTags(raw))
	}

	var renderedText bytes.Buffer
	if err := article.RenderText(&renderedText); err != nil {
		return CleanText(stripTags(raw))
	}

	text := CleanText(renderedText.String())
	if text == "" {
		text = CleanText(article.Excerpt())
	}
	if text == "" {
		text = CleanText(stripTags(raw))
	}
	return text
}

// stripTags is the crude fallback when readability rejects a fragment.
func stripTags(raw string) string {
	var sb strings.Builder
	inTag := false
	for _, r := range raw {
		switch {
		case r == '<':
			inTag = true
			sb.WriteByte(' ')
		case r == '>':
			inTag = false
		case !inTag:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// CleanText normalizes line endings and collapses extra in-line
// whitespace, keeping paragraph breaks.
func CleanText(raw string) string {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	lines := strings.Split(normalized, "\n")
	paragraphs := make([]string, 0, len(lines))
	for _, line := range lines {
		clean := strings.Join(strings.Fields(strings.TrimSpace(line)), " ")
		if clean == "" {
			continue
		}
		paragraphs = append(paragraphs, clean)
	}

	return strings.TrimSpace(strings.Join(paragraphs, "\n\n"))
}

// TruncateText clips text to maxChars runes and appends a single
// ellipsis rune when truncated.
func TruncateText(raw string, maxChars int) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	if maxChars <= 0 {
		return trimmed, false
	}

	runes := []rune(trimmed)
	if len(runes) <= maxChars {
		return trimmed, false
	}
	if maxChars == 1 {
		return "…", true
	}

	clipped := strings.TrimSpace(string(runes[:maxChars-1]))
	if clipped == "" {
		return "…", true
	}

	return clipped + "…", true
}
