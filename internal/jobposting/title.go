package jobposting

import (
	"regexp"
	"strings"

	"github.com/xrash/smetrics"
)

var (
	titleParentheticalRE = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
	titleBracketedRE     = regexp.MustCompile(`\s*\[[^\]]*\]\s*$`)
	titleUrgencySuffixRE = regexp.MustCompile(`(?i)\s*[-–|:]\s*(urgent(ly)?( hiring)?|hiring now|immediate start|apply (now|today)|new)\s*$`)
	titleJobsAtPrefixRE  = regexp.MustCompile(`(?i)^\s*(jobs?\s+at\s+\S+|now\s+hiring)\s*[-–|:]\s*`)
	titleWhitespaceRE    = regexp.MustCompile(`\s+`)
)

// NormalizeTitle lowercases a job title and strips the filler that
// boards append around the role name: trailing parentheticals and
// bracketed tags, urgency suffixes, "jobs at X" style prefixes, and
// runs of whitespace. Punctuation inside the role name is kept.
func NormalizeTitle(raw string) string {
	title := strings.ToLower(strings.TrimSpace(raw))
	if title == "" {
		return ""
	}

	title = titleJobsAtPrefixRE.ReplaceAllString(title, "")
	for {
		next := title
		next = titleUrgencySuffixRE.ReplaceAllString(next, "")
		next = titleParentheticalRE.ReplaceAllString(next, "")
		next = titleBracketedRE.ReplaceAllString(next, "")
		next = strings.TrimSpace(next)
		if next == title || next == "" {
			if next != "" {
				title = next
			}
			break
		}
		title = next
	}

	title = titleWhitespaceRE.ReplaceAllString(title, " ")
	return strings.TrimSpace(title)
}

// TitleSimilarity scores two normalized titles in [0, 1] as one minus
// the edit distance over the longer length. Two empty titles score 0,
// not 1, so that postings without a usable title never fuzzy-match.
func TitleSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}

	distance := smetrics.WagnerFischer(a, b, 1, 1, 1)
	similarity := 1 - float64(distance)/float64(longest)
	if similarity < 0 {
		return 0
	}
	return similarity
}
