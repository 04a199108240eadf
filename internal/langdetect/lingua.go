// Package langdetect tags posting text with an ISO 639-1 language code.
package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

// Short fragments produce junk guesses, so anything with fewer letters
// than this is left untagged.
const minLetters = 6

// Detection cost grows with input length and the leading text is
// enough to classify a posting, so samples are clipped.
const maxSampleRunes = 400

var (
	buildOnce sync.Once
	detector  lingua.LanguageDetector
)

// DetectISO6391 returns the two-letter language code of the text, or
// the empty string when the text is too short or the detector is not
// confident.
func DetectISO6391(text string) string {
	sample := clipSample(strings.TrimSpace(text))
	if countLetters(sample) < minLetters {
		return ""
	}

	language, exists := languageDetector().DetectLanguageOf(sample)
	if !exists {
		return ""
	}

	code := strings.ToLower(language.IsoCode639_1().String())
	if len(code) != 2 {
		return ""
	}
	return code
}

func clipSample(text string) string {
	runes := []rune(text)
	if len(runes) <= maxSampleRunes {
		return text
	}
	return string(runes[:maxSampleRunes])
}

func countLetters(text string) int {
	count := 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			count++
		}
	}
	return count
}

// languageDetector builds the lingua detector once per process. The
// model load is expensive, so it is deferred until the first call.
func languageDetector() lingua.LanguageDetector {
	buildOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			WithPreloadedLanguageModels().
			Build()
	})
	return detector
}
