// Package ranking re-orders search results with a logistic-regression
// classifier trained on implicit feedback, falling back to a
// similarity-sorted heuristic whenever the learned model cannot serve.
package ranking

import "strings"

// FeatureCount is the wire contract of the ranking artifact: every
// stored weight vector and every scored example uses exactly this many
// features, in the order built by BuildFeatures.
const FeatureCount = 8

// Feature indices. description_match and skill_overlap are reserved
// slots so the artifact format does not change when they are filled in.
const (
	featSemanticSimilarity = iota
	featTitleMatch
	featDescriptionMatch
	featRecency
	featSeniorityMatch
	featLocationMatch
	featHasSalary
	featSkillOverlap
)

// neutralRecency is the placeholder recency signal until a decay-based
// value replaces it.
const neutralRecency = 0.5

// FeatureInput carries everything needed to build one (query, result)
// feature vector.
type FeatureInput struct {
	// SemanticSimilarity is the rescaled cosine in [0, 1], nil when no
	// embedding was available for the pair.
	SemanticSimilarity *float64
	QueryText          string
	Title              string
	NormalizedTitle    string
	Seniority          string
	City               string
	County             string
	HasSalary          bool
}

// BuildFeatures derives the fixed 8-float vector for one pair. Missing
// semantic similarity maps to a neutral 0.5 so the learned model never
// confuses "unknown" with "dissimilar".
func BuildFeatures(in FeatureInput) []float64 {
	features := make([]float64, FeatureCount)

	features[featSemanticSimilarity] = 0.5
	if in.SemanticSimilarity != nil {
		features[featSemanticSimilarity] = clamp01(*in.SemanticSimilarity)
	}

	query := strings.ToLower(strings.TrimSpace(in.QueryText))
	if query != "" {
		title := strings.ToLower(in.Title)
		if strings.Contains(title, query) || strings.Contains(strings.ToLower(in.NormalizedTitle), query) {
			features[featTitleMatch] = 1
		}
		if in.Seniority != "" && strings.Contains(query, strings.ToLower(in.Seniority)) {
			features[featSeniorityMatch] = 1
		}
		if matchesLocation(query, in.City, in.County) {
			features[featLocationMatch] = 1
		}
	}

	features[featRecency] = neutralRecency
	if in.HasSalary {
		features[featHasSalary] = 1
	}

	return features
}

func matchesLocation(query, city, county string) bool {
	if city != "" && strings.Contains(query, strings.ToLower(city)) {
		return true
	}
	return county != "" && strings.Contains(query, strings.ToLower(county))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
