package search

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"jobradar.fyi/jobradar/internal/db"
	"jobradar.fyi/jobradar/internal/embedding"
)

// scoreStopWords filters common words that add noise to the
// skill-keyword containment signal.
var scoreStopWords = map[string]bool{
	"and": true, "the": true, "for": true, "with": true, "you": true,
	"are": true, "have": true, "will": true, "this": true, "that": true,
	"from": true, "our": true, "your": true, "work": true, "team": true,
	"role": true, "job": true, "join": true, "about": true, "can": true,
	"not": true, "but": true, "all": true, "new": true, "use": true,
}

// queryKeywords tokenizes a query into lowercase keywords, keeping
// tech tokens like "c++", "c#" and "node.js" intact.
func queryKeywords(text string) []string {
	var keywords []string
	var word strings.Builder
	flush := func() {
		w := strings.TrimRight(word.String(), ".")
		word.Reset()
		if len([]rune(w)) >= 3 && !scoreStopWords[w] {
			keywords = append(keywords, w)
		}
	}
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#' || r == '.' {
			word.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return keywords
}

// ScorerStore serves stored embeddings for a page of postings.
type ScorerStore interface {
	LatestEmbeddingsForPostings(ctx context.Context, postingIDs []int64, modelName string) (map[int64]string, error)
}

// Scorer attaches semantic similarity and a short match explanation to
// each candidate row.
type Scorer struct {
	store    ScorerStore
	provider embedding.Provider
	logger   zerolog.Logger
}

func NewScorer(store ScorerStore, provider embedding.Provider, logger zerolog.Logger) *Scorer {
	return &Scorer{
		store:    store,
		provider: provider,
		logger:   logger.With().Str("component", "scorer").Logger(),
	}
}

// Scored is the per-row scorer output. Similarity stays nil when the
// embedding backend could not score the pair.
type Scored struct {
	Similarity  *float64
	Explanation string
}

// Score embeds the query once and compares it against the freshest
// stored embedding of every row. The scorer degrades instead of
// failing: any embedding or store problem yields nil similarities and
// keyword-only explanations.
func (s *Scorer) Score(ctx context.Context, query string, rows []db.SearchRow) []Scored {
	similarities := make(map[int64]float64)

	trimmed := strings.TrimSpace(query)
	if trimmed != "" && len(rows) > 0 {
		queryVector, err := s.provider.Embed(ctx, trimmed)
		switch {
		case errors.Is(err, embedding.ErrUnavailable):
			s.logger.Debug().Msg("embedding provider unavailable, similarity omitted")
		case err != nil:
			s.logger.Warn().Err(err).Msg("query embedding failed, similarity omitted")
		default:
			ids := make([]int64, len(rows))
			for i, row := range rows {
				ids[i] = row.PostingID
			}
			stored, err := s.store.LatestEmbeddingsForPostings(ctx, ids, s.provider.ModelName())
			if err != nil {
				s.logger.Warn().Err(err).Msg("stored embedding lookup failed, similarity omitted")
			} else {
				for id, literal := range stored {
					vector, err := embedding.ParseVectorLiteral(literal)
					if err != nil {
						continue
					}
					cosine, err := embedding.Cosine(queryVector, vector)
					if err != nil {
						continue
					}
					similarities[id] = (cosine + 1) / 2
				}
			}
		}
	}

	keywords := queryKeywords(trimmed)
	scored := make([]Scored, len(rows))
	for i, row := range rows {
		var similarity *float64
		if value, ok := similarities[row.PostingID]; ok {
			v := value
			similarity = &v
		}
		scored[i] = Scored{
			Similarity:  similarity,
			Explanation: explain(trimmed, keywords, row, similarity),
		}
	}
	return scored
}

// explain builds a short human-readable reason from up to three
// signals, defaulting to "general match".
func explain(query string, keywords []string, row db.SearchRow, similarity *float64) string {
	var reasons []string
	lowerQuery := strings.ToLower(query)

	if lowerQuery != "" && strings.Contains(strings.ToLower(row.Title), lowerQuery) {
		reasons = append(reasons, "title matches query")
	}

	if len(reasons) < 3 && len(keywords) > 0 {
		haystack := strings.ToLower(row.Description + " " + row.Requirements)
		for _, keyword := range keywords {
			if strings.Contains(haystack, keyword) {
				reasons = append(reasons, "mentions "+keyword)
				break
			}
		}
	}

	if len(reasons) < 3 && lowerQuery != "" && row.NormalizedTitle != "" &&
		strings.Contains(row.NormalizedTitle, lowerQuery) &&
		!strings.Contains(strings.ToLower(row.Title), lowerQuery) {
		reasons = append(reasons, "related job family")
	}

	if len(reasons) < 3 && similarity != nil {
		switch {
		case *similarity > 0.7:
			reasons = append(reasons, "high content similarity")
		case *similarity > 0.5:
			reasons = append(reasons, "related content")
		}
	}

	if len(reasons) == 0 {
		return "general match"
	}
	if len(reasons) > 3 {
		reasons = reasons[:3]
	}
	return strings.Join(reasons, ", ")
}
