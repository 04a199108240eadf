package ranking

import (
	"sort"

	"github.com/rs/zerolog"
)

// Candidate is one search result entering the ranker. Index points back
// into the caller's result slice; Similarity is the rescaled semantic
// similarity, nil when embeddings were unavailable.
type Candidate struct {
	Index      int
	Features   []float64
	Similarity *float64
}

// Strategy names reported alongside a ranked page.
const (
	StrategyHeuristic = "heuristic"
	StrategyLearned   = "learned"
)

// Ranker orders candidates by predicted relevance and reports which
// strategy produced the ordering. Implementations must never fail: a
// ranker that cannot score degrades, it does not error.
type Ranker interface {
	Rank(candidates []Candidate) ([]Candidate, string)
}

// HeuristicRanker sorts by semantic similarity descending, results
// without a similarity last. It is the fallback law for every learned
// ranker failure.
type HeuristicRanker struct{}

func (HeuristicRanker) Rank(candidates []Candidate) ([]Candidate, string) {
	ranked := append([]Candidate(nil), candidates...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].Similarity, ranked[j].Similarity
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})
	return ranked, StrategyHeuristic
}

// LearnedRanker scores candidates with the stored classifier. The
// artifact is reloaded on every call so a retrain takes effect without
// cache invalidation; any load or scoring problem yields the heuristic
// ordering, reported as such so callers can see the degraded mode.
type LearnedRanker struct {
	artifactPath string
	fallback     HeuristicRanker
	logger       zerolog.Logger
}

func NewLearnedRanker(artifactPath string, logger zerolog.Logger) *LearnedRanker {
	return &LearnedRanker{
		artifactPath: artifactPath,
		logger:       logger.With().Str("component", "ranker").Logger(),
	}
}

func (r *LearnedRanker) Rank(candidates []Candidate) ([]Candidate, string) {
	artifact, err := LoadArtifact(r.artifactPath)
	if err != nil {
		if err != ErrNoArtifact {
			r.logger.Warn().Err(err).Msg("unreadable ranking artifact, using heuristic order")
		}
		return r.fallback.Rank(candidates)
	}
	model, err := artifact.Model()
	if err != nil {
		r.logger.Warn().Err(err).Msg("invalid ranking artifact, using heuristic order")
		return r.fallback.Rank(candidates)
	}
	if len(candidates) == 0 {
		return nil, StrategyLearned
	}

	type scored struct {
		candidate Candidate
		score     float64
	}
	items := make([]scored, 0, len(candidates))
	for _, candidate := range candidates {
		score, err := model.Score(candidate.Features)
		if err != nil {
			r.logger.Warn().Err(err).Msg("scoring failed, using heuristic order")
			return r.fallback.Rank(candidates)
		}
		items = append(items, scored{candidate: candidate, score: score})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].score > items[j].score
	})

	ranked := make([]Candidate, len(items))
	for i, item := range items {
		ranked[i] = item.candidate
	}
	return ranked, StrategyLearned
}
