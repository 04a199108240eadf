package search

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"jobradar.fyi/jobradar/internal/db"
	"jobradar.fyi/jobradar/internal/ranking"
)

// Service assembles the search envelope: plan, score, rank, facet.
type Service struct {
	planner *Planner
	scorer  *Scorer
	ranker  ranking.Ranker
	logger  zerolog.Logger
}

func NewService(planner *Planner, scorer *Scorer, ranker ranking.Ranker, logger zerolog.Logger) *Service {
	return &Service{
		planner: planner,
		scorer:  scorer,
		ranker:  ranker,
		logger:  logger.With().Str("component", "search").Logger(),
	}
}

// Search runs one request end to end. Only the store can fail it;
// ranking and embedding outages degrade the envelope instead.
func (s *Service) Search(ctx context.Context, req Request) (*Envelope, error) {
	fetched, err := s.planner.FetchPage(ctx, req)
	if err != nil {
		return nil, err
	}

	scored := s.scorer.Score(ctx, req.Query, fetched.Rows)

	candidates := make([]ranking.Candidate, len(fetched.Rows))
	for i, row := range fetched.Rows {
		candidates[i] = ranking.Candidate{
			Index:      i,
			Features:   buildRowFeatures(req.Query, row, scored[i].Similarity),
			Similarity: scored[i].Similarity,
		}
	}
	ranked, strategy := s.ranker.Rank(candidates)

	results := make([]Result, len(ranked))
	for i, candidate := range ranked {
		row := fetched.Rows[candidate.Index]
		results[i] = toResult(row, scored[candidate.Index])
	}

	facets, err := s.planner.Facets(ctx, req.Filters)
	if err != nil {
		s.logger.Warn().Err(err).Msg("facet aggregation failed, returning empty facets")
		facets = Facets{}
	}

	return &Envelope{
		Results:      results,
		Total:        fetched.Total,
		TotalIsExact: fetched.TotalIsExact,
		HasMore:      fetched.HasMore,
		Facets:       facets,
		RankerUsed:   strategy,
	}, nil
}

func buildRowFeatures(query string, row db.SearchRow, similarity *float64) []float64 {
	input := ranking.FeatureInput{
		SemanticSimilarity: similarity,
		QueryText:          query,
		Title:              row.Title,
		NormalizedTitle:    row.NormalizedTitle,
		HasSalary:          row.SalaryMin != nil || row.SalaryMax != nil,
	}
	if row.Seniority != nil {
		input.Seniority = *row.Seniority
	}
	if row.City != nil {
		input.City = *row.City
	}
	if row.County != nil {
		input.County = *row.County
	}
	return ranking.BuildFeatures(input)
}

func toResult(row db.SearchRow, scored Scored) Result {
	return Result{
		PostingID:      row.PostingID,
		PostingUUID:    row.PostingUUID,
		Title:          row.Title,
		Organization:   row.OrgName,
		City:           row.City,
		County:         row.County,
		IsRemote:       row.IsRemote,
		Seniority:      row.Seniority,
		RoleFamily:     row.RoleFamily,
		Sector:         row.Sector,
		SalaryMin:      row.SalaryMin,
		SalaryMax:      row.SalaryMax,
		SalaryCurrency: row.SalaryCurrency,
		CanonicalURL:   row.CanonicalURL,
		QualityScore:   row.QualityScore,
		RepostCount:    row.RepostCount,
		LastSeenAt:     row.LastSeenAt,
		Similarity:     scored.Similarity,
		Explanation:    scored.Explanation,
	}
}

// NormalizeEventType maps caller-supplied feedback names onto the
// trainer's vocabulary.
func NormalizeEventType(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "impression", "view":
		return ranking.EventImpression, true
	case "click":
		return ranking.EventClick, true
	case "apply", "application":
		return ranking.EventApply, true
	default:
		return "", false
	}
}
