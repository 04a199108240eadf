package jobposting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"jobradar.fyi/jobradar/internal/db"
	"jobradar.fyi/jobradar/internal/embedding"
	"jobradar.fyi/jobradar/internal/globaltime"
)

// Match types, in resolution priority order.
const (
	MatchExactURL          = "exact_url"
	MatchFuzzyTitleCompany = "fuzzy_title_company"
	MatchContentSimilarity = "content_similarity"
)

const (
	// fuzzyCandidateThreshold is the similarity floor for a title pair
	// to be reported as a candidate at all.
	fuzzyCandidateThreshold = 0.80
	// fuzzyAutoThreshold is the similarity at which a same-org title
	// pair is merged without review.
	fuzzyAutoThreshold = 0.95
	// contentAutoThreshold applies to the rescaled cosine in [0, 1].
	contentAutoThreshold = 0.90
	// minContentChars gates the content tier; shorter descriptions
	// embed into near-meaningless vectors.
	minContentChars = 50
	// candidateCap bounds the comparison set per tier.
	candidateCap = 100
)

// DuplicateCandidate is one possible canonical record for an incoming
// posting.
type DuplicateCandidate struct {
	PostingID  int64
	Title      string
	MatchType  string
	Confidence float64
}

// Resolution is the outcome of running an incoming posting through the
// match tiers. When IsDuplicate is false, Candidates may still carry
// sub-threshold matches for review.
type Resolution struct {
	IsDuplicate bool
	Match       *DuplicateCandidate
	Candidates  []DuplicateCandidate
}

// Incoming is the identity of a posting being resolved.
type Incoming struct {
	PostingID       int64
	URLHash         []byte
	Title           string
	NormalizedTitle string
	Description     string
	OrgID           *int64
	LocationID      *int64
}

// Store is the persistence surface the resolver reads from.
type Store interface {
	FindActivePostingByURLHash(ctx context.Context, urlHash []byte) (*db.PostingRef, error)
	ListTitleCandidates(ctx context.Context, orgID, locationID *int64, cutoff time.Time, limit int) ([]db.TitleCandidate, error)
	ListContentCandidates(ctx context.Context, orgID *int64, modelName string, cutoff time.Time, limit int) ([]db.ContentCandidate, error)
}

// Resolver runs the duplicate match tiers in strict priority order.
type Resolver struct {
	store    Store
	provider embedding.Provider
	window   time.Duration
	logger   zerolog.Logger
}

// NewResolver wires a resolver over a store and an embedding provider.
// The window bounds how far back candidate postings are considered.
func NewResolver(store Store, provider embedding.Provider, window time.Duration, logger zerolog.Logger) *Resolver {
	if window <= 0 {
		window = 90 * 24 * time.Hour
	}
	return &Resolver{
		store:    store,
		provider: provider,
		window:   window,
		logger:   logger.With().Str("component", "resolver").Logger(),
	}
}

// FindByURL resolves the exact tier: an active posting with the same
// normalized URL hash is a duplicate with full confidence.
func (r *Resolver) FindByURL(ctx context.Context, urlHash []byte) (*DuplicateCandidate, error) {
	if len(urlHash) == 0 {
		return nil, nil
	}
	ref, err := r.store.FindActivePostingByURLHash(ctx, urlHash)
	if err != nil {
		return nil, fmt.Errorf("exact url lookup: %w", err)
	}
	if ref == nil {
		return nil, nil
	}
	return &DuplicateCandidate{
		PostingID:  ref.PostingID,
		Title:      ref.Title,
		MatchType:  MatchExactURL,
		Confidence: 1.0,
	}, nil
}

// FindByTitleCompany resolves the fuzzy tier: normalized titles of
// recent same-organization postings are compared by edit distance.
// All candidates at or above the candidate floor are returned sorted
// by similarity; the first return is the best candidate at or above
// the auto-merge threshold, or nil.
func (r *Resolver) FindByTitleCompany(ctx context.Context, in Incoming) (*DuplicateCandidate, []DuplicateCandidate, error) {
	if in.NormalizedTitle == "" || in.OrgID == nil {
		return nil, nil, nil
	}

	cutoff := globaltime.UTC().Add(-r.window)
	rows, err := r.store.ListTitleCandidates(ctx, in.OrgID, in.LocationID, cutoff, candidateCap)
	if err != nil {
		return nil, nil, fmt.Errorf("title candidate lookup: %w", err)
	}

	var candidates []DuplicateCandidate
	for _, row := range rows {
		if row.PostingID == in.PostingID {
			continue
		}
		similarity := TitleSimilarity(in.NormalizedTitle, row.NormalizedTitle)
		if similarity < fuzzyCandidateThreshold {
			continue
		}
		candidates = append(candidates, DuplicateCandidate{
			PostingID:  row.PostingID,
			Title:      row.Title,
			MatchType:  MatchFuzzyTitleCompany,
			Confidence: similarity,
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	if len(candidates) > 0 && candidates[0].Confidence >= fuzzyAutoThreshold {
		best := candidates[0]
		return &best, candidates, nil
	}
	return nil, candidates, nil
}

// FindByContent resolves the content tier: the incoming description is
// embedded and compared against stored embeddings of recent same-org
// postings. The raw cosine in [-1, 1] is rescaled to [0, 1] before the
// threshold check. The tier is skipped, never failed, when the
// embedding provider is down or the description is too short.
func (r *Resolver) FindByContent(ctx context.Context, in Incoming) (*DuplicateCandidate, error) {
	if len(in.Description) < minContentChars {
		return nil, nil
	}

	vector, err := r.provider.Embed(ctx, in.Description)
	if err != nil {
		if errors.Is(err, embedding.ErrUnavailable) {
			r.logger.Warn().Msg("embedding provider unavailable, skipping content tier")
			return nil, nil
		}
		return nil, fmt.Errorf("embed incoming description: %w", err)
	}

	cutoff := globaltime.UTC().Add(-r.window)
	rows, err := r.store.ListContentCandidates(ctx, in.OrgID, r.provider.ModelName(), cutoff, candidateCap)
	if err != nil {
		return nil, fmt.Errorf("content candidate lookup: %w", err)
	}

	var best *DuplicateCandidate
	for _, row := range rows {
		if row.PostingID == in.PostingID {
			continue
		}
		stored, err := embedding.ParseVectorLiteral(row.Embedding)
		if err != nil {
			r.logger.Warn().
				Int64("posting_id", row.PostingID).
				Err(err).
				Msg("unreadable stored embedding, skipping candidate")
			continue
		}
		cosine, err := embedding.Cosine(vector, stored)
		if err != nil {
			continue
		}
		confidence := (cosine + 1) / 2
		if confidence < contentAutoThreshold {
			continue
		}
		if best == nil || confidence > best.Confidence {
			best = &DuplicateCandidate{
				PostingID:  row.PostingID,
				Title:      row.Title,
				MatchType:  MatchContentSimilarity,
				Confidence: confidence,
			}
		}
	}
	return best, nil
}

// FindAllDuplicates runs the tiers in priority order. An exact URL hit
// short-circuits everything; a fuzzy auto-merge hit short-circuits the
// content tier. Sub-threshold fuzzy candidates are carried in the
// resolution either way.
func (r *Resolver) FindAllDuplicates(ctx context.Context, in Incoming) (*Resolution, error) {
	exact, err := r.FindByURL(ctx, in.URLHash)
	if err != nil {
		return nil, err
	}
	if exact != nil {
		return &Resolution{IsDuplicate: true, Match: exact}, nil
	}

	fuzzyBest, fuzzyCandidates, err := r.FindByTitleCompany(ctx, in)
	if err != nil {
		return nil, err
	}
	if fuzzyBest != nil {
		return &Resolution{IsDuplicate: true, Match: fuzzyBest, Candidates: fuzzyCandidates}, nil
	}

	contentBest, err := r.FindByContent(ctx, in)
	if err != nil {
		return nil, err
	}
	if contentBest != nil {
		return &Resolution{IsDuplicate: true, Match: contentBest, Candidates: fuzzyCandidates}, nil
	}

	return &Resolution{Candidates: fuzzyCandidates}, nil
}
