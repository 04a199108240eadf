package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"jobradar.fyi/jobradar/internal/db"
)

// Plan selection bounds. The probe decides between two text plans: a
// branch union that caps each text column independently, and a plain
// OR-predicate once the term is common enough that branch caps only
// truncate arbitrarily.
const (
	probeLimit          = 50
	branchLimit         = 500
	defaultLimit        = 20
	maxLimit            = 100
	facetSampleLimit    = 1000
	facetValuesPerFacet = 12
)

// PlannerStore is the query surface the planner executes against.
type PlannerStore interface {
	ProbeTextSelectivity(ctx context.Context, pattern string, filter db.PostingFilter, probeLimit int) (int, error)
	SearchPostingsBranchUnion(ctx context.Context, pattern string, filter db.PostingFilter, branchLimit, limit, offset int) ([]db.SearchRow, error)
	SearchPostingsSimple(ctx context.Context, pattern string, filter db.PostingFilter, limit, offset int) ([]db.SearchRow, error)
	ListPostingsFiltered(ctx context.Context, filter db.PostingFilter, limit, offset int) ([]db.SearchRow, error)
	CountPostingsFiltered(ctx context.Context, filter db.PostingFilter) (int64, error)
	QueryFacetSample(ctx context.Context, filter db.PostingFilter, sampleLimit, valuesPerFacet int) ([]db.FacetRow, error)
}

// Planner selects and runs the cheapest query strategy for a request.
type Planner struct {
	store  PlannerStore
	logger zerolog.Logger
}

func NewPlanner(store PlannerStore, logger zerolog.Logger) *Planner {
	return &Planner{
		store:  store,
		logger: logger.With().Str("component", "planner").Logger(),
	}
}

// page is the planner's output: one page of candidate rows plus total
// accounting. Rows holds up to limit+1 entries so the caller derives
// has_more without a count query.
type page struct {
	Rows         []db.SearchRow
	Total        int64
	TotalIsExact bool
	HasMore      bool
}

func clampPaging(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// likePattern wraps the query term for ILIKE, escaping the pattern
// metacharacters in user input.
func likePattern(query string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(query)
	return "%" + escaped + "%"
}

// FetchPage runs the selected plan and returns one page of candidates.
func (p *Planner) FetchPage(ctx context.Context, req Request) (*page, error) {
	limit, offset := clampPaging(req.Limit, req.Offset)
	filter := req.Filters.toDB()
	query := strings.TrimSpace(req.Query)

	if query == "" {
		return p.fetchFiltered(ctx, filter, limit, offset)
	}
	return p.fetchText(ctx, query, filter, limit, offset)
}

// fetchFiltered serves filter-only requests. With no text scan in
// play an exact count is affordable.
func (p *Planner) fetchFiltered(ctx context.Context, filter db.PostingFilter, limit, offset int) (*page, error) {
	rows, err := p.store.ListPostingsFiltered(ctx, filter, limit+1, offset)
	if err != nil {
		return nil, fmt.Errorf("filtered listing: %w", err)
	}

	total, err := p.store.CountPostingsFiltered(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("filtered count: %w", err)
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	return &page{Rows: rows, Total: total, TotalIsExact: true, HasMore: hasMore}, nil
}

// fetchText probes selectivity first. A rare term gets the branch
// union; a term that fills the probe gets the simple OR-predicate,
// since branch caps add nothing once selectivity is already low. The
// total is a lower bound either way.
func (p *Planner) fetchText(ctx context.Context, query string, filter db.PostingFilter, limit, offset int) (*page, error) {
	pattern := likePattern(query)

	probed, err := p.store.ProbeTextSelectivity(ctx, pattern, filter, probeLimit)
	if err != nil {
		return nil, fmt.Errorf("selectivity probe: %w", err)
	}

	var rows []db.SearchRow
	if probed >= probeLimit {
		rows, err = p.store.SearchPostingsSimple(ctx, pattern, filter, limit+1, offset)
	} else {
		rows, err = p.store.SearchPostingsBranchUnion(ctx, pattern, filter, branchLimit, limit+1, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}

	total := int64(offset + len(rows))
	if hasMore {
		total++
	}

	p.logger.Debug().
		Str("query", query).
		Int("probed", probed).
		Bool("branch_union", probed < probeLimit).
		Int("rows", len(rows)).
		Msg("executed text plan")

	return &page{Rows: rows, Total: total, HasMore: hasMore}, nil
}
