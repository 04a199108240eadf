// Package search implements the bounded-cost query planner, the
// relevance scorer, and the envelope assembly for ranked job search.
package search

import (
	"strings"
	"time"

	"jobradar.fyi/jobradar/internal/db"
)

// Request is one search invocation.
type Request struct {
	Query   string
	Filters Filters
	Limit   int
	Offset  int
}

// Filters narrow the candidate set before any text matching.
type Filters struct {
	LocationID *int64
	Seniority  string
	RoleFamily string
	Sector     string
	MinQuality float64
}

func (f Filters) toDB() db.PostingFilter {
	return db.PostingFilter{
		LocationID: f.LocationID,
		Seniority:  strings.TrimSpace(f.Seniority),
		RoleFamily: strings.TrimSpace(f.RoleFamily),
		Sector:     strings.TrimSpace(f.Sector),
		MinQuality: f.MinQuality,
	}
}

// Result is one posting in the envelope. Similarity is nil when the
// embedding backend could not score the pair; it is never replaced by
// a placeholder number.
type Result struct {
	PostingID      int64     `json:"posting_id"`
	PostingUUID    string    `json:"posting_uuid"`
	Title          string    `json:"title"`
	Organization   *string   `json:"organization"`
	City           *string   `json:"city"`
	County         *string   `json:"county"`
	IsRemote       *bool     `json:"is_remote"`
	Seniority      *string   `json:"seniority"`
	RoleFamily     *string   `json:"role_family"`
	Sector         *string   `json:"sector"`
	SalaryMin      *float64  `json:"salary_min"`
	SalaryMax      *float64  `json:"salary_max"`
	SalaryCurrency *string   `json:"salary_currency"`
	CanonicalURL   string    `json:"canonical_url"`
	QualityScore   float64   `json:"quality_score"`
	RepostCount    int       `json:"repost_count"`
	LastSeenAt     time.Time `json:"last_seen_at"`
	Similarity     *float64  `json:"similarity"`
	Explanation    string    `json:"explanation"`
}

// FacetValue is one value/count pair within a facet. Counts come from
// a bounded sample and are directionally correct, not exact.
type FacetValue struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// Facets groups the sampled aggregates by dimension.
type Facets map[string][]FacetValue

// Envelope is the search response contract. It is always well formed:
// a degraded backend empties fields, it never fails the call.
type Envelope struct {
	Results      []Result `json:"results"`
	Total        int64    `json:"total"`
	TotalIsExact bool     `json:"total_is_exact"`
	HasMore      bool     `json:"has_more"`
	Facets       Facets   `json:"facets"`
	RankerUsed   string   `json:"ranker_used"`
}
