package db

import (
	"context"
	"fmt"
	"time"
)

// PostingFilter narrows search and listing queries. Zero values mean
// the dimension is not filtered.
type PostingFilter struct {
	LocationID *int64
	Seniority  string
	RoleFamily string
	Sector     string
	MinQuality float64
}

// SearchRow is one posting as returned to the search layer.
type SearchRow struct {
	PostingID       int64
	PostingUUID     string
	Title           string
	NormalizedTitle string
	Description     string
	Requirements    string
	CanonicalURL    string
	OrgID           *int64
	OrgName         *string
	City            *string
	County          *string
	IsRemote        *bool
	Seniority       *string
	RoleFamily      *string
	Sector          *string
	SalaryMin       *float64
	SalaryMax       *float64
	SalaryCurrency  *string
	QualityScore    float64
	RepostCount     int
	LastSeenAt      time.Time
}

const searchRowColumns = `
	p.posting_id,
	p.posting_uuid::text,
	p.title,
	p.normalized_title,
	p.description,
	p.requirements,
	p.canonical_url,
	p.org_id,
	o.name,
	l.city,
	l.county,
	l.is_remote,
	p.seniority,
	p.role_family,
	p.sector,
	p.salary_min,
	p.salary_max,
	p.salary_currency,
	p.quality_score,
	p.repost_count,
	p.last_seen_at
`

const postingFilterClause = `
  AND ($1::bigint IS NULL OR p.location_id = $1)
  AND ($2 = '' OR p.seniority = $2)
  AND ($3 = '' OR p.role_family = $3)
  AND ($4 = '' OR p.sector = $4)
  AND ($5::float8 <= 0 OR p.quality_score >= $5)
`

func scanSearchRows(rows *Rows, capacity int) ([]SearchRow, error) {
	items := make([]SearchRow, 0, capacity)
	for rows.Next() {
		var row SearchRow
		err := rows.Scan(
			&row.PostingID,
			&row.PostingUUID,
			&row.Title,
			&row.NormalizedTitle,
			&row.Description,
			&row.Requirements,
			&row.CanonicalURL,
			&row.OrgID,
			&row.OrgName,
			&row.City,
			&row.County,
			&row.IsRemote,
			&row.Seniority,
			&row.RoleFamily,
			&row.Sector,
			&row.SalaryMin,
			&row.SalaryMax,
			&row.SalaryCurrency,
			&row.QualityScore,
			&row.RepostCount,
			&row.LastSeenAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return items, nil
}

// ProbeTextSelectivity counts title matches for a query pattern, capped
// at probeLimit. The planner uses the count to pick a search strategy
// without paying for a full scan.
func (p *Pool) ProbeTextSelectivity(
	ctx context.Context,
	pattern string,
	filter PostingFilter,
	probeLimit int,
) (int, error) {
	if probeLimit <= 0 {
		return 0, fmt.Errorf("probe limit must be > 0")
	}

	q := `
SELECT COUNT(*)
FROM (
	SELECT 1
	FROM jobs.postings p
	WHERE p.is_active
	  AND p.title ILIKE $6
` + postingFilterClause + `
	LIMIT $7
) probe
`

	var count int
	err := p.QueryRow(
		ctx, q,
		filter.LocationID, filter.Seniority, filter.RoleFamily, filter.Sector, filter.MinQuality,
		pattern, probeLimit,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("probe text selectivity: %w", err)
	}
	return count, nil
}

// SearchPostingsBranchUnion runs the selective text plan: each text
// column is probed independently under its own cap and the branch hits
// are unioned before filtering and ordering. Used when the probe shows
// the query term is rare enough for per-branch index scans to win.
func (p *Pool) SearchPostingsBranchUnion(
	ctx context.Context,
	pattern string,
	filter PostingFilter,
	branchLimit, limit, offset int,
) ([]SearchRow, error) {
	if limit <= 0 || branchLimit <= 0 {
		return nil, fmt.Errorf("limits must be > 0")
	}

	q := `
WITH title_hits AS (
	SELECT p.posting_id
	FROM jobs.postings p
	WHERE p.is_active AND p.title ILIKE $6
	ORDER BY p.last_seen_at DESC
	LIMIT $7
),
normalized_hits AS (
	SELECT p.posting_id
	FROM jobs.postings p
	WHERE p.is_active AND p.normalized_title ILIKE $6
	ORDER BY p.last_seen_at DESC
	LIMIT $7
),
description_hits AS (
	SELECT p.posting_id
	FROM jobs.postings p
	WHERE p.is_active AND p.description ILIKE $6
	ORDER BY p.last_seen_at DESC
	LIMIT $7
),
requirement_hits AS (
	SELECT p.posting_id
	FROM jobs.postings p
	WHERE p.is_active AND p.requirements ILIKE $6
	ORDER BY p.last_seen_at DESC
	LIMIT $7
),
candidates AS (
	SELECT posting_id FROM title_hits
	UNION
	SELECT posting_id FROM normalized_hits
	UNION
	SELECT posting_id FROM description_hits
	UNION
	SELECT posting_id FROM requirement_hits
)
SELECT ` + searchRowColumns + `
FROM jobs.postings p
JOIN candidates c ON c.posting_id = p.posting_id
LEFT JOIN jobs.organizations o ON o.org_id = p.org_id
LEFT JOIN jobs.locations l ON l.location_id = p.location_id
WHERE p.is_active
` + postingFilterClause + `
ORDER BY p.quality_score DESC, p.last_seen_at DESC, p.posting_id DESC
LIMIT $8 OFFSET $9
`

	rows, err := p.Query(
		ctx, q,
		filter.LocationID, filter.Seniority, filter.RoleFamily, filter.Sector, filter.MinQuality,
		pattern, branchLimit, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("branch union search: %w", err)
	}
	defer rows.Close()
	return scanSearchRows(rows, limit)
}

// SearchPostingsSimple runs the broad text plan: one OR across the text
// columns. Used when the query term is common and the branch plan would
// truncate each branch arbitrarily.
func (p *Pool) SearchPostingsSimple(
	ctx context.Context,
	pattern string,
	filter PostingFilter,
	limit, offset int,
) ([]SearchRow, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	q := `
SELECT ` + searchRowColumns + `
FROM jobs.postings p
LEFT JOIN jobs.organizations o ON o.org_id = p.org_id
LEFT JOIN jobs.locations l ON l.location_id = p.location_id
WHERE p.is_active
  AND (
	p.title ILIKE $6
	OR p.normalized_title ILIKE $6
	OR p.description ILIKE $6
	OR p.requirements ILIKE $6
  )
` + postingFilterClause + `
ORDER BY p.quality_score DESC, p.last_seen_at DESC, p.posting_id DESC
LIMIT $7 OFFSET $8
`

	rows, err := p.Query(
		ctx, q,
		filter.LocationID, filter.Seniority, filter.RoleFamily, filter.Sector, filter.MinQuality,
		pattern, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("simple search: %w", err)
	}
	defer rows.Close()
	return scanSearchRows(rows, limit)
}

// ListPostingsFiltered returns active postings matching the filters
// only, newest first. Used for queries with no text term.
func (p *Pool) ListPostingsFiltered(
	ctx context.Context,
	filter PostingFilter,
	limit, offset int,
) ([]SearchRow, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	q := `
SELECT ` + searchRowColumns + `
FROM jobs.postings p
LEFT JOIN jobs.organizations o ON o.org_id = p.org_id
LEFT JOIN jobs.locations l ON l.location_id = p.location_id
WHERE p.is_active
` + postingFilterClause + `
ORDER BY p.last_seen_at DESC, p.posting_id DESC
LIMIT $6 OFFSET $7
`

	rows, err := p.Query(
		ctx, q,
		filter.LocationID, filter.Seniority, filter.RoleFamily, filter.Sector, filter.MinQuality,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list filtered postings: %w", err)
	}
	defer rows.Close()
	return scanSearchRows(rows, limit)
}

// CountPostingsFiltered returns the exact count of active postings
// matching the filters. Only safe for filter-only queries where no text
// scan is involved.
func (p *Pool) CountPostingsFiltered(ctx context.Context, filter PostingFilter) (int64, error) {
	q := `
SELECT COUNT(*)
FROM jobs.postings p
WHERE p.is_active
` + postingFilterClause

	var count int64
	err := p.QueryRow(
		ctx, q,
		filter.LocationID, filter.Seniority, filter.RoleFamily, filter.Sector, filter.MinQuality,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count filtered postings: %w", err)
	}
	return count, nil
}

// FacetRow is one (facet, value, count) aggregate from the sample.
type FacetRow struct {
	Facet string
	Value string
	Count int64
}

// QueryFacetSample aggregates facet counts over a bounded sample of the
// most recent matching postings. Counts are approximate when the
// matching set exceeds the sample cap.
func (p *Pool) QueryFacetSample(
	ctx context.Context,
	filter PostingFilter,
	sampleLimit, valuesPerFacet int,
) ([]FacetRow, error) {
	if sampleLimit <= 0 || valuesPerFacet <= 0 {
		return nil, fmt.Errorf("limits must be > 0")
	}

	q := `
WITH sample AS (
	SELECT
		p.normalized_title,
		p.seniority,
		p.role_family,
		p.sector,
		o.name AS org_name,
		l.county
	FROM jobs.postings p
	LEFT JOIN jobs.organizations o ON o.org_id = p.org_id
	LEFT JOIN jobs.locations l ON l.location_id = p.location_id
	WHERE p.is_active
` + postingFilterClause + `
	ORDER BY p.last_seen_at DESC, p.posting_id DESC
	LIMIT $6
),
aggregated AS (
	SELECT 'title' AS facet, normalized_title AS value, COUNT(*) AS cnt
	FROM sample WHERE normalized_title <> '' GROUP BY normalized_title
	UNION ALL
	SELECT 'organization', org_name, COUNT(*)
	FROM sample WHERE org_name IS NOT NULL GROUP BY org_name
	UNION ALL
	SELECT 'county', county, COUNT(*)
	FROM sample WHERE county IS NOT NULL GROUP BY county
	UNION ALL
	SELECT 'seniority', seniority, COUNT(*)
	FROM sample WHERE seniority IS NOT NULL GROUP BY seniority
	UNION ALL
	SELECT 'role_family', role_family, COUNT(*)
	FROM sample WHERE role_family IS NOT NULL GROUP BY role_family
	UNION ALL
	SELECT 'sector', sector, COUNT(*)
	FROM sample WHERE sector IS NOT NULL GROUP BY sector
)
SELECT facet, value, cnt
FROM (
	SELECT
		facet,
		value,
		cnt,
		ROW_NUMBER() OVER (PARTITION BY facet ORDER BY cnt DESC, value ASC) AS rn
	FROM aggregated
) ranked
WHERE rn <= $7
ORDER BY facet ASC, cnt DESC, value ASC
`

	rows, err := p.Query(
		ctx, q,
		filter.LocationID, filter.Seniority, filter.RoleFamily, filter.Sector, filter.MinQuality,
		sampleLimit, valuesPerFacet,
	)
	if err != nil {
		return nil, fmt.Errorf("query facet sample: %w", err)
	}
	defer rows.Close()

	items := make([]FacetRow, 0, 6*valuesPerFacet)
	for rows.Next() {
		var row FacetRow
		if err := rows.Scan(&row.Facet, &row.Value, &row.Count); err != nil {
			return nil, fmt.Errorf("scan facet row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate facet rows: %w", err)
	}
	return items, nil
}
