package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PostingRef is the minimal read model returned by duplicate lookups.
type PostingRef struct {
	PostingID       int64
	PostingUUID     string
	Title           string
	NormalizedTitle string
	OrgID           *int64
	LastSeenAt      time.Time
	RepostCount     int
}

// TitleCandidate is one fuzzy-title comparison candidate.
type TitleCandidate struct {
	PostingID       int64
	Title           string
	NormalizedTitle string
}

// ContentCandidate carries the freshest stored embedding for one posting.
type ContentCandidate struct {
	PostingID int64
	Title     string
	Embedding string
}

// NewPosting holds the fields written when a unique posting is inserted.
type NewPosting struct {
	OrgID            *int64
	LocationID       *int64
	Source           string
	CanonicalURL     string
	CanonicalURLHash []byte
	Title            string
	NormalizedTitle  string
	Description      string
	Requirements     string
	Seniority        *string
	RoleFamily       *string
	Sector           *string
	SalaryMin        *float64
	SalaryMax        *float64
	SalaryCurrency   *string
	QualityScore     float64
	Language         string
	SeenAt           time.Time
}

// FindActivePostingByURLHash returns the canonical active posting for a
// normalized URL hash, or nil when none exists.
func (p *Pool) FindActivePostingByURLHash(ctx context.Context, urlHash []byte) (*PostingRef, error) {
	if len(urlHash) == 0 {
		return nil, nil
	}

	const q = `
SELECT
	p.posting_id,
	p.posting_uuid::text,
	p.title,
	p.normalized_title,
	p.org_id,
	p.last_seen_at,
	p.repost_count
FROM jobs.postings p
WHERE p.is_active
  AND p.canonical_url_hash = $1
LIMIT 1
`

	var ref PostingRef
	err := p.QueryRow(ctx, q, urlHash).Scan(
		&ref.PostingID,
		&ref.PostingUUID,
		&ref.Title,
		&ref.NormalizedTitle,
		&ref.OrgID,
		&ref.LastSeenAt,
		&ref.RepostCount,
	)
	if err != nil {
		if errors.Is(err, ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active posting by url hash: %w", err)
	}
	return &ref, nil
}

// ListTitleCandidates returns recent active postings for the same
// organization (and location, when known) for pairwise title comparison.
func (p *Pool) ListTitleCandidates(
	ctx context.Context,
	orgID *int64,
	locationID *int64,
	cutoff time.Time,
	limit int,
) ([]TitleCandidate, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	const q = `
SELECT
	p.posting_id,
	p.title,
	p.normalized_title
FROM jobs.postings p
WHERE p.is_active
  AND p.last_seen_at >= $1
  AND ($2::bigint IS NULL OR p.org_id = $2)
  AND ($3::bigint IS NULL OR p.location_id = $3)
ORDER BY p.last_seen_at DESC, p.posting_id DESC
LIMIT $4
`

	rows, err := p.Query(ctx, q, cutoff.UTC(), orgID, locationID, limit)
	if err != nil {
		return nil, fmt.Errorf("query title candidates: %w", err)
	}
	defer rows.Close()

	items := make([]TitleCandidate, 0, limit)
	for rows.Next() {
		var row TitleCandidate
		if err := rows.Scan(&row.PostingID, &row.Title, &row.NormalizedTitle); err != nil {
			return nil, fmt.Errorf("scan title candidate: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate title candidates: %w", err)
	}
	return items, nil
}

// ListContentCandidates returns recent same-org active postings together
// with their freshest stored embedding for the given model.
func (p *Pool) ListContentCandidates(
	ctx context.Context,
	orgID *int64,
	modelName string,
	cutoff time.Time,
	limit int,
) ([]ContentCandidate, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	const q = `
SELECT
	p.posting_id,
	p.title,
	pe.embedding::text
FROM jobs.postings p
JOIN LATERAL (
	SELECT e.embedding
	FROM jobs.posting_embeddings e
	WHERE e.posting_id = p.posting_id
	  AND e.model_name = $1
	ORDER BY e.embedded_at DESC
	LIMIT 1
) pe ON true
WHERE p.is_active
  AND p.last_seen_at >= $2
  AND ($3::bigint IS NULL OR p.org_id = $3)
ORDER BY p.last_seen_at DESC, p.posting_id DESC
LIMIT $4
`

	rows, err := p.Query(ctx, q, strings.TrimSpace(modelName), cutoff.UTC(), orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("query content candidates: %w", err)
	}
	defer rows.Close()

	items := make([]ContentCandidate, 0, limit)
	for rows.Next() {
		var row ContentCandidate
		if err := rows.Scan(&row.PostingID, &row.Title, &row.Embedding); err != nil {
			return nil, fmt.Errorf("scan content candidate: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content candidates: %w", err)
	}
	return items, nil
}

// UpsertActivePosting inserts a new active posting. When another active
// row already owns the canonical URL hash (a concurrent ingest of the
// same URL), the conflict is resolved in place by bumping the repost
// counter and refreshing last_seen_at. The second return value reports
// whether a new row was created.
func (p *Pool) UpsertActivePosting(ctx context.Context, posting NewPosting) (int64, bool, error) {
	const q = `
INSERT INTO jobs.postings (
	org_id,
	location_id,
	source,
	canonical_url,
	canonical_url_hash,
	title,
	normalized_title,
	description,
	requirements,
	seniority,
	role_family,
	sector,
	salary_min,
	salary_max,
	salary_currency,
	quality_score,
	language,
	is_active,
	repost_count,
	first_seen_at,
	last_seen_at,
	created_at,
	updated_at
)
VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
	$11, $12, $13, $14, $15, $16, $17, true, 0, $18, $18, $18, $18
)
ON CONFLICT (canonical_url_hash) WHERE is_active
DO UPDATE SET
	repost_count = jobs.postings.repost_count + 1,
	last_seen_at = GREATEST(jobs.postings.last_seen_at, EXCLUDED.last_seen_at),
	updated_at = EXCLUDED.updated_at
RETURNING posting_id, (xmax = 0) AS inserted
`

	seenAt := posting.SeenAt.UTC()
	var postingID int64
	var inserted bool
	err := p.QueryRow(
		ctx,
		q,
		posting.OrgID,
		posting.LocationID,
		posting.Source,
		posting.CanonicalURL,
		posting.CanonicalURLHash,
		posting.Title,
		posting.NormalizedTitle,
		posting.Description,
		posting.Requirements,
		posting.Seniority,
		posting.RoleFamily,
		posting.Sector,
		posting.SalaryMin,
		posting.SalaryMax,
		posting.SalaryCurrency,
		posting.QualityScore,
		posting.Language,
		seenAt,
	).Scan(&postingID, &inserted)
	if err != nil {
		return 0, false, fmt.Errorf("upsert active posting url=%s: %w", posting.CanonicalURL, err)
	}
	return postingID, inserted, nil
}

// InsertDuplicatePosting stores an incoming posting that resolved as a
// duplicate. The row lands inactive and pointed at its canonical record
// so the corpus keeps the full sighting history without ever serving
// the duplicate.
func (p *Pool) InsertDuplicatePosting(ctx context.Context, posting NewPosting, canonicalID int64) (int64, error) {
	const q = `
INSERT INTO jobs.postings (
	org_id,
	location_id,
	source,
	canonical_url,
	canonical_url_hash,
	title,
	normalized_title,
	description,
	requirements,
	seniority,
	role_family,
	sector,
	salary_min,
	salary_max,
	salary_currency,
	quality_score,
	language,
	is_active,
	repost_count,
	duplicate_of,
	first_seen_at,
	last_seen_at,
	created_at,
	updated_at
)
VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
	$11, $12, $13, $14, $15, $16, $17, false, 0, $18, $19, $19, $19, $19
)
RETURNING posting_id
`

	seenAt := posting.SeenAt.UTC()
	var postingID int64
	err := p.QueryRow(
		ctx,
		q,
		posting.OrgID,
		posting.LocationID,
		posting.Source,
		posting.CanonicalURL,
		posting.CanonicalURLHash,
		posting.Title,
		posting.NormalizedTitle,
		posting.Description,
		posting.Requirements,
		posting.Seniority,
		posting.RoleFamily,
		posting.Sector,
		posting.SalaryMin,
		posting.SalaryMax,
		posting.SalaryCurrency,
		posting.QualityScore,
		posting.Language,
		canonicalID,
		seenAt,
	).Scan(&postingID)
	if err != nil {
		return 0, fmt.Errorf("insert duplicate posting url=%s: %w", posting.CanonicalURL, err)
	}
	return postingID, nil
}

// MergeView is the canonical-side snapshot read before a merge decision.
type MergeView struct {
	PostingID      int64
	Description    string
	Requirements   string
	SalaryMin      *float64
	SalaryMax      *float64
	SalaryCurrency *string
	LocationID     *int64
	RepostCount    int
}

// GetMergeView loads the mergeable fields of a canonical posting.
func (p *Pool) GetMergeView(ctx context.Context, postingID int64) (*MergeView, error) {
	const q = `
SELECT
	p.posting_id,
	p.description,
	p.requirements,
	p.salary_min,
	p.salary_max,
	p.salary_currency,
	p.location_id,
	p.repost_count
FROM jobs.postings p
WHERE p.posting_id = $1
`

	var view MergeView
	err := p.QueryRow(ctx, q, postingID).Scan(
		&view.PostingID,
		&view.Description,
		&view.Requirements,
		&view.SalaryMin,
		&view.SalaryMax,
		&view.SalaryCurrency,
		&view.LocationID,
		&view.RepostCount,
	)
	if err != nil {
		if errors.Is(err, ErrNoRows) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("query merge view posting_id=%d: %w", postingID, err)
	}
	return &view, nil
}

// MergePatch lists fields to fill on the canonical posting. Nil fields
// are left untouched.
type MergePatch struct {
	Description    *string
	Requirements   *string
	SalaryMin      *float64
	SalaryMax      *float64
	SalaryCurrency *string
	LocationID     *int64
}

// ApplyMergePatch bumps the repost counter, refreshes last_seen_at, and
// fills the patched fields.
func (p *Pool) ApplyMergePatch(ctx context.Context, postingID int64, patch MergePatch, now time.Time) error {
	const q = `
UPDATE jobs.postings
SET
	repost_count = repost_count + 1,
	last_seen_at = GREATEST(last_seen_at, $2),
	description = COALESCE($3, description),
	requirements = COALESCE($4, requirements),
	salary_min = COALESCE($5, salary_min),
	salary_max = COALESCE($6, salary_max),
	salary_currency = COALESCE($7, salary_currency),
	location_id = COALESCE($8, location_id),
	updated_at = $2
WHERE posting_id = $1
`

	tag, err := p.Exec(
		ctx,
		q,
		postingID,
		now.UTC(),
		patch.Description,
		patch.Requirements,
		patch.SalaryMin,
		patch.SalaryMax,
		patch.SalaryCurrency,
		patch.LocationID,
	)
	if err != nil {
		return fmt.Errorf("apply merge patch posting_id=%d: %w", postingID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("apply merge patch posting_id=%d: no row updated", postingID)
	}
	return nil
}

// DeactivateAsDuplicate marks a posting inactive and points it at its
// canonical record. Duplicates are never deleted.
func (p *Pool) DeactivateAsDuplicate(ctx context.Context, postingID, canonicalID int64, now time.Time) error {
	const q = `
UPDATE jobs.postings
SET
	is_active = false,
	duplicate_of = $2,
	updated_at = $3
WHERE posting_id = $1
`

	if _, err := p.Exec(ctx, q, postingID, canonicalID, now.UTC()); err != nil {
		return fmt.Errorf("deactivate duplicate posting_id=%d: %w", postingID, err)
	}
	return nil
}

// DedupEventRecord is one resolver decision written to the audit log.
type DedupEventRecord struct {
	PostingID       int64
	Decision        string
	ChosenPostingID *int64
	MatchType       *string
	Confidence      *float64
	TitleSimilarity *float64
	ContentCosine   *float64
	CreatedAt       time.Time
}

// InsertDedupEvent records a resolver decision. A later decision for
// the same posting replaces the earlier one, so a reconciliation sweep
// that flips a posting from unique to merged is reflected in the audit
// row.
func (p *Pool) InsertDedupEvent(ctx context.Context, record DedupEventRecord) error {
	const q = `
INSERT INTO jobs.dedup_events (
	posting_id,
	decision,
	chosen_posting_id,
	match_type,
	confidence,
	title_similarity,
	content_cosine,
	created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (posting_id) DO UPDATE SET
	decision = EXCLUDED.decision,
	chosen_posting_id = EXCLUDED.chosen_posting_id,
	match_type = EXCLUDED.match_type,
	confidence = EXCLUDED.confidence,
	title_similarity = EXCLUDED.title_similarity,
	content_cosine = EXCLUDED.content_cosine,
	created_at = EXCLUDED.created_at
`

	_, err := p.Exec(
		ctx,
		q,
		record.PostingID,
		record.Decision,
		record.ChosenPostingID,
		record.MatchType,
		record.Confidence,
		record.TitleSimilarity,
		record.ContentCosine,
		record.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert dedup_event posting_id=%d: %w", record.PostingID, err)
	}
	return nil
}

// UpsertOrganization resolves an organization by its normalized name,
// creating it on first sight.
func (p *Pool) UpsertOrganization(ctx context.Context, name, normalizedName string, domain, sector *string, now time.Time) (int64, error) {
	trimmedName := strings.TrimSpace(name)
	trimmedNormalized := strings.TrimSpace(normalizedName)
	if trimmedName == "" || trimmedNormalized == "" {
		return 0, fmt.Errorf("organization name is required")
	}

	const q = `
INSERT INTO jobs.organizations (name, normalized_name, domain, sector, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (normalized_name)
DO UPDATE SET
	domain = COALESCE(jobs.organizations.domain, EXCLUDED.domain),
	sector = COALESCE(jobs.organizations.sector, EXCLUDED.sector),
	updated_at = EXCLUDED.updated_at
RETURNING org_id
`

	var orgID int64
	err := p.QueryRow(ctx, q, trimmedName, trimmedNormalized, domain, sector, now.UTC()).Scan(&orgID)
	if err != nil {
		return 0, fmt.Errorf("upsert organization %q: %w", trimmedNormalized, err)
	}
	return orgID, nil
}

// UpsertLocation resolves a location by its normalized key, creating it
// on first sight.
func (p *Pool) UpsertLocation(ctx context.Context, city, county *string, country, normalizedKey string, isRemote bool, now time.Time) (int64, error) {
	trimmedKey := strings.TrimSpace(normalizedKey)
	if trimmedKey == "" {
		return 0, fmt.Errorf("location key is required")
	}

	const q = `
INSERT INTO jobs.locations (city, county, country, normalized_key, is_remote, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (normalized_key) DO UPDATE SET is_remote = EXCLUDED.is_remote
RETURNING location_id
`

	var locationID int64
	err := p.QueryRow(ctx, q, city, county, strings.TrimSpace(country), trimmedKey, isRemote, now.UTC()).Scan(&locationID)
	if err != nil {
		return 0, fmt.Errorf("upsert location %q: %w", trimmedKey, err)
	}
	return locationID, nil
}

// ActivePostingDetail carries the fields needed to re-run duplicate
// resolution for a posting that is already stored.
type ActivePostingDetail struct {
	PostingID       int64
	OrgID           *int64
	LocationID      *int64
	Title           string
	NormalizedTitle string
	Description     string
	FirstSeenAt     time.Time
}

// ListRecentActivePostings returns active postings first seen since the
// cutoff, oldest first, for the reconciliation sweep.
func (p *Pool) ListRecentActivePostings(ctx context.Context, since time.Time, limit int) ([]ActivePostingDetail, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	const q = `
SELECT
	p.posting_id,
	p.org_id,
	p.location_id,
	p.title,
	p.normalized_title,
	p.description,
	p.first_seen_at
FROM jobs.postings p
WHERE p.is_active
  AND p.first_seen_at >= $1
ORDER BY p.first_seen_at ASC, p.posting_id ASC
LIMIT $2
`

	rows, err := p.Query(ctx, q, since.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("query recent active postings: %w", err)
	}
	defer rows.Close()

	items := make([]ActivePostingDetail, 0, limit)
	for rows.Next() {
		var row ActivePostingDetail
		err := rows.Scan(
			&row.PostingID,
			&row.OrgID,
			&row.LocationID,
			&row.Title,
			&row.NormalizedTitle,
			&row.Description,
			&row.FirstSeenAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan recent active posting: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent active postings: %w", err)
	}
	return items, nil
}
