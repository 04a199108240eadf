package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// InsertPostingEmbedding stores one embedding vector for a posting. The
// vector is passed as a pgvector text literal. Re-embedding the same
// posting with the same model is a no-op; the bool reports whether a
// row was written.
func (p *Pool) InsertPostingEmbedding(
	ctx context.Context,
	postingID int64,
	modelName, modelVersion, vector string,
	now time.Time,
) (bool, error) {
	if strings.TrimSpace(vector) == "" {
		return false, fmt.Errorf("embedding vector is required")
	}

	const q = `
INSERT INTO jobs.posting_embeddings (posting_id, model_name, model_version, embedding, embedded_at)
VALUES ($1, $2, $3, $4::vector, $5)
ON CONFLICT (posting_id, model_name, model_version) DO NOTHING
`

	tag, err := p.Exec(ctx, q, postingID, modelName, modelVersion, vector, now.UTC())
	if err != nil {
		return false, fmt.Errorf("insert posting embedding posting_id=%d: %w", postingID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// PostingText is one posting awaiting an embedding.
type PostingText struct {
	PostingID   int64
	Title       string
	Description string
}

// ListPostingsMissingEmbedding returns active postings that have no
// stored embedding for the given model, oldest first.
func (p *Pool) ListPostingsMissingEmbedding(
	ctx context.Context,
	modelName, modelVersion string,
	limit int,
) ([]PostingText, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	const q = `
SELECT
	p.posting_id,
	p.title,
	p.description
FROM jobs.postings p
WHERE p.is_active
  AND NOT EXISTS (
	SELECT 1
	FROM jobs.posting_embeddings e
	WHERE e.posting_id = p.posting_id
	  AND e.model_name = $1
	  AND e.model_version = $2
  )
ORDER BY p.first_seen_at ASC, p.posting_id ASC
LIMIT $3
`

	rows, err := p.Query(ctx, q, modelName, modelVersion, limit)
	if err != nil {
		return nil, fmt.Errorf("query postings missing embedding: %w", err)
	}
	defer rows.Close()

	items := make([]PostingText, 0, limit)
	for rows.Next() {
		var row PostingText
		if err := rows.Scan(&row.PostingID, &row.Title, &row.Description); err != nil {
			return nil, fmt.Errorf("scan posting text: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate postings missing embedding: %w", err)
	}
	return items, nil
}

// LatestEmbeddingsForPostings fetches the freshest stored embedding per
// posting for the given model, keyed by posting id. Postings without an
// embedding are absent from the result.
func (p *Pool) LatestEmbeddingsForPostings(
	ctx context.Context,
	postingIDs []int64,
	modelName string,
) (map[int64]string, error) {
	if len(postingIDs) == 0 {
		return map[int64]string{}, nil
	}

	placeholders := make([]string, len(postingIDs))
	args := make([]any, 0, len(postingIDs)+1)
	args = append(args, modelName)
	for i, id := range postingIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}

	q := fmt.Sprintf(`
SELECT DISTINCT ON (e.posting_id)
	e.posting_id,
	e.embedding::text
FROM jobs.posting_embeddings e
WHERE e.model_name = $1
  AND e.posting_id IN (%s)
ORDER BY e.posting_id, e.embedded_at DESC
`, strings.Join(placeholders, ", "))

	rows, err := p.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query latest embeddings: %w", err)
	}
	defer rows.Close()

	result := make(map[int64]string, len(postingIDs))
	for rows.Next() {
		var postingID int64
		var vector string
		if err := rows.Scan(&postingID, &vector); err != nil {
			return nil, fmt.Errorf("scan latest embedding: %w", err)
		}
		result[postingID] = vector
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate latest embeddings: %w", err)
	}
	return result, nil
}
