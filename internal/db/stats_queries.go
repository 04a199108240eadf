package db

import (
	"context"
	"fmt"
	"time"
)

// CorpusStats summarizes the stored corpus for the stats command.
type CorpusStats struct {
	ActivePostings    int64
	DuplicatePostings int64
	Organizations     int64
	Locations         int64
	EmbeddedPostings  int64
	PendingEmbedding  int64
	DedupEventsToday  int64
	InteractionsToday int64
	NewestFirstSeenAt *time.Time
	OldestFirstSeenAt *time.Time
}

// QueryCorpusStats aggregates corpus counters in one round trip.
func (p *Pool) QueryCorpusStats(ctx context.Context, modelName, modelVersion string, dayStart time.Time) (*CorpusStats, error) {
	const q = `
SELECT
	(SELECT COUNT(*) FROM jobs.postings WHERE is_active) AS active_postings,
	(SELECT COUNT(*) FROM jobs.postings WHERE NOT is_active AND duplicate_of IS NOT NULL) AS duplicate_postings,
	(SELECT COUNT(*) FROM jobs.organizations) AS organizations,
	(SELECT COUNT(*) FROM jobs.locations) AS locations,
	(SELECT COUNT(DISTINCT e.posting_id)
		FROM jobs.posting_embeddings e
		JOIN jobs.postings p ON p.posting_id = e.posting_id
		WHERE p.is_active AND e.model_name = $1 AND e.model_version = $2) AS embedded_postings,
	(SELECT COUNT(*)
		FROM jobs.postings p
		WHERE p.is_active
		  AND NOT EXISTS (
			SELECT 1 FROM jobs.posting_embeddings e
			WHERE e.posting_id = p.posting_id
			  AND e.model_name = $1
			  AND e.model_version = $2
		  )) AS pending_embedding,
	(SELECT COUNT(*) FROM jobs.dedup_events WHERE created_at >= $3) AS dedup_events_today,
	(SELECT COUNT(*) FROM jobs.interaction_events WHERE occurred_at >= $3) AS interactions_today,
	(SELECT MAX(first_seen_at) FROM jobs.postings WHERE is_active) AS newest_first_seen,
	(SELECT MIN(first_seen_at) FROM jobs.postings WHERE is_active) AS oldest_first_seen
`

	var stats CorpusStats
	err := p.QueryRow(ctx, q, modelName, modelVersion, dayStart.UTC()).Scan(
		&stats.ActivePostings,
		&stats.DuplicatePostings,
		&stats.Organizations,
		&stats.Locations,
		&stats.EmbeddedPostings,
		&stats.PendingEmbedding,
		&stats.DedupEventsToday,
		&stats.InteractionsToday,
		&stats.NewestFirstSeenAt,
		&stats.OldestFirstSeenAt,
	)
	if err != nil {
		return nil, fmt.Errorf("query corpus stats: %w", err)
	}
	return &stats, nil
}
