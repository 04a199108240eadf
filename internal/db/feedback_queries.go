package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// InsertInteractionEvent records one search interaction for later
// training.
func (p *Pool) InsertInteractionEvent(
	ctx context.Context,
	queryText string,
	postingID int64,
	eventType string,
	occurredAt time.Time,
) error {
	trimmedType := strings.TrimSpace(eventType)
	if trimmedType == "" {
		return fmt.Errorf("event type is required")
	}

	const q = `
INSERT INTO jobs.interaction_events (query_text, posting_id, event_type, occurred_at)
VALUES ($1, $2, $3, $4)
`

	_, err := p.Exec(ctx, q, strings.TrimSpace(queryText), postingID, trimmedType, occurredAt.UTC())
	if err != nil {
		return fmt.Errorf("insert interaction event posting_id=%d: %w", postingID, err)
	}
	return nil
}

// TrainingInteraction joins one interaction event with the posting
// fields the trainer needs to rebuild the feature vector.
type TrainingInteraction struct {
	QueryText       string
	PostingID       int64
	EventType       string
	OccurredAt      time.Time
	Title           string
	NormalizedTitle string
	Description     string
	Seniority       *string
	City            *string
	County          *string
	SalaryMin       *float64
	SalaryMax       *float64
	LastSeenAt      time.Time
}

// ListTrainingInteractions returns all interaction events in the window
// joined to their postings, oldest first.
func (p *Pool) ListTrainingInteractions(ctx context.Context, from, to time.Time) ([]TrainingInteraction, error) {
	const q = `
SELECT
	e.query_text,
	e.posting_id,
	e.event_type,
	e.occurred_at,
	p.title,
	p.normalized_title,
	p.description,
	p.seniority,
	l.city,
	l.county,
	p.salary_min,
	p.salary_max,
	p.last_seen_at
FROM jobs.interaction_events e
JOIN jobs.postings p ON p.posting_id = e.posting_id
LEFT JOIN jobs.locations l ON l.location_id = p.location_id
WHERE e.occurred_at >= $1
  AND e.occurred_at < $2
ORDER BY e.occurred_at ASC, e.event_id ASC
`

	rows, err := p.Query(ctx, q, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("query training interactions: %w", err)
	}
	defer rows.Close()

	var items []TrainingInteraction
	for rows.Next() {
		var row TrainingInteraction
		err := rows.Scan(
			&row.QueryText,
			&row.PostingID,
			&row.EventType,
			&row.OccurredAt,
			&row.Title,
			&row.NormalizedTitle,
			&row.Description,
			&row.Seniority,
			&row.City,
			&row.County,
			&row.SalaryMin,
			&row.SalaryMax,
			&row.LastSeenAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan training interaction: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate training interactions: %w", err)
	}
	return items, nil
}
