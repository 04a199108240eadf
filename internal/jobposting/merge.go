package jobposting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"jobradar.fyi/jobradar/internal/db"
	"jobradar.fyi/jobradar/internal/globaltime"
)

// MergeSource carries the incoming posting fields eligible for merging
// into a canonical record.
type MergeSource struct {
	Description    string
	Requirements   string
	SalaryMin      *float64
	SalaryMax      *float64
	SalaryCurrency *string
	LocationID     *int64
}

// MergeStore is the persistence surface the merger writes through.
type MergeStore interface {
	GetMergeView(ctx context.Context, postingID int64) (*db.MergeView, error)
	ApplyMergePatch(ctx context.Context, postingID int64, patch db.MergePatch, now time.Time) error
}

// Merger folds duplicate postings into their canonical record.
type Merger struct {
	store  MergeStore
	logger zerolog.Logger
}

func NewMerger(store MergeStore, logger zerolog.Logger) *Merger {
	return &Merger{
		store:  store,
		logger: logger.With().Str("component", "merger").Logger(),
	}
}

// ComputeMergePatch decides what the duplicate contributes to the
// canonical record. Only empty canonical fields are filled; existing
// values are never overwritten. The salary triple moves as a unit so a
// min from one source is never paired with a max from another.
func ComputeMergePatch(canonical db.MergeView, incoming MergeSource) db.MergePatch {
	var patch db.MergePatch

	if strings.TrimSpace(canonical.Description) == "" {
		if desc := strings.TrimSpace(incoming.Description); desc != "" {
			patch.Description = &desc
		}
	}
	if strings.TrimSpace(canonical.Requirements) == "" {
		if reqs := strings.TrimSpace(incoming.Requirements); reqs != "" {
			patch.Requirements = &reqs
		}
	}
	if canonical.SalaryMin == nil && canonical.SalaryMax == nil && canonical.SalaryCurrency == nil {
		if incoming.SalaryMin != nil || incoming.SalaryMax != nil {
			patch.SalaryMin = incoming.SalaryMin
			patch.SalaryMax = incoming.SalaryMax
			patch.SalaryCurrency = incoming.SalaryCurrency
		}
	}
	if canonical.LocationID == nil && incoming.LocationID != nil {
		patch.LocationID = incoming.LocationID
	}

	return patch
}

// Merge applies the fill-empty policy to the canonical posting, bumping
// its repost counter and refreshing its last-seen time even when the
// duplicate contributes no new fields.
func (m *Merger) Merge(ctx context.Context, canonicalID int64, incoming MergeSource) error {
	view, err := m.store.GetMergeView(ctx, canonicalID)
	if err != nil {
		return fmt.Errorf("read canonical posting %d: %w", canonicalID, err)
	}

	patch := ComputeMergePatch(*view, incoming)
	if err := m.store.ApplyMergePatch(ctx, canonicalID, patch, globaltime.UTC()); err != nil {
		return fmt.Errorf("merge into posting %d: %w", canonicalID, err)
	}

	m.logger.Debug().
		Int64("canonical_id", canonicalID).
		Bool("filled_description", patch.Description != nil).
		Bool("filled_salary", patch.SalaryMin != nil || patch.SalaryMax != nil).
		Msg("merged duplicate posting")
	return nil
}
