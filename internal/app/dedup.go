package app

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"jobradar.fyi/jobradar/internal/cli"
	"jobradar.fyi/jobradar/internal/db"
	"jobradar.fyi/jobradar/internal/embedding"
	"jobradar.fyi/jobradar/internal/globaltime"
	"jobradar.fyi/jobradar/internal/ingest"
	"jobradar.fyi/jobradar/internal/jobposting"
)

// runDedup sweeps recently ingested active postings back through the
// fuzzy and content match tiers. Postings that now resolve as
// duplicates are merged into their canonical record and deactivated.
func runDedup(args []string) int {
	fs := flag.NewFlagSet("dedup", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	sinceDaysFlag := fs.Int("since-days", 7, "Sweep postings first seen within this many days")
	limitFlag := fs.Int("limit", 1000, "Maximum number of postings to sweep")
	timeoutFlag := fs.Duration("timeout", 15*time.Minute, "Overall sweep timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *sinceDaysFlag < 1 || *limitFlag < 1 {
		fmt.Fprintln(os.Stderr, "Error: --since-days and --limit must be >= 1")
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	rt, err := initRuntime(ctx, envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer rt.close()

	provider, err := embedding.NewProvider(rt.cfg, rt.logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	window := time.Duration(rt.cfg.DedupWindowDays) * 24 * time.Hour
	resolver := jobposting.NewResolver(rt.pool, provider, window, rt.logger)
	merger := jobposting.NewMerger(rt.pool, rt.logger)

	since := globaltime.UTC().AddDate(0, 0, -*sinceDaysFlag)
	postings, err := rt.pool.ListRecentActivePostings(ctx, since, *limitFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	var swept, merged, failed int
	for _, posting := range postings {
		swept++

		resolution, err := resolver.FindAllDuplicates(ctx, jobposting.Incoming{
			PostingID:       posting.PostingID,
			Title:           posting.Title,
			NormalizedTitle: posting.NormalizedTitle,
			Description:     posting.Description,
			OrgID:           posting.OrgID,
			LocationID:      posting.LocationID,
		})
		if err != nil {
			failed++
			rt.logger.Error().Int64("posting_id", posting.PostingID).Err(err).Msg("reconcile resolution failed")
			continue
		}
		if !resolution.IsDuplicate || resolution.Match == nil {
			continue
		}

		if err := reconcileDuplicate(ctx, rt.pool, merger, rt.logger, posting.PostingID, resolution.Match); err != nil {
			failed++
			rt.logger.Error().Int64("posting_id", posting.PostingID).Err(err).Msg("reconcile merge failed")
			continue
		}
		merged++
	}

	fmt.Printf("swept=%d merged=%d failed=%d\n", swept, merged, failed)
	if failed > 0 {
		return 1
	}
	return 0
}

// reconcileStore is the slice of the pool the sweep writes through.
type reconcileStore interface {
	GetMergeView(ctx context.Context, postingID int64) (*db.MergeView, error)
	DeactivateAsDuplicate(ctx context.Context, postingID, canonicalID int64, now time.Time) error
	InsertDedupEvent(ctx context.Context, record db.DedupEventRecord) error
}

// reconcileDuplicate folds the surviving fields of the duplicate into
// the canonical posting, marks it inactive, and records the decision.
func reconcileDuplicate(ctx context.Context, store reconcileStore, merger *jobposting.Merger, logger zerolog.Logger, postingID int64, match *jobposting.DuplicateCandidate) error {
	view, err := store.GetMergeView(ctx, postingID)
	if err != nil {
		return fmt.Errorf("load duplicate fields: %w", err)
	}

	if view != nil {
		// A failed merge never blocks the deactivation; the canonical
		// record just misses the backfill until the next sweep.
		err := merger.Merge(ctx, match.PostingID, jobposting.MergeSource{
			Description:    view.Description,
			Requirements:   view.Requirements,
			SalaryMin:      view.SalaryMin,
			SalaryMax:      view.SalaryMax,
			SalaryCurrency: view.SalaryCurrency,
			LocationID:     view.LocationID,
		})
		if err != nil {
			logger.Warn().
				Int64("posting_id", postingID).
				Int64("canonical_id", match.PostingID).
				Err(err).
				Msg("reconcile merge failed, deactivating anyway")
		}
	}

	now := globaltime.UTC()
	if err := store.DeactivateAsDuplicate(ctx, postingID, match.PostingID, now); err != nil {
		return err
	}

	event := db.DedupEventRecord{
		PostingID:       postingID,
		Decision:        ingest.DecisionMerged,
		ChosenPostingID: &match.PostingID,
		MatchType:       &match.MatchType,
		Confidence:      &match.Confidence,
		CreatedAt:       now,
	}
	switch match.MatchType {
	case jobposting.MatchFuzzyTitleCompany:
		event.TitleSimilarity = &match.Confidence
	case jobposting.MatchContentSimilarity:
		event.ContentCosine = &match.Confidence
	}
	if err := store.InsertDedupEvent(ctx, event); err != nil {
		logger.Warn().Int64("posting_id", postingID).Err(err).Msg("dedup event write failed")
	}
	return nil
}
