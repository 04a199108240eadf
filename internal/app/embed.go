package app

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	"jobradar.fyi/jobradar/internal/cli"
	"jobradar.fyi/jobradar/internal/db"
	"jobradar.fyi/jobradar/internal/embedding"
	"jobradar.fyi/jobradar/internal/globaltime"
	"jobradar.fyi/jobradar/internal/ingest"
	"jobradar.fyi/jobradar/internal/reader"
)

const minEmbedDescriptionChars = 50

func runEmbed(args []string) int {
	fs := flag.NewFlagSet("embed", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	limitFlag := fs.Int("limit", 500, "Maximum number of postings to backfill")
	batchSizeFlag := fs.Int("batch-size", 16, "Postings per provider request")
	workersFlag := fs.Int("workers", 4, "Concurrent provider requests")
	timeoutFlag := fs.Duration("timeout", 15*time.Minute, "Overall backfill timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *limitFlag < 1 || *batchSizeFlag < 1 || *workersFlag < 1 {
		fmt.Fprintln(os.Stderr, "Error: --limit, --batch-size, and --workers must be >= 1")
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

	pending, err := rt.pool.ListPostingsMissingEmbedding(ctx, provider.ModelName(), rt.cfg.EmbeddingModelVersion, *limitFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if len(pending) == 0 {
		fmt.Println("nothing to embed")
		return 0
	}

	backfill := &embedBackfill{
		pool:         rt.pool,
		provider:     provider,
		modelVersion: rt.cfg.EmbeddingModelVersion,
		logger:       rt.logger,
	}

	workerPool, err := ants.NewPool(*workersFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer workerPool.Release()

	var wg sync.WaitGroup
	for start := 0; start < len(pending); start += *batchSizeFlag {
		end := start + *batchSizeFlag
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		wg.Add(1)
		submitErr := workerPool.Submit(func() {
			defer wg.Done()
			backfill.processBatch(ctx, batch)
		})
		if submitErr != nil {
			wg.Done()
			backfill.recordFailed(len(batch))
			rt.logger.Error().Err(submitErr).Msg("worker submit failed")
		}
	}
	wg.Wait()

	embedded, skipped, failed := backfill.totals()
	fmt.Printf("embedded=%d skipped=%d failed=%d\n", embedded, skipped, failed)
	if failed > 0 {
		return 1
	}
	return 0
}

// embedBackfill tracks counters across concurrent batches.
type embedBackfill struct {
	pool         *db.Pool
	provider     embedding.Provider
	modelVersion string
	logger       zerolog.Logger

	mu       sync.Mutex
	embedded int
	skipped  int
	failed   int
}

func (b *embedBackfill) processBatch(ctx context.Context, batch []db.PostingText) {
	eligible := make([]db.PostingText, 0, len(batch))
	for _, posting := range batch {
		if len(posting.Description) < minEmbedDescriptionChars {
			b.recordSkipped(1)
			continue
		}
		eligible = append(eligible, posting)
	}
	if len(eligible) == 0 {
		return
	}

	vectors, err := b.embedTexts(ctx, eligible)
	if err != nil {
		b.recordFailed(len(eligible))
		b.logger.Warn().Err(err).Int("batch", len(eligible)).Msg("embedding batch failed")
		return
	}

	now := globaltime.UTC()
	for i, posting := range eligible {
		literal := embedding.VectorLiteral(vectors[i])
		written, err := b.pool.InsertPostingEmbedding(ctx, posting.PostingID, b.provider.ModelName(), b.modelVersion, literal, now)
		if err != nil {
			b.recordFailed(1)
			b.logger.Warn().Int64("posting_id", posting.PostingID).Err(err).Msg("embedding write failed")
			continue
		}
		if written {
			b.recordEmbedded(1)
		} else {
			b.recordSkipped(1)
		}
	}
}

// embedTexts prefers the provider's batch endpoint and falls back to
// one request per posting.
func (b *embedBackfill) embedTexts(ctx context.Context, postings []db.PostingText) ([][]float64, error) {
	texts := make([]string, len(postings))
	for i, posting := range postings {
		texts[i], _ = reader.TruncateText(posting.Description, ingest.EmbedTextLimit)
	}

	if batcher, ok := b.provider.(embedding.BatchProvider); ok {
		vectors, err := batcher.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("provider returned %d vectors for %d texts", len(vectors), len(texts))
		}
		return vectors, nil
	}

	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vector, err := b.provider.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vector
	}
	return vectors, nil
}

func (b *embedBackfill) recordEmbedded(n int) {
	b.mu.Lock()
	b.embedded += n
	b.mu.Unlock()
}

func (b *embedBackfill) recordSkipped(n int) {
	b.mu.Lock()
	b.skipped += n
	b.mu.Unlock()
}

func (b *embedBackfill) recordFailed(n int) {
	b.mu.Lock()
	b.failed += n
	b.mu.Unlock()
}

func (b *embedBackfill) totals() (embedded, skipped, failed int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.embedded, b.skipped, b.failed
}
