// Package ingest drives posting intake: payload validation, field
// normalization, duplicate resolution, and persistence.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"jobradar.fyi/jobradar/internal/db"
	"jobradar.fyi/jobradar/internal/embedding"
	"jobradar.fyi/jobradar/internal/globaltime"
	"jobradar.fyi/jobradar/internal/jobposting"
	"jobradar.fyi/jobradar/internal/langdetect"
	"jobradar.fyi/jobradar/internal/reader"
	payloadschema "jobradar.fyi/jobradar/schema"
)

// Dedup event decisions written to the audit log.
const (
	DecisionUnique = "unique"
	DecisionMerged = "merged"
)

// EmbedTextLimit caps the characters sent to the embedding provider.
// The model truncates to its token window anyway; clipping here keeps
// request payloads small for multi-page descriptions.
const EmbedTextLimit = 2000

// Outcome summarizes what happened to one payload.
type Outcome struct {
	PostingID   int64
	CanonicalID int64
	Duplicate   bool
	MatchType   string
	Candidates  int
}

// BatchResult aggregates one ProcessBatch run. Invalid payloads are
// counted, logged, and never abort the batch.
type BatchResult struct {
	Processed int
	Inserted  int
	Merged    int
	Invalid   int
	Failed    int
}

// Store is the persistence surface the intake flow writes through.
// *db.Pool satisfies it.
type Store interface {
	UpsertOrganization(ctx context.Context, name, normalizedName string, domain, sector *string, now time.Time) (int64, error)
	UpsertLocation(ctx context.Context, city, county *string, country, normalizedKey string, isRemote bool, now time.Time) (int64, error)
	UpsertActivePosting(ctx context.Context, posting db.NewPosting) (int64, bool, error)
	InsertDuplicatePosting(ctx context.Context, posting db.NewPosting, canonicalID int64) (int64, error)
	InsertDedupEvent(ctx context.Context, record db.DedupEventRecord) error
	InsertPostingEmbedding(ctx context.Context, postingID int64, modelName, modelVersion, vector string, now time.Time) (bool, error)
}

// Service wires the intake flow over the store, the resolver, the
// merger, and the embedding provider.
type Service struct {
	store        Store
	resolver     *jobposting.Resolver
	merger       *jobposting.Merger
	provider     embedding.Provider
	modelVersion string
	languageOf   func(title, description string) string
	logger       zerolog.Logger
}

func NewService(
	store Store,
	resolver *jobposting.Resolver,
	merger *jobposting.Merger,
	provider embedding.Provider,
	modelVersion string,
	logger zerolog.Logger,
) *Service {
	return &Service{
		store:        store,
		resolver:     resolver,
		merger:       merger,
		provider:     provider,
		modelVersion: modelVersion,
		languageOf:   detectLanguage,
		logger:       logger.With().Str("component", "ingest").Logger(),
	}
}

// ProcessBatch validates and ingests a batch of raw payloads one at a
// time. Malformed payloads are skipped; store failures on one posting
// fail only that posting.
func (s *Service) ProcessBatch(ctx context.Context, payloads []json.RawMessage) (BatchResult, error) {
	var result BatchResult
	for i, payload := range payloads {
		result.Processed++

		posting, err := payloadschema.ValidatePostingPayload(payload)
		if err != nil {
			result.Invalid++
			s.logger.Warn().Int("index", i).Err(err).Msg("skipping invalid payload")
			continue
		}

		outcome, err := s.ProcessPosting(ctx, posting)
		if err != nil {
			result.Failed++
			s.logger.Error().Int("index", i).Str("url", posting.URL).Err(err).Msg("posting ingestion failed")
			continue
		}

		if outcome.Duplicate {
			result.Merged++
		} else {
			result.Inserted++
		}
	}
	return result, nil
}

// ProcessPosting ingests one validated payload: normalize, resolve
// duplicates across the match tiers, then merge into the canonical
// record or insert a new active posting.
func (s *Service) ProcessPosting(ctx context.Context, payload *payloadschema.Posting) (*Outcome, error) {
	now := globaltime.UTC()

	prepared, err := s.prepare(ctx, payload, now)
	if err != nil {
		return nil, err
	}

	resolution, err := s.resolver.FindAllDuplicates(ctx, jobposting.Incoming{
		URLHash:         prepared.record.CanonicalURLHash,
		Title:           prepared.record.Title,
		NormalizedTitle: prepared.record.NormalizedTitle,
		Description:     prepared.record.Description,
		OrgID:           prepared.record.OrgID,
		LocationID:      prepared.record.LocationID,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve duplicates: %w", err)
	}

	if resolution.IsDuplicate {
		return s.ingestDuplicate(ctx, prepared, resolution, now)
	}
	return s.ingestUnique(ctx, prepared, resolution, now)
}

// preparedPosting is the normalized intake record plus the fields the
// merge policy may contribute.
type preparedPosting struct {
	record db.NewPosting
	merge  jobposting.MergeSource
}

func (s *Service) prepare(ctx context.Context, payload *payloadschema.Posting, now time.Time) (*preparedPosting, error) {
	canonicalURL := jobposting.NormalizeURL(payload.URL)
	if canonicalURL == "" {
		return nil, fmt.Errorf("payload url normalizes to empty")
	}

	description := ""
	if payload.Description != nil {
		description = reader.ExtractText(*payload.Description, canonicalURL)
	}
	requirements := ""
	if payload.Requirements != nil {
		requirements = reader.CleanText(*payload.Requirements)
	}

	record := db.NewPosting{
		Source:           strings.TrimSpace(payload.Source),
		CanonicalURL:     canonicalURL,
		CanonicalURLHash: jobposting.HashURL(payload.URL),
		Title:            strings.TrimSpace(payload.Title),
		NormalizedTitle:  jobposting.NormalizeTitle(payload.Title),
		Description:      description,
		Requirements:     requirements,
		Language:         s.languageOf(payload.Title, description),
		SeenAt:           seenAt(payload, now),
	}

	record.Seniority = trimmedPtr(payload.Seniority)
	record.RoleFamily = trimmedPtr(payload.RoleFamily)

	if payload.Company != nil {
		orgID, err := s.store.UpsertOrganization(
			ctx,
			payload.Company.Name,
			normalizeOrgName(payload.Company.Name),
			trimmedPtr(payload.Company.Domain),
			trimmedPtr(payload.Company.Sector),
			now,
		)
		if err != nil {
			return nil, err
		}
		record.OrgID = &orgID
		record.Sector = trimmedPtr(payload.Company.Sector)
	}

	if payload.Location != nil {
		locationID, err := s.upsertLocation(ctx, payload.Location, now)
		if err != nil {
			return nil, err
		}
		record.LocationID = locationID
	}

	if payload.Salary != nil {
		record.SalaryMin = payload.Salary.Min
		record.SalaryMax = payload.Salary.Max
		record.SalaryCurrency = trimmedPtr(payload.Salary.Currency)
	}

	record.QualityScore = qualityScore(record)

	return &preparedPosting{
		record: record,
		merge: jobposting.MergeSource{
			Description:    record.Description,
			Requirements:   record.Requirements,
			SalaryMin:      record.SalaryMin,
			SalaryMax:      record.SalaryMax,
			SalaryCurrency: record.SalaryCurrency,
			LocationID:     record.LocationID,
		},
	}, nil
}

func (s *Service) ingestDuplicate(ctx context.Context, prepared *preparedPosting, resolution *jobposting.Resolution, now time.Time) (*Outcome, error) {
	match := resolution.Match

	// Merge failures are logged, never propagated: a broken merge must
	// not abort the surrounding batch.
	if err := s.merger.Merge(ctx, match.PostingID, prepared.merge); err != nil {
		s.logger.Error().
			Int64("canonical_id", match.PostingID).
			Err(err).
			Msg("merge failed, keeping canonical record untouched")
	}

	duplicateID, err := s.store.InsertDuplicatePosting(ctx, prepared.record, match.PostingID)
	if err != nil {
		return nil, err
	}

	s.recordDedupEvent(ctx, duplicateID, DecisionMerged, match, now)

	s.logger.Info().
		Int64("posting_id", duplicateID).
		Int64("canonical_id", match.PostingID).
		Str("match_type", match.MatchType).
		Float64("confidence", match.Confidence).
		Msg("merged duplicate posting")

	return &Outcome{
		PostingID:   duplicateID,
		CanonicalID: match.PostingID,
		Duplicate:   true,
		MatchType:   match.MatchType,
		Candidates:  len(resolution.Candidates),
	}, nil
}

func (s *Service) ingestUnique(ctx context.Context, prepared *preparedPosting, resolution *jobposting.Resolution, now time.Time) (*Outcome, error) {
	postingID, inserted, err := s.store.UpsertActivePosting(ctx, prepared.record)
	if err != nil {
		return nil, err
	}

	if !inserted {
		// A concurrent ingest won the URL hash between resolution and
		// insert. The conflict clause already bumped the existing row;
		// treat it as an exact URL duplicate and fill empty fields.
		match := &jobposting.DuplicateCandidate{
			PostingID:  postingID,
			MatchType:  jobposting.MatchExactURL,
			Confidence: 1.0,
		}
		if err := s.merger.Merge(ctx, postingID, prepared.merge); err != nil {
			s.logger.Error().Int64("canonical_id", postingID).Err(err).Msg("race merge failed")
		}
		s.recordDedupEvent(ctx, postingID, DecisionMerged, match, now)
		return &Outcome{
			PostingID:   postingID,
			CanonicalID: postingID,
			Duplicate:   true,
			MatchType:   jobposting.MatchExactURL,
		}, nil
	}

	s.recordDedupEvent(ctx, postingID, DecisionUnique, nil, now)
	s.embedBestEffort(ctx, postingID, prepared.record, now)

	s.logger.Info().
		Int64("posting_id", postingID).
		Str("url", prepared.record.CanonicalURL).
		Int("candidates", len(resolution.Candidates)).
		Msg("inserted posting")

	return &Outcome{PostingID: postingID, Candidates: len(resolution.Candidates)}, nil
}

// recordDedupEvent writes the audit row; a failed audit write is noise,
// not a reason to fail intake.
func (s *Service) recordDedupEvent(ctx context.Context, postingID int64, decision string, match *jobposting.DuplicateCandidate, now time.Time) {
	event := db.DedupEventRecord{
		PostingID: postingID,
		Decision:  decision,
		CreatedAt: now,
	}
	if match != nil {
		event.ChosenPostingID = &match.PostingID
		matchType := match.MatchType
		event.MatchType = &matchType
		confidence := match.Confidence
		event.Confidence = &confidence
		switch match.MatchType {
		case jobposting.MatchFuzzyTitleCompany:
			event.TitleSimilarity = &confidence
		case jobposting.MatchContentSimilarity:
			event.ContentCosine = &confidence
		}
	}

	if err := s.store.InsertDedupEvent(ctx, event); err != nil {
		s.logger.Warn().Int64("posting_id", postingID).Err(err).Msg("dedup event write failed")
	}
}

// embedBestEffort stores the description embedding for a fresh posting
// when the provider is up. Failures only delay the posting until the
// next backfill run.
func (s *Service) embedBestEffort(ctx context.Context, postingID int64, record db.NewPosting, now time.Time) {
	if len(record.Description) < 50 {
		return
	}

	text, _ := reader.TruncateText(record.Description, EmbedTextLimit)
	vector, err := s.provider.Embed(ctx, text)
	if err != nil {
		s.logger.Debug().Int64("posting_id", postingID).Err(err).Msg("embedding deferred to backfill")
		return
	}

	literal := embedding.VectorLiteral(vector)
	if _, err := s.store.InsertPostingEmbedding(ctx, postingID, s.provider.ModelName(), s.modelVersion, literal, now); err != nil {
		s.logger.Warn().Int64("posting_id", postingID).Err(err).Msg("embedding write failed")
	}
}

func seenAt(payload *payloadschema.Posting, now time.Time) time.Time {
	if payload.PostedAt != nil {
		if parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(*payload.PostedAt)); err == nil && parsed.Before(now) {
			return parsed.UTC()
		}
	}
	return now
}

func detectLanguage(title, description string) string {
	sample := strings.TrimSpace(title + " " + description)
	if iso := langdetect.DetectISO6391(sample); iso != "" {
		return iso
	}
	return "und"
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func normalizeOrgName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for _, suffix := range []string{" limited", " ltd.", " ltd", " plc", " inc.", " inc", " llc", " gmbh"} {
		normalized = strings.TrimSuffix(normalized, suffix)
	}
	return strings.Join(strings.Fields(normalized), " ")
}

func (s *Service) upsertLocation(ctx context.Context, location *payloadschema.Location, now time.Time) (*int64, error) {
	city := trimmedPtr(location.City)
	county := trimmedPtr(location.County)
	country := "IE"
	if location.Country != nil && strings.TrimSpace(*location.Country) != "" {
		country = strings.ToUpper(strings.TrimSpace(*location.Country))
	}
	isRemote := location.Remote != nil && *location.Remote

	parts := []string{strings.ToLower(country)}
	if county != nil {
		parts = append(parts, strings.ToLower(*county))
	}
	if city != nil {
		parts = append(parts, strings.ToLower(*city))
	}
	if isRemote {
		parts = append(parts, "remote")
	}
	key := strings.Join(parts, "/")
	if key == strings.ToLower(country) && !isRemote {
		return nil, nil
	}

	locationID, err := s.store.UpsertLocation(ctx, city, county, country, key, isRemote, now)
	if err != nil {
		return nil, err
	}
	return &locationID, nil
}

// qualityScore is a coarse completeness signal in [0, 1] used by the
// search filters, not a ranking feature.
func qualityScore(record db.NewPosting) float64 {
	score := 0.2
	if len(record.Description) >= 200 {
		score += 0.3
	} else if len(record.Description) >= 50 {
		score += 0.15
	}
	if record.SalaryMin != nil || record.SalaryMax != nil {
		score += 0.2
	}
	if record.OrgID != nil {
		score += 0.15
	}
	if record.LocationID != nil {
		score += 0.15
	}
	if score > 1 {
		score = 1
	}
	return score
}
