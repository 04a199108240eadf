package ranking

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"jobradar.fyi/jobradar/internal/db"
	"jobradar.fyi/jobradar/internal/globaltime"
)

// ErrInsufficientExamples reports that the interaction window does not
// hold enough positive labels to train a usable model.
var ErrInsufficientExamples = errors.New("not enough positive training examples")

// Interaction event types written by the feedback endpoint.
const (
	EventImpression = "impression"
	EventClick      = "click"
	EventApply      = "apply"
)

// negativesPerPositive bounds how many non-clicked impressions are
// sampled per positive label, keeping the classes roughly balanced.
const negativesPerPositive = 2

// TrainingStore is the persistence surface the trainer reads from.
type TrainingStore interface {
	ListTrainingInteractions(ctx context.Context, from, to time.Time) ([]db.TrainingInteraction, error)
}

// Trainer rebuilds the ranking artifact from implicit feedback: clicks
// and applies are positives, sampled same-period impressions without a
// positive are negatives.
type Trainer struct {
	store        TrainingStore
	minPositives int
	logger       zerolog.Logger
}

func NewTrainer(store TrainingStore, minPositives int, logger zerolog.Logger) *Trainer {
	if minPositives < 1 {
		minPositives = 1
	}
	return &Trainer{
		store:        store,
		minPositives: minPositives,
		logger:       logger.With().Str("component", "trainer").Logger(),
	}
}

// Train fits a new model over the interaction window and returns the
// artifact ready to persist. Training is refused, not degraded, when
// positives are scarce.
func (t *Trainer) Train(ctx context.Context, from, to time.Time) (*Artifact, error) {
	interactions, err := t.store.ListTrainingInteractions(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load training interactions: %w", err)
	}

	type pairKey struct {
		query     string
		postingID int64
	}

	positiveKeys := make(map[pairKey]struct{})
	for _, interaction := range interactions {
		if interaction.EventType == EventClick || interaction.EventType == EventApply {
			positiveKeys[pairKey{interaction.QueryText, interaction.PostingID}] = struct{}{}
		}
	}

	var positives, negatives [][]float64
	seenPositive := make(map[pairKey]struct{})
	var negativePool [][]float64
	seenNegative := make(map[pairKey]struct{})

	for _, interaction := range interactions {
		key := pairKey{interaction.QueryText, interaction.PostingID}
		features := interactionFeatures(interaction)

		switch interaction.EventType {
		case EventClick, EventApply:
			if _, dup := seenPositive[key]; dup {
				continue
			}
			seenPositive[key] = struct{}{}
			positives = append(positives, features)
		case EventImpression:
			if _, clicked := positiveKeys[key]; clicked {
				continue
			}
			if _, dup := seenNegative[key]; dup {
				continue
			}
			seenNegative[key] = struct{}{}
			negativePool = append(negativePool, features)
		}
	}

	if len(positives) < t.minPositives {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientExamples, len(positives), t.minPositives)
	}
	if len(negativePool) == 0 {
		return nil, fmt.Errorf("%w: no negative impressions in window", ErrInsufficientExamples)
	}

	rand.Shuffle(len(negativePool), func(i, j int) {
		negativePool[i], negativePool[j] = negativePool[j], negativePool[i]
	})
	maxNegatives := len(positives) * negativesPerPositive
	if maxNegatives > len(negativePool) {
		maxNegatives = len(negativePool)
	}
	negatives = negativePool[:maxNegatives]

	features := make([][]float64, 0, len(positives)+len(negatives))
	labels := make([]float64, 0, len(positives)+len(negatives))
	for _, row := range positives {
		features = append(features, row)
		labels = append(labels, 1)
	}
	for _, row := range negatives {
		features = append(features, row)
		labels = append(labels, 0)
	}

	model, err := TrainLogistic(features, labels)
	if err != nil {
		return nil, fmt.Errorf("fit logistic model: %w", err)
	}

	t.logger.Info().
		Int("positives", len(positives)).
		Int("negatives", len(negatives)).
		Time("window_from", from).
		Time("window_to", to).
		Msg("trained ranking model")

	return &Artifact{
		Version:       artifactVersion,
		FeatureCount:  FeatureCount,
		Weights:       model.Weights,
		TrainedAt:     globaltime.UTC(),
		PositiveCount: len(positives),
		NegativeCount: len(negatives),
	}, nil
}

// interactionFeatures rebuilds the scoring-time feature vector from a
// logged interaction. Semantic similarity is not logged, so the
// neutral value stands in for it on both classes.
func interactionFeatures(interaction db.TrainingInteraction) []float64 {
	input := FeatureInput{
		QueryText:       interaction.QueryText,
		Title:           interaction.Title,
		NormalizedTitle: interaction.NormalizedTitle,
		HasSalary:       interaction.SalaryMin != nil || interaction.SalaryMax != nil,
	}
	if interaction.Seniority != nil {
		input.Seniority = *interaction.Seniority
	}
	if interaction.City != nil {
		input.City = *interaction.City
	}
	if interaction.County != nil {
		input.County = *interaction.County
	}
	return BuildFeatures(input)
}
