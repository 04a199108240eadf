package ranking

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"jobradar.fyi/jobradar/internal/db"
)

func ptrFloat64(v float64) *float64 { return &v }

func ptrString(v string) *string { return &v }

func TestBuildFeaturesOrdering(t *testing.T) {
	t.Parallel()

	features := BuildFeatures(FeatureInput{
		SemanticSimilarity: ptrFloat64(0.8),
		QueryText:          "senior engineer dublin",
		Title:              "Senior Engineer",
		NormalizedTitle:    "senior engineer",
		Seniority:          "senior",
		City:               "Dublin",
		HasSalary:          true,
	})

	if len(features) != FeatureCount {
		t.Fatalf("expected %d features, got %d", FeatureCount, len(features))
	}
	if features[featSemanticSimilarity] != 0.8 {
		t.Fatalf("semantic similarity misplaced: %v", features)
	}
	if features[featTitleMatch] != 0 {
		t.Fatalf("query with extra tokens must not count as literal title match: %v", features)
	}
	if features[featRecency] != neutralRecency {
		t.Fatalf("recency must hold the neutral placeholder: %v", features)
	}
	if features[featSeniorityMatch] != 1 || features[featLocationMatch] != 1 || features[featHasSalary] != 1 {
		t.Fatalf("binary signals misplaced: %v", features)
	}
	if features[featDescriptionMatch] != 0 || features[featSkillOverlap] != 0 {
		t.Fatalf("reserved slots must stay zero: %v", features)
	}
}

func TestBuildFeaturesNeutralWithoutSimilarity(t *testing.T) {
	t.Parallel()

	features := BuildFeatures(FeatureInput{QueryText: "nurse", Title: "Staff Nurse"})
	if features[featSemanticSimilarity] != 0.5 {
		t.Fatalf("missing similarity must map to 0.5, got %f", features[featSemanticSimilarity])
	}
	if features[featTitleMatch] != 1 {
		t.Fatalf("query contained in title must set the title match bit")
	}
}

func TestTrainLogisticSeparatesToyData(t *testing.T) {
	t.Parallel()

	var features [][]float64
	var labels []float64
	for i := 0; i < 40; i++ {
		positive := BuildFeatures(FeatureInput{SemanticSimilarity: ptrFloat64(0.9), HasSalary: true})
		negative := BuildFeatures(FeatureInput{SemanticSimilarity: ptrFloat64(0.1)})
		features = append(features, positive, negative)
		labels = append(labels, 1, 0)
	}

	model, err := TrainLogistic(features, labels)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	high, err := model.Score(BuildFeatures(FeatureInput{SemanticSimilarity: ptrFloat64(0.9), HasSalary: true}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	low, err := model.Score(BuildFeatures(FeatureInput{SemanticSimilarity: ptrFloat64(0.1)}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if high <= low {
		t.Fatalf("separable classes not separated: high=%f low=%f", high, low)
	}
	if high <= 0.5 || low >= 0.5 {
		t.Fatalf("expected confident scores, got high=%f low=%f", high, low)
	}
}

func TestTrainLogisticRejectsBadInput(t *testing.T) {
	t.Parallel()

	if _, err := TrainLogistic(nil, nil); err == nil {
		t.Fatalf("expected error for empty training set")
	}
	if _, err := TrainLogistic([][]float64{{1, 2}}, []float64{1}); err == nil {
		t.Fatalf("expected error for wrong feature count")
	}
	if _, err := TrainLogistic([][]float64{make([]float64, FeatureCount)}, []float64{0.5}); err == nil {
		t.Fatalf("expected error for non-binary label")
	}
}

func TestArtifactRoundTripAndBackup(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ranker.json")
	weights := make([]float64, FeatureCount+1)
	weights[0] = -0.5
	weights[1] = 2.0

	first := &Artifact{
		Version:       artifactVersion,
		FeatureCount:  FeatureCount,
		Weights:       weights,
		TrainedAt:     time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		PositiveCount: 60,
		NegativeCount: 120,
	}
	if err := SaveArtifact(path, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := LoadArtifact(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.PositiveCount != 60 || loaded.Weights[1] != 2.0 {
		t.Fatalf("artifact content changed on round trip: %+v", loaded)
	}

	second := *first
	second.PositiveCount = 75
	if err := SaveArtifact(path, &second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(path + ".prev"); err != nil {
		t.Fatalf("previous artifact must be kept as backup: %v", err)
	}

	reloaded, err := LoadArtifact(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reloaded.PositiveCount != 75 {
		t.Fatalf("retraining must overwrite the live artifact, got %d", reloaded.PositiveCount)
	}
}

func TestLoadArtifactMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadArtifact(filepath.Join(t.TempDir(), "absent.json"))
	if !errors.Is(err, ErrNoArtifact) {
		t.Fatalf("expected ErrNoArtifact, got %v", err)
	}
}

func TestHeuristicRankerSortsSimilarityDescending(t *testing.T) {
	t.Parallel()

	candidates := []Candidate{
		{Index: 0, Similarity: nil},
		{Index: 1, Similarity: ptrFloat64(0.4)},
		{Index: 2, Similarity: ptrFloat64(0.9)},
		{Index: 3, Similarity: nil},
	}

	ranked, strategy := HeuristicRanker{}.Rank(candidates)
	if strategy != StrategyHeuristic {
		t.Fatalf("expected heuristic strategy, got %q", strategy)
	}
	wantOrder := []int{2, 1, 0, 3}
	for i, want := range wantOrder {
		if ranked[i].Index != want {
			t.Fatalf("unexpected order at %d: got %d want %d (%+v)", i, ranked[i].Index, want, ranked)
		}
	}
}

func TestLearnedRankerFallsBackWithoutArtifact(t *testing.T) {
	t.Parallel()

	ranker := NewLearnedRanker(filepath.Join(t.TempDir(), "absent.json"), zerolog.Nop())
	candidates := []Candidate{
		{Index: 0, Features: make([]float64, FeatureCount), Similarity: ptrFloat64(0.2)},
		{Index: 1, Features: make([]float64, FeatureCount), Similarity: ptrFloat64(0.8)},
	}

	ranked, strategy := ranker.Rank(candidates)
	if len(ranked) != 2 || ranked[0].Index != 1 {
		t.Fatalf("expected similarity order fallback, got %+v", ranked)
	}
	if strategy != StrategyHeuristic {
		t.Fatalf("a missing artifact must report the heuristic strategy, got %q", strategy)
	}
}

func TestLearnedRankerFallsBackOnCorruptArtifact(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ranker.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ranker := NewLearnedRanker(path, zerolog.Nop())
	candidates := []Candidate{
		{Index: 0, Features: make([]float64, FeatureCount), Similarity: ptrFloat64(0.3)},
		{Index: 1, Features: make([]float64, FeatureCount), Similarity: ptrFloat64(0.6)},
	}

	ranked, strategy := ranker.Rank(candidates)
	if ranked[0].Index != 1 {
		t.Fatalf("corrupt artifact must degrade to heuristic order, got %+v", ranked)
	}
	if strategy != StrategyHeuristic {
		t.Fatalf("a corrupt artifact must report the heuristic strategy, got %q", strategy)
	}
}

func TestLearnedRankerUsesStoredWeights(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ranker.json")
	weights := make([]float64, FeatureCount+1)
	weights[1+featHasSalary] = 4.0
	artifact := &Artifact{
		Version:      artifactVersion,
		FeatureCount: FeatureCount,
		Weights:      weights,
		TrainedAt:    time.Now().UTC(),
	}
	if err := SaveArtifact(path, artifact); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	withSalary := BuildFeatures(FeatureInput{HasSalary: true})
	withoutSalary := BuildFeatures(FeatureInput{})

	ranker := NewLearnedRanker(path, zerolog.Nop())
	ranked, strategy := ranker.Rank([]Candidate{
		{Index: 0, Features: withoutSalary, Similarity: ptrFloat64(0.9)},
		{Index: 1, Features: withSalary, Similarity: ptrFloat64(0.1)},
	})
	if ranked[0].Index != 1 {
		t.Fatalf("learned weights must override similarity order, got %+v", ranked)
	}
	if strategy != StrategyLearned {
		t.Fatalf("a valid artifact must report the learned strategy, got %q", strategy)
	}
}

type fakeTrainingStore struct {
	rows []db.TrainingInteraction
}

func (f *fakeTrainingStore) ListTrainingInteractions(context.Context, time.Time, time.Time) ([]db.TrainingInteraction, error) {
	return f.rows, nil
}

func TestTrainerRefusesSparsePositives(t *testing.T) {
	t.Parallel()

	store := &fakeTrainingStore{
		rows: []db.TrainingInteraction{
			{QueryText: "nurse", PostingID: 1, EventType: EventClick, Title: "Staff Nurse"},
			{QueryText: "nurse", PostingID: 2, EventType: EventImpression, Title: "Porter"},
		},
	}
	trainer := NewTrainer(store, 10, zerolog.Nop())

	_, err := trainer.Train(context.Background(), time.Now().Add(-time.Hour), time.Now())
	if !errors.Is(err, ErrInsufficientExamples) {
		t.Fatalf("expected ErrInsufficientExamples, got %v", err)
	}
}

func TestTrainerBuildsArtifact(t *testing.T) {
	t.Parallel()

	var rows []db.TrainingInteraction
	for i := int64(0); i < 12; i++ {
		rows = append(rows,
			db.TrainingInteraction{QueryText: "software engineer", PostingID: i, EventType: EventClick, Title: "Software Engineer"},
			db.TrainingInteraction{QueryText: "software engineer", PostingID: 100 + i, EventType: EventImpression, Title: "Kitchen Porter"},
		)
	}
	trainer := NewTrainer(&fakeTrainingStore{rows: rows}, 10, zerolog.Nop())

	artifact, err := trainer.Train(context.Background(), time.Now().Add(-time.Hour), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if artifact.PositiveCount != 12 {
		t.Fatalf("expected 12 positives, got %d", artifact.PositiveCount)
	}
	if artifact.NegativeCount == 0 || artifact.NegativeCount > 24 {
		t.Fatalf("negatives must be sampled within the ratio, got %d", artifact.NegativeCount)
	}
	if len(artifact.Weights) != FeatureCount+1 {
		t.Fatalf("unexpected weight count %d", len(artifact.Weights))
	}
	if _, err := artifact.Model(); err != nil {
		t.Fatalf("trained artifact must validate: %v", err)
	}
}

func TestInteractionFeaturesMatchServingVector(t *testing.T) {
	t.Parallel()

	interaction := db.TrainingInteraction{
		QueryText:       "senior data analyst dublin",
		Title:           "Senior Data Analyst",
		NormalizedTitle: "senior data analyst",
		Seniority:       ptrString("senior"),
		City:            ptrString("Dublin"),
		SalaryMax:       ptrFloat64(85000),
	}

	features := interactionFeatures(interaction)
	serving := BuildFeatures(FeatureInput{
		QueryText:       interaction.QueryText,
		Title:           interaction.Title,
		NormalizedTitle: interaction.NormalizedTitle,
		Seniority:       *interaction.Seniority,
		City:            *interaction.City,
		HasSalary:       true,
	})

	if len(features) != len(serving) {
		t.Fatalf("feature lengths differ: %d vs %d", len(features), len(serving))
	}
	for i := range features {
		if features[i] != serving[i] {
			t.Fatalf("feature %d differs between training and serving: %v vs %v", i, features[i], serving[i])
		}
	}
	if features[featHasSalary] != 1 {
		t.Fatalf("a salary_max-only posting must count as salaried, got %v", features[featHasSalary])
	}
}
