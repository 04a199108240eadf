package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"jobradar.fyi/jobradar/internal/cli"
	"jobradar.fyi/jobradar/internal/globaltime"
	"jobradar.fyi/jobradar/internal/ranking"
)

func runTrain(args []string) int {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	fromFlag := fs.String("from", "", "Window start date (YYYY-MM-DD, default 30 days ago)")
	toFlag := fs.String("to", "", "Window end date inclusive (YYYY-MM-DD, default today)")
	artifactFlag := fs.String("artifact", "", "Artifact output path (default RANKING_ARTIFACT_PATH)")
	minPositivesFlag := fs.Int("min-positives", 0, "Minimum positive examples (default MIN_TRAINING_POSITIVES)")
	timeoutFlag := fs.Duration("timeout", 5*time.Minute, "Training timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	from, to, err := trainingWindow(*fromFlag, *toFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
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

	minPositives := rt.cfg.MinTrainingPositives
	if *minPositivesFlag > 0 {
		minPositives = *minPositivesFlag
	}
	artifactPath := strings.TrimSpace(*artifactFlag)
	if artifactPath == "" {
		artifactPath = rt.cfg.RankingArtifactPath
	}

	trainer := ranking.NewTrainer(rt.pool, minPositives, rt.logger)
	artifact, err := trainer.Train(ctx, from, to)
	if err != nil {
		if errors.Is(err, ranking.ErrInsufficientExamples) {
			fmt.Fprintf(os.Stderr, "Error: %v; the heuristic ranker stays in place\n", err)
			return 1
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if err := ranking.SaveArtifact(artifactPath, artifact); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Printf("trained on %d positives and %d negatives; artifact written to %s\n",
		artifact.PositiveCount, artifact.NegativeCount, artifactPath)
	return 0
}

// trainingWindow resolves the interaction window, defaulting to the
// trailing 30 days. The end bound is exclusive.
func trainingWindow(fromRaw, toRaw string) (time.Time, time.Time, error) {
	if strings.TrimSpace(fromRaw) == "" && strings.TrimSpace(toRaw) == "" {
		now := globaltime.UTC()
		to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
		return to.AddDate(0, 0, -31), to, nil
	}
	if strings.TrimSpace(fromRaw) == "" || strings.TrimSpace(toRaw) == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("--from and --to must be provided together")
	}
	return parseUTCDateRange(fromRaw, toRaw)
}
