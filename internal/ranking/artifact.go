package ranking

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNoArtifact reports that no trained model is stored at the
// configured path. Callers fall back to the heuristic ranker.
var ErrNoArtifact = errors.New("no ranking artifact")

// artifactVersion is bumped only when the on-disk layout changes.
const artifactVersion = 1

// Artifact is the serialized classifier. The weight layout follows
// LogisticModel: bias first, then one weight per feature in order.
type Artifact struct {
	Version       int       `json:"model_version"`
	FeatureCount  int       `json:"feature_count"`
	Weights       []float64 `json:"weights"`
	TrainedAt     time.Time `json:"trained_at"`
	PositiveCount int       `json:"positive_count"`
	NegativeCount int       `json:"negative_count"`
}

func (a *Artifact) validate() error {
	if a.Version != artifactVersion {
		return fmt.Errorf("unsupported artifact version %d", a.Version)
	}
	if a.FeatureCount != FeatureCount {
		return fmt.Errorf("artifact trained on %d features, want %d", a.FeatureCount, FeatureCount)
	}
	if len(a.Weights) != FeatureCount+1 {
		return fmt.Errorf("artifact has %d weights, want %d", len(a.Weights), FeatureCount+1)
	}
	return nil
}

// Model builds the scoring model from the stored weights.
func (a *Artifact) Model() (*LogisticModel, error) {
	if err := a.validate(); err != nil {
		return nil, err
	}
	return &LogisticModel{Weights: a.Weights}, nil
}

// LoadArtifact reads and validates the artifact at path. A missing
// file is ErrNoArtifact, not a failure.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoArtifact
		}
		return nil, fmt.Errorf("read ranking artifact: %w", err)
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("decode ranking artifact: %w", err)
	}
	if err := artifact.validate(); err != nil {
		return nil, err
	}
	return &artifact, nil
}

// SaveArtifact writes the artifact atomically: the new file lands under
// a temporary name and replaces the old one by rename, with the prior
// artifact kept under a .prev suffix for manual rollback.
func SaveArtifact(path string, artifact *Artifact) error {
	if err := artifact.validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ranking artifact: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temporary artifact: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temporary artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temporary artifact: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, path+".prev"); err != nil {
			os.Remove(tmpName)
			return fmt.Errorf("back up previous artifact: %w", err)
		}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("install ranking artifact: %w", err)
	}
	return nil
}
