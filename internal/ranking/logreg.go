package ranking

import (
	"fmt"
	"math"
)

// Training hyperparameters. Batch gradient descent is more than enough
// for a few thousand 8-feature examples.
const (
	defaultLearningRate = 0.1
	defaultEpochs       = 300
)

// LogisticModel is a binary classifier over the fixed feature vector.
// Weights[0] is the bias term; Weights[1+i] pairs with feature i.
type LogisticModel struct {
	Weights []float64
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// Score returns the relevance probability for one feature vector.
func (m *LogisticModel) Score(features []float64) (float64, error) {
	if len(m.Weights) != FeatureCount+1 {
		return 0, fmt.Errorf("model has %d weights, want %d", len(m.Weights), FeatureCount+1)
	}
	if len(features) != FeatureCount {
		return 0, fmt.Errorf("feature vector has %d components, want %d", len(features), FeatureCount)
	}

	z := m.Weights[0]
	for i, value := range features {
		z += m.Weights[i+1] * value
	}
	return sigmoid(z), nil
}

// TrainLogistic fits a logistic model by batch gradient descent.
// Labels are 0 or 1; rows must all carry FeatureCount components.
func TrainLogistic(features [][]float64, labels []float64) (*LogisticModel, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("no training examples")
	}
	if len(features) != len(labels) {
		return nil, fmt.Errorf("feature/label count mismatch: %d vs %d", len(features), len(labels))
	}
	for i, row := range features {
		if len(row) != FeatureCount {
			return nil, fmt.Errorf("example %d has %d components, want %d", i, len(row), FeatureCount)
		}
		if labels[i] != 0 && labels[i] != 1 {
			return nil, fmt.Errorf("example %d has non-binary label %f", i, labels[i])
		}
	}

	weights := make([]float64, FeatureCount+1)
	n := float64(len(features))

	for epoch := 0; epoch < defaultEpochs; epoch++ {
		gradients := make([]float64, FeatureCount+1)
		for i, row := range features {
			z := weights[0]
			for j, value := range row {
				z += weights[j+1] * value
			}
			residual := sigmoid(z) - labels[i]
			gradients[0] += residual
			for j, value := range row {
				gradients[j+1] += residual * value
			}
		}
		for j := range weights {
			weights[j] -= defaultLearningRate * gradients[j] / n
		}
	}

	return &LogisticModel{Weights: weights}, nil
}
