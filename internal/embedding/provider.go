// Package embedding abstracts text embedding behind a provider
// interface so the rest of the system degrades cleanly when no
// embedding service is reachable.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrUnavailable reports that the provider cannot serve embeddings
// right now. Callers treat it as a signal to skip embedding-dependent
// work, not as a failure.
var ErrUnavailable = errors.New("embedding provider unavailable")

// Provider turns text into a fixed-dimension vector.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	ModelName() string
	Dimensions() int
}

// Disabled is the provider used when embeddings are turned off. Every
// call reports ErrUnavailable.
type Disabled struct{}

func (Disabled) Embed(context.Context, string) ([]float64, error) {
	return nil, ErrUnavailable
}

func (Disabled) ModelName() string { return "disabled" }

func (Disabled) Dimensions() int { return 0 }

// Cosine computes the cosine similarity of two equal-length vectors in
// [-1, 1]. A zero vector yields 0.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("empty vectors")
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// VectorLiteral renders a vector as the pgvector text form
// "[v1,v2,...]".
func VectorLiteral(vector []float64) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, value := range vector {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(value, 'f', -1, 64))
	}
	sb.WriteByte(']')
	return sb.String()
}

// ParseVectorLiteral parses the pgvector text form back into a vector.
func ParseVectorLiteral(literal string) ([]float64, error) {
	trimmed := strings.TrimSpace(literal)
	if len(trimmed) < 2 || trimmed[0] != '[' || trimmed[len(trimmed)-1] != ']' {
		return nil, fmt.Errorf("malformed vector literal")
	}

	inner := trimmed[1 : len(trimmed)-1]
	if strings.TrimSpace(inner) == "" {
		return nil, fmt.Errorf("empty vector literal")
	}

	parts := strings.Split(inner, ",")
	vector := make([]float64, len(parts))
	for i, part := range parts {
		value, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("vector component %d: %w", i, err)
		}
		vector[i] = value
	}
	return vector, nil
}
