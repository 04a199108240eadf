package embedding

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCosine(t *testing.T) {
	t.Parallel()

	got, err := Cosine([]float64{1, 0}, []float64{1, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-1) > 1e-9 {
		t.Fatalf("identical vectors should score 1, got %f", got)
	}

	got, err = Cosine([]float64{1, 0}, []float64{-1, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got+1) > 1e-9 {
		t.Fatalf("opposite vectors should score -1, got %f", got)
	}

	got, err = Cosine([]float64{1, 0}, []float64{0, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Fatalf("zero vector should score 0, got %f", got)
	}

	if _, err := Cosine([]float64{1}, []float64{1, 2}); err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
}

func TestVectorLiteralRoundTrip(t *testing.T) {
	t.Parallel()

	original := []float64{0.25, -1, 0.0078125}
	parsed, err := ParseVectorLiteral(VectorLiteral(original))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parsed) != len(original) {
		t.Fatalf("expected %d components, got %d", len(original), len(parsed))
	}
	for i := range original {
		if parsed[i] != original[i] {
			t.Fatalf("component %d changed: %f != %f", i, parsed[i], original[i])
		}
	}
}

func TestParseVectorLiteralRejectsMalformedInput(t *testing.T) {
	t.Parallel()

	for _, literal := range []string{"", "[]", "1,2,3", "[1,x,3]", "[1,2"} {
		if _, err := ParseVectorLiteral(literal); err == nil {
			t.Fatalf("expected error for %q", literal)
		}
	}
}

func TestDisabledProviderReportsUnavailable(t *testing.T) {
	t.Parallel()

	_, err := Disabled{}.Embed(context.Background(), "anything")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	t.Parallel()

	if got := normalizeEndpoint("http://127.0.0.1:8844"); got != "http://127.0.0.1:8844/embed" {
		t.Fatalf("unexpected endpoint normalization: %q", got)
	}
	if got := normalizeEndpoint("http://127.0.0.1:8844/v1/embeddings"); got != "http://127.0.0.1:8844/v1/embeddings" {
		t.Fatalf("unexpected endpoint normalization for explicit path: %q", got)
	}
}

func TestHTTPProviderEmbedBatch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2],[0.3,0.4]]}`))
	}))
	defer server.Close()

	provider := NewHTTPProvider(HTTPOptions{Endpoint: server.URL + "/embed", Dimensions: 2})
	vectors, err := provider.EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 2 || len(vectors[0]) != 2 {
		t.Fatalf("unexpected vectors shape: %v", vectors)
	}
	if vectors[1][0] != 0.3 {
		t.Fatalf("unexpected vector content: %v", vectors[1])
	}
}

func TestHTTPProviderOpenAIShape(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0.3,0.4]},{"index":0,"embedding":[0.1,0.2]}]}`))
	}))
	defer server.Close()

	provider := NewHTTPProvider(HTTPOptions{Endpoint: server.URL + "/v1/embeddings", Dimensions: 2})
	vectors, err := provider.EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vectors[0][0] != 0.1 || vectors[1][0] != 0.3 {
		t.Fatalf("data rows not reordered by index: %v", vectors)
	}
}

func TestHTTPProviderServerErrorIsUnavailable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	provider := NewHTTPProvider(HTTPOptions{Endpoint: server.URL + "/embed"})
	_, err := provider.Embed(context.Background(), "text")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
