package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	DefaultEndpoint       = "http://127.0.0.1:8844/embed"
	DefaultModelName      = "bge-m3"
	DefaultModelVersion   = "v1"
	DefaultMaxLength      = 512
	DefaultRequestTimeout = 45 * time.Second
	DefaultDimensions     = 1024
)

// HTTPProvider talks to a local embedding service. It understands both
// the plain {"texts": [...]} shape and the OpenAI-compatible
// {"input": [...]} shape, keyed off the endpoint path.
type HTTPProvider struct {
	endpoint       string
	modelName      string
	dimensions     int
	maxLength      int
	requestTimeout time.Duration
	client         *http.Client
}

// HTTPOptions configures an HTTPProvider. Zero values fall back to the
// package defaults.
type HTTPOptions struct {
	Endpoint       string
	ModelName      string
	Dimensions     int
	MaxLength      int
	RequestTimeout time.Duration
}

func NewHTTPProvider(opts HTTPOptions) *HTTPProvider {
	if strings.TrimSpace(opts.Endpoint) == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if strings.TrimSpace(opts.ModelName) == "" {
		opts.ModelName = DefaultModelName
	}
	if opts.Dimensions <= 0 {
		opts.Dimensions = DefaultDimensions
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = DefaultMaxLength
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	return &HTTPProvider{
		endpoint:       normalizeEndpoint(opts.Endpoint),
		modelName:      opts.ModelName,
		dimensions:     opts.Dimensions,
		maxLength:      opts.MaxLength,
		requestTimeout: opts.RequestTimeout,
		client:         &http.Client{},
	}
}

func (p *HTTPProvider) ModelName() string { return p.modelName }

func (p *HTTPProvider) Dimensions() int { return p.dimensions }

func (p *HTTPProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

type embedRequest struct {
	Texts     []string `json:"texts,omitempty"`
	Input     []string `json:"input,omitempty"`
	MaxLength int      `json:"max_length,omitempty"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
	Data       []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// EmbedBatch embeds a batch of texts in one request. Transport failures
// and 5xx responses wrap ErrUnavailable so callers can degrade instead
// of failing.
func (p *HTTPProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload := embedRequest{Texts: texts, MaxLength: p.maxLength}
	if parsed, err := url.Parse(p.endpoint); err == nil && strings.HasSuffix(parsed.Path, "/v1/embeddings") {
		payload = embedRequest{Input: texts}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	requestCtx, cancel := context.WithTimeout(ctx, p.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedding service status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed embedResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}

	vectors := parsed.Embeddings
	if len(vectors) == 0 && len(parsed.Data) > 0 {
		sort.Slice(parsed.Data, func(i, j int) bool {
			return parsed.Data[i].Index < parsed.Data[j].Index
		})
		vectors = make([][]float64, 0, len(parsed.Data))
		for _, row := range parsed.Data {
			vectors = append(vectors, row.Embedding)
		}
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding response count mismatch: requested=%d returned=%d", len(texts), len(vectors))
	}
	for _, vector := range vectors {
		if err := checkFinite(vector); err != nil {
			return nil, err
		}
	}
	return vectors, nil
}

func checkFinite(vector []float64) error {
	if len(vector) == 0 {
		return fmt.Errorf("embedding response has empty vector")
	}
	for i, value := range vector {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return fmt.Errorf("vector has non-finite value at index %d", i)
		}
	}
	return nil
}

func normalizeEndpoint(raw string) string {
	trimmed := strings.TrimSpace(raw)
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return trimmed
	}
	if parsed.Path == "" || parsed.Path == "/" {
		parsed.Path = "/embed"
	}
	return parsed.String()
}
