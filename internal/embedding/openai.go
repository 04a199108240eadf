package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIProvider embeds through any OpenAI-compatible embeddings API,
// including local inference servers that ignore the token.
type OpenAIProvider struct {
	embedder   embeddings.Embedder
	modelName  string
	dimensions int
}

// OpenAIOptions configures an OpenAIProvider.
type OpenAIOptions struct {
	BaseURL    string
	APIKey     string
	ModelName  string
	Dimensions int
}

func NewOpenAIProvider(opts OpenAIOptions) (*OpenAIProvider, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, fmt.Errorf("openai base url is required")
	}
	if strings.TrimSpace(opts.ModelName) == "" {
		opts.ModelName = DefaultModelName
	}
	if opts.Dimensions <= 0 {
		opts.Dimensions = DefaultDimensions
	}
	token := opts.APIKey
	if strings.TrimSpace(token) == "" {
		// Local OpenAI-compatible services accept any token.
		token = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(opts.BaseURL),
		openai.WithToken(token),
		openai.WithEmbeddingModel(opts.ModelName),
	)
	if err != nil {
		return nil, fmt.Errorf("build openai client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("build embedder: %w", err)
	}

	return &OpenAIProvider{
		embedder:   embedder,
		modelName:  opts.ModelName,
		dimensions: opts.Dimensions,
	}, nil
}

func (p *OpenAIProvider) ModelName() string { return p.modelName }

func (p *OpenAIProvider) Dimensions() int { return p.dimensions }

func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds a batch of texts. Transport errors wrap
// ErrUnavailable so embedding-dependent tiers can degrade.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	raw, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(raw) != len(texts) {
		return nil, fmt.Errorf("embedding response count mismatch: requested=%d returned=%d", len(texts), len(raw))
	}

	vectors := make([][]float64, len(raw))
	for i, row := range raw {
		if len(row) == 0 {
			return nil, fmt.Errorf("embedding response has empty vector at index %d", i)
		}
		vector := make([]float64, len(row))
		for j, value := range row {
			vector[j] = float64(value)
		}
		vectors[i] = vector
	}
	return vectors, nil
}
