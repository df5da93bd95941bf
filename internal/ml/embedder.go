// Package ml provides the embedding providers used to vectorise queries and
// code chunks, with caching and rate limiting wrappers.
package ml

import (
	"context"
	stderrors "errors"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/ricesearch/rice-insight/internal/pkg/errors"
	"github.com/ricesearch/rice-insight/internal/pkg/logger"
)

// Embedder turns text into a dense vector. languageHint may be empty.
type Embedder interface {
	Embed(ctx context.Context, text, languageHint string) ([]float32, error)
}

const (
	// DefaultModel is the default embedding model.
	DefaultModel = "text-embedding-3-small"

	// DefaultDimensions is the vector size of DefaultModel.
	DefaultDimensions = 1536
)

// OpenAIConfig configures an OpenAI-compatible embeddings endpoint.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
}

// OpenAIEmbedder calls an OpenAI-compatible embeddings API.
type OpenAIEmbedder struct {
	client     openai.Client
	model      string
	dimensions int
	log        *logger.Logger
}

// NewOpenAIEmbedder creates an embedder for the configured endpoint.
func NewOpenAIEmbedder(cfg OpenAIConfig, log *logger.Logger) *OpenAIEmbedder {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if log == nil {
		log = logger.Discard()
	}

	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIEmbedder{
		client:     openai.NewClient(opts...),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		log:        log.WithComponent("embedder"),
	}
}

// Dimensions returns the size of the produced vectors.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Embed embeds a single text, prefixed with its language when known.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text, languageHint string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.ValidationError("text to embed must not be empty")
	}

	vectors, err := e.EmbedBatch(ctx, []string{withLanguage(text, languageHint)})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in input order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	params := openai.EmbeddingNewParams{
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:          openai.EmbeddingModel(e.model),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}
	if strings.HasPrefix(e.model, "text-embedding-3") {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Data) != len(texts) {
		return nil, errors.TransientError("embed", nil).
			WithDetail("reason", "embedding count does not match input count")
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(texts) {
			return nil, errors.PermanentError("embed", nil).WithDetail("reason", "embedding index out of range")
		}
		vectors[d.Index] = toFloat32(d.Embedding)
	}

	e.log.WithContext(ctx).Debug("Embedded texts",
		"count", len(texts),
		"model", e.model,
		"prompt_tokens", resp.Usage.PromptTokens,
	)

	return vectors, nil
}

// classify maps an embeddings API failure to an AppError.
func classify(err error) error {
	if stderrors.Is(err, context.Canceled) {
		return err
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(errors.CodeTimeout, "embed timed out", err)
	}
	var apiErr *openai.Error
	if stderrors.As(err, &apiErr) {
		return errors.FromHTTPStatus("embed", apiErr.StatusCode, err)
	}
	return errors.TransientError("embed", err)
}

func withLanguage(text, languageHint string) string {
	if languageHint == "" {
		return text
	}
	return languageHint + ": " + text
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
