package ml

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/ricesearch/rice-insight/internal/pkg/errors"
)

// HashingEmbedder is an offline embedder that feature-hashes identifier
// tokens into a fixed-size, L2-normalised vector. Texts sharing tokens get a
// positive cosine similarity.
type HashingEmbedder struct {
	dimensions int
}

// NewHashingEmbedder creates a hashing embedder.
func NewHashingEmbedder(dimensions int) *HashingEmbedder {
	if dimensions <= 0 {
		dimensions = 256
	}
	return &HashingEmbedder{dimensions: dimensions}
}

// Dimensions returns the size of the produced vectors.
func (e *HashingEmbedder) Dimensions() int {
	return e.dimensions
}

// Embed hashes the tokens of text into a vector.
func (e *HashingEmbedder) Embed(ctx context.Context, text, languageHint string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '_'
	})
	if len(tokens) == 0 {
		return nil, errors.ValidationError("text to embed must not be empty")
	}
	if languageHint != "" {
		tokens = append(tokens, "lang:"+strings.ToLower(languageHint))
	}

	vec := make([]float32, e.dimensions)
	for _, tok := range tokens {
		h := xxhash.Sum64String(tok)
		idx := h % uint64(e.dimensions)
		if h&(1<<63) != 0 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}
