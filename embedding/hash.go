package embedding

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/hupe1980/agentrouter/core"
)

// HashEncoder generates deterministic unit vectors from an FNV hash of the
// input. Identical inputs produce identical embeddings; it carries no
// semantic signal and is meant for local development and tests.
type HashEncoder struct {
	dim int
}

// NewHashEncoder creates a HashEncoder producing dim-dimensional vectors.
func NewHashEncoder(dim int) *HashEncoder { return &HashEncoder{dim: dim} }

// Dimensions returns the embedding size.
func (h *HashEncoder) Dimensions() int { return h.dim }

// EncodeText implements core.TextEncoder.
func (h *HashEncoder) EncodeText(ctx context.Context, text string) (core.Embedding, error) {
	return h.encode(ctx, "text:"+text)
}

// EncodeImage implements core.ImageEncoder. Only the URL is hashed.
func (h *HashEncoder) EncodeImage(ctx context.Context, url string) (core.Embedding, error) {
	return h.encode(ctx, "image:"+url)
}

func (h *HashEncoder) encode(ctx context.Context, s string) (core.Embedding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f := fnv.New64a()
	_, _ = f.Write([]byte(s))
	seed := f.Sum64()

	vec := make(core.Embedding, h.dim)
	var norm float64
	for i := range vec {
		// LCG step mapped into [-1, 1].
		seed = seed*6364136223846793005 + 1442695040888963407
		v := float32(int64(seed)) / float32(math.MaxInt64)
		vec[i] = v
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec, nil
	}
	n := float32(math.Sqrt(norm))
	for i := range vec {
		vec[i] /= n
	}
	return vec, nil
}
