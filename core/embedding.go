package core

import "context"

// Embedding is a fixed-length vector describing the semantic content of a
// request. A nil Embedding means "absent".
type Embedding []float32

// Dim returns the number of components.
func (e Embedding) Dim() int { return len(e) }

// Clone returns an independent copy of the embedding (nil stays nil).
func (e Embedding) Clone() Embedding {
	if e == nil {
		return nil
	}
	out := make(Embedding, len(e))
	copy(out, e)
	return out
}

// ImageEncoder produces an embedding for an image addressed by URL.
type ImageEncoder interface {
	EncodeImage(ctx context.Context, url string) (Embedding, error)
}

// TextEncoder produces an embedding for a piece of text.
type TextEncoder interface {
	EncodeText(ctx context.Context, text string) (Embedding, error)
}
