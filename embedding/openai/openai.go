// Package openai provides a core.TextEncoder backed by the OpenAI embeddings
// API via the official openai-go SDK.
package openai

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentrouter/core"
	"github.com/openai/openai-go"
)

// Options configure the OpenAI text encoder.
type Options struct {
	Model string
	// Dimensions maps to the API's "dimensions" parameter (text-embedding-3+).
	// Zero keeps the model default.
	Dimensions int
}

// TextEncoder wraps the OpenAI embeddings endpoint.
type TextEncoder struct {
	client *openai.Client
	opts   Options
}

// NewTextEncoder creates an encoder using the default client (OPENAI_API_KEY from env).
func NewTextEncoder(optFns ...func(o *Options)) *TextEncoder {
	client := openai.NewClient()
	return NewTextEncoderFromClient(&client, optFns...)
}

// NewTextEncoderFromClient creates an encoder from an existing client.
func NewTextEncoderFromClient(client *openai.Client, optFns ...func(o *Options)) *TextEncoder {
	opts := Options{Model: openai.EmbeddingModelTextEmbedding3Small}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &TextEncoder{client: client, opts: opts}
}

// EncodeText implements core.TextEncoder.
func (e *TextEncoder) EncodeText(ctx context.Context, text string) (core.Embedding, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: e.opts.Model,
	}
	if e.opts.Dimensions > 0 {
		params.Dimensions = openai.Int(int64(e.opts.Dimensions))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings error: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embeddings: no data returned")
	}

	src := resp.Data[0].Embedding
	out := make(core.Embedding, len(src))
	for i, v := range src {
		out[i] = float32(v)
	}
	return out, nil
}
