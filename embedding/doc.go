// Package embedding converts heterogeneous request payloads into fixed-size
// vectors. The Dispatcher picks exactly one encoding path per request
// (image first, then text) and is fail-open: encoder failures are logged and
// reported as an absent embedding so the rest of the pipeline proceeds
// without memory enrichment.
//
// Encoders shipped here:
//   - CLIPClient: HTTP client for a CLIP-style multimodal encoding service
//   - HashEncoder: deterministic, offline encoder for development and tests
//   - openai.TextEncoder (subpackage): OpenAI embeddings API
package embedding
