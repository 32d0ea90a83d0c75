package testutil

import "github.com/hupe1980/agentrouter/core"

// RequestBuilder helps construct requests with fluent chaining for tests.
// Example:
//
//	req := NewRequestBuilder().Type("research").Text("EV chargers").Build()
type RequestBuilder struct {
	req core.Request
}

// NewRequestBuilder creates an empty request builder.
func NewRequestBuilder() *RequestBuilder { return &RequestBuilder{} }

// Type sets the declared agent type key (chainable).
func (b *RequestBuilder) Type(t string) *RequestBuilder {
	b.req.Type = t
	return b
}

// Text sets the query text (chainable).
func (b *RequestBuilder) Text(s string) *RequestBuilder {
	b.req.Text = s
	return b
}

// Image sets the image URL (chainable).
func (b *RequestBuilder) Image(url string) *RequestBuilder {
	b.req.ImageURL = url
	return b
}

// Build returns the request.
func (b *RequestBuilder) Build() core.Request { return b.req }
