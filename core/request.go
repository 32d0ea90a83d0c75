package core

import "strings"

// Request is the inbound payload routed by the orchestrator. Every field is
// optional at this layer; Text is required by agents at execution time.
type Request struct {
	Type     string `json:"type,omitempty"`      // Declared agent type key (e.g. "marketing")
	Text     string `json:"text,omitempty"`      // User query text
	ImageURL string `json:"image_url,omitempty"` // Optional image reference for multimodal embedding
}

// RequestFromMap builds a Request from a loosely typed mapping such as a
// decoded JSON body. Non-string values are ignored.
func RequestFromMap(m map[string]any) Request {
	str := func(key string) string {
		if v, ok := m[key].(string); ok {
			return v
		}
		return ""
	}
	return Request{Type: str("type"), Text: str("text"), ImageURL: str("image_url")}
}

// HasImage reports whether the request carries a non-blank image URL.
func (r Request) HasImage() bool { return strings.TrimSpace(r.ImageURL) != "" }

// HasText reports whether the request carries non-blank text.
func (r Request) HasText() bool { return strings.TrimSpace(r.Text) != "" }

// Result is the structured outcome of an agent execution. It is passed back
// to the caller unchanged.
type Result map[string]any

// IsEmpty reports whether the result carries no entries. Empty results are
// never written to memory.
func (r Result) IsEmpty() bool { return len(r) == 0 }
