package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var _ RoutingRecorder = NoOpRecorder{}

func TestParseAgentKind(t *testing.T) {
	tests := []struct {
		key  string
		kind AgentKind
		ok   bool
	}{
		{"marketing", KindMarketing, true},
		{"  Operation ", KindOperation, true},
		{"RESEARCH", KindResearch, true},
		{"unknown_type", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		kind, ok := ParseAgentKind(tt.key)
		assert.Equal(t, tt.ok, ok, tt.key)
		if tt.ok {
			assert.Equal(t, tt.kind, kind, tt.key)
		}
	}
}

func TestAgentKind_String(t *testing.T) {
	for _, k := range AllAgentKinds {
		parsed, ok := ParseAgentKind(k.String())
		assert.True(t, ok)
		assert.Equal(t, k, parsed)
	}
	assert.Equal(t, "unknown(42)", AgentKind(42).String())
}

func TestRequestFromMap(t *testing.T) {
	req := RequestFromMap(map[string]any{"type": "research", "text": "EV chargers", "image_url": 7})
	assert.Equal(t, "research", req.Type)
	assert.Equal(t, "EV chargers", req.Text)
	assert.Empty(t, req.ImageURL)
	assert.True(t, req.HasText())
	assert.False(t, req.HasImage())

	assert.False(t, Request{Text: "   "}.HasText())
}

func TestEmbedding_Clone(t *testing.T) {
	var absent Embedding
	assert.Nil(t, absent.Clone())

	e := Embedding{1, 2, 3}
	c := e.Clone()
	c[0] = 9
	assert.Equal(t, float32(1), e[0])
	assert.Equal(t, 3, c.Dim())
}

func TestResult_IsEmpty(t *testing.T) {
	assert.True(t, Result{}.IsEmpty())
	assert.True(t, Result(nil).IsEmpty())
	assert.False(t, Result{"answer": "x"}.IsEmpty())
}
