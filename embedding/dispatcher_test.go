package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/hupe1980/agentrouter/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEncoder struct {
	mock.Mock
}

func (m *mockEncoder) EncodeImage(ctx context.Context, url string) (core.Embedding, error) {
	args := m.Called(ctx, url)
	emb, _ := args.Get(0).(core.Embedding)
	return emb, args.Error(1)
}

func (m *mockEncoder) EncodeText(ctx context.Context, text string) (core.Embedding, error) {
	args := m.Called(ctx, text)
	emb, _ := args.Get(0).(core.Embedding)
	return emb, args.Error(1)
}

var (
	_ core.ImageEncoder = (*mockEncoder)(nil)
	_ core.TextEncoder  = (*mockEncoder)(nil)
	_ core.ImageEncoder = (*HashEncoder)(nil)
	_ core.TextEncoder  = (*HashEncoder)(nil)
	_ core.ImageEncoder = (*CLIPClient)(nil)
	_ core.TextEncoder  = (*CLIPClient)(nil)
)

func TestDispatcher_NoEmbeddableField(t *testing.T) {
	enc := &mockEncoder{}
	d := NewDispatcher(enc, enc)

	for _, req := range []core.Request{{}, {Type: "marketing"}, {Text: "  ", ImageURL: " "}} {
		assert.Nil(t, d.Embed(context.Background(), req))
	}
	enc.AssertNotCalled(t, "EncodeImage", mock.Anything, mock.Anything)
	enc.AssertNotCalled(t, "EncodeText", mock.Anything, mock.Anything)
}

func TestDispatcher_ImageTakesPriority(t *testing.T) {
	enc := &mockEncoder{}
	enc.On("EncodeImage", mock.Anything, "http://img/1.png").Return(core.Embedding{1, 2}, nil).Once()
	d := NewDispatcher(enc, enc)

	got := d.Embed(context.Background(), core.Request{Text: "hello", ImageURL: "http://img/1.png"})

	assert.Equal(t, core.Embedding{1, 2}, got)
	enc.AssertExpectations(t)
	enc.AssertNotCalled(t, "EncodeText", mock.Anything, mock.Anything)
}

func TestDispatcher_TextPath(t *testing.T) {
	enc := &mockEncoder{}
	enc.On("EncodeText", mock.Anything, "promo plan").Return(core.Embedding{0.5, 0.5}, nil).Once()
	d := NewDispatcher(enc, enc)

	got := d.Embed(context.Background(), core.Request{Text: "promo plan"})

	assert.Equal(t, core.Embedding{0.5, 0.5}, got)
	enc.AssertExpectations(t)
	enc.AssertNotCalled(t, "EncodeImage", mock.Anything, mock.Anything)
}

func TestDispatcher_FailOpen(t *testing.T) {
	enc := &mockEncoder{}
	enc.On("EncodeText", mock.Anything, "x").Return(nil, errors.New("connection refused")).Once()
	enc.On("EncodeImage", mock.Anything, "bad://url").Return(nil, context.DeadlineExceeded).Once()
	d := NewDispatcher(enc, enc)

	assert.Nil(t, d.Embed(context.Background(), core.Request{Text: "x"}))
	assert.Nil(t, d.Embed(context.Background(), core.Request{ImageURL: "bad://url"}))
	enc.AssertExpectations(t)
}

func TestDispatcher_MissingEncoder(t *testing.T) {
	d := NewDispatcher(nil, nil)
	assert.Nil(t, d.Embed(context.Background(), core.Request{Text: "x"}))
	assert.Nil(t, d.Embed(context.Background(), core.Request{ImageURL: "http://img"}))
}

func TestDispatcher_DimensionGuard(t *testing.T) {
	enc := &mockEncoder{}
	enc.On("EncodeText", mock.Anything, "short").Return(core.Embedding{1}, nil).Once()
	enc.On("EncodeText", mock.Anything, "empty").Return(core.Embedding{}, nil).Once()
	d := NewDispatcher(nil, enc, func(o *DispatcherOptions) { o.Dim = 2 })

	assert.Nil(t, d.Embed(context.Background(), core.Request{Text: "short"}))
	assert.Nil(t, d.Embed(context.Background(), core.Request{Text: "empty"}))
	enc.AssertExpectations(t)
}

func TestHashEncoder_Deterministic(t *testing.T) {
	h := NewHashEncoder(16)
	a, err := h.EncodeText(context.Background(), "promo plan")
	assert.NoError(t, err)
	b, _ := h.EncodeText(context.Background(), "promo plan")
	c, _ := h.EncodeText(context.Background(), "other")
	img, _ := h.EncodeImage(context.Background(), "promo plan")

	assert.Len(t, a, 16)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, img)
	assert.Equal(t, 16, h.Dimensions())

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestHashEncoder_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHashEncoder(4).EncodeText(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

type panickingEncoder struct{}

func (panickingEncoder) EncodeText(context.Context, string) (core.Embedding, error) {
	panic("tokenizer crashed")
}

func (panickingEncoder) EncodeImage(context.Context, string) (core.Embedding, error) {
	panic("decoder crashed")
}

func TestDispatcher_EncoderPanicIsAbsent(t *testing.T) {
	logger := &recordingLogger{}
	d := NewDispatcher(panickingEncoder{}, panickingEncoder{}, func(o *DispatcherOptions) { o.Logger = logger })

	assert.NotPanics(t, func() {
		assert.Nil(t, d.Embed(context.Background(), core.Request{Text: "hello"}))
		assert.Nil(t, d.Embed(context.Background(), core.Request{ImageURL: "http://img/1.png"}))
	})

	warnings := logger.warnings()
	require.Len(t, warnings, 2)
	assert.Equal(t, "embedding.failed", warnings[0].msg)
	assert.Contains(t, fmt.Sprint(warnings[0].args...), "tokenizer crashed")
	assert.Contains(t, fmt.Sprint(warnings[1].args...), "decoder crashed")
}

type logEntry struct {
	msg  string
	args []any
}

type recordingLogger struct {
	mu   sync.Mutex
	warn []logEntry
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Info(string, ...any)  {}
func (l *recordingLogger) Error(string, ...any) {}

func (l *recordingLogger) Warn(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warn = append(l.warn, logEntry{msg: msg, args: args})
}

func (l *recordingLogger) warnings() []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]logEntry(nil), l.warn...)
}
