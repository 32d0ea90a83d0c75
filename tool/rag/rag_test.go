package rag

import (
	"context"
	"errors"
	"testing"

	chromem "github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrouter/embedding"
	"github.com/hupe1980/agentrouter/model"
	"github.com/hupe1980/agentrouter/tool"
)

func setup(t *testing.T) (*Tool, *chromem.DB, *model.MockModel, *tool.Registry) {
	t.Helper()

	db := chromem.NewDB()
	llm := model.NewMockModel("mock", "mock")
	rt := New(func(o *Options) {
		o.EmbeddingFunc = EmbeddingFuncFromEncoder(embedding.NewHashEncoder(64))
	})

	reg := tool.NewRegistry(map[string]any{tool.DepVectorDB: db, tool.DepLLM: llm})
	require.NoError(t, rt.Register(reg))

	return rt, db, llm, reg
}

func TestRAG_AnswersFromSources(t *testing.T) {
	rt, db, llm, reg := setup(t)
	ctx := context.Background()

	require.NoError(t, rt.AddDocuments(ctx, db,
		Document{ID: "ev", Content: "EV charger market grows 30% per year"},
		Document{ID: "solar", Content: "Solar panel prices dropped"},
	))
	llm.AddContainsResponse("EV charger market grows", "The market grows quickly [1].")

	h, err := reg.Resolve(Name)
	require.NoError(t, err)

	out, err := h.Call(ctx, map[string]any{"query": "EV charger market grows 30% per year", "top_k": float64(5)})
	require.NoError(t, err)

	res := out.(map[string]any)
	assert.Equal(t, "The market grows quickly [1].", res["answer"])
	sources := res["sources"].([]Source)
	require.Len(t, sources, 2) // capped at collection size
	assert.Equal(t, "ev", sources[0].ID)
	assert.InDelta(t, 1.0, sources[0].Score, 1e-4)
}

func TestRAG_EmptyCollection(t *testing.T) {
	_, _, llm, reg := setup(t)

	h, _ := reg.Resolve(Name)
	out, err := h.Call(context.Background(), map[string]any{"query": "anything"})
	require.NoError(t, err)
	assert.Empty(t, out.(map[string]any)["sources"])

	reqs := llm.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].LastUserText(), "(no passages found)")
}

func TestRAG_Errors(t *testing.T) {
	_, _, llm, reg := setup(t)
	h, _ := reg.Resolve(Name)

	_, err := h.Call(context.Background(), map[string]any{})
	var tErr *tool.ToolError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, tool.CodeValidation, tErr.Code)

	_, err = h.Call(context.Background(), map[string]any{"query": "  "})
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, tool.CodeValidation, tErr.Code)

	llm.SetError(errors.New("llm down"))
	_, err = h.Call(context.Background(), map[string]any{"query": "q"})
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, tool.CodeExecution, tErr.Code)
	assert.Contains(t, tErr.Message, "llm down")
}

func TestRAG_RequiresDependencies(t *testing.T) {
	reg := tool.NewRegistry(map[string]any{tool.DepLLM: model.NewMockModel("mock", "mock")})
	err := New().Register(reg)

	var mdErr *tool.MissingDependencyError
	require.ErrorAs(t, err, &mdErr)
	assert.Equal(t, tool.DepVectorDB, mdErr.Dependency)
}

func TestAddDocuments_NilDB(t *testing.T) {
	assert.Error(t, New().AddDocuments(context.Background(), nil))
}
