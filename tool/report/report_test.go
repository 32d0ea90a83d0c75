package report

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrouter/model"
	"github.com/hupe1980/agentrouter/tool"
)

func resolve(t *testing.T, llm model.Model) *tool.Handle {
	t.Helper()

	reg := tool.NewRegistry(map[string]any{tool.DepLLM: llm})
	require.NoError(t, New().Register(reg))

	h, err := reg.Resolve(Name)
	require.NoError(t, err)
	return h
}

func TestReport(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.AddContainsResponse("Q3 Promo", "# Q3 Promo\nSummary...")

	h := resolve(t, llm)
	out, err := h.Call(context.Background(), map[string]any{
		"title":    "Q3 Promo",
		"sections": map[string]any{"Channels": "social, email", "Budget": 1000},
	})
	require.NoError(t, err)

	res := out.(map[string]any)
	assert.Equal(t, "Q3 Promo", res["title"])
	assert.Equal(t, "# Q3 Promo\nSummary...", res["body"])

	prompt := llm.Requests()[0].LastUserText()
	assert.Less(t, strings.Index(prompt, "## Budget"), strings.Index(prompt, "## Channels"))
	assert.Contains(t, prompt, "1000")
}

func TestReport_Errors(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	h := resolve(t, llm)

	_, err := h.Call(context.Background(), map[string]any{"title": " "})
	var tErr *tool.ToolError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, tool.CodeValidation, tErr.Code)

	_, err = h.Call(context.Background(), map[string]any{"title": "x", "sections": "not an object"})
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, tool.CodeValidation, tErr.Code)

	llm.SetError(errors.New("quota"))
	_, err = h.Call(context.Background(), map[string]any{"title": "x"})
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, tool.CodeExecution, tErr.Code)
}
