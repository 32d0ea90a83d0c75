// Package rag provides the retrieval-augmented generation tool. It searches a
// chromem-go collection for passages relevant to the query and asks the LLM to
// answer from those passages only.
package rag

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	chromem "github.com/philippgille/chromem-go"

	"github.com/hupe1980/agentrouter/core"
	"github.com/hupe1980/agentrouter/internal/util"
	"github.com/hupe1980/agentrouter/model"
	"github.com/hupe1980/agentrouter/tool"
)

// Name is the registry name of the tool.
const Name = "rag"

// DefaultCollection is the chromem collection searched by default.
const DefaultCollection = "knowledge"

const instructions = `You answer questions using only the numbered context passages.
Cite passages as [n]. If the context does not contain the answer, say so.`

const promptTemplate = `Context:
{{range $i, $s := .Sources}}[{{inc $i}}] {{$s.Content}}
{{else}}(no passages found)
{{end}}
Question: {{.Query}}`

// Source is one retrieved passage.
type Source struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Score    float32           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Options configure the tool.
type Options struct {
	Collection    string
	TopK          int
	EmbeddingFunc chromem.EmbeddingFunc
}

// Tool is the rag plugin.
type Tool struct {
	opts Options
}

var _ tool.Registrable = (*Tool)(nil)

// New creates the plugin. EmbeddingFunc must be set whenever documents are
// added through a different path than AddDocuments.
func New(optFns ...func(o *Options)) *Tool {
	opts := Options{Collection: DefaultCollection, TopK: 3}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Tool{opts: opts}
}

// EmbeddingFuncFromEncoder adapts a text encoder to chromem's embedding func.
func EmbeddingFuncFromEncoder(enc core.TextEncoder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		emb, err := enc.EncodeText(ctx, text)
		if err != nil {
			return nil, err
		}
		return []float32(emb), nil
	}
}

// Register implements tool.Registrable.
func (t *Tool) Register(reg *tool.Registry) error {
	return reg.Register(tool.Descriptor{
		Name:        Name,
		Description: "Answer a question from the knowledge base with cited sources.",
		Requires:    []string{tool.DepVectorDB, tool.DepLLM},
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string", "description": "Question to answer"},
				"top_k": map[string]any{"type": "integer", "description": "Number of passages to retrieve"},
			},
			"required": []string{"query"},
		},
		Invoke: t.invoke,
	})
}

func (t *Tool) invoke(cc *tool.CallContext, args map[string]any) (any, error) {
	db, err := tool.Dep[*chromem.DB](cc.Deps(), tool.DepVectorDB)
	if err != nil {
		return nil, err
	}
	llm, err := tool.Dep[model.Model](cc.Deps(), tool.DepLLM)
	if err != nil {
		return nil, err
	}

	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return nil, tool.NewToolError(Name, "query must not be empty", tool.CodeValidation)
	}

	topK, err := util.ToInt(args["top_k"], t.opts.TopK)
	if err != nil {
		return nil, tool.NewToolError(Name, err.Error(), tool.CodeValidation)
	}

	sources, err := t.search(cc.Context(), db, query, topK)
	if err != nil {
		return nil, err
	}

	prompt, err := util.RenderPrompt(promptTemplate, map[string]any{"Sources": sources, "Query": query})
	if err != nil {
		return nil, err
	}

	resp, err := llm.Generate(cc.Context(), model.UserText(instructions, prompt))
	if err != nil {
		return nil, fmt.Errorf("rag generate: %w", err)
	}

	return map[string]any{"answer": resp.Text, "sources": sources}, nil
}

func (t *Tool) search(ctx context.Context, db *chromem.DB, query string, topK int) ([]Source, error) {
	col, err := db.GetOrCreateCollection(t.opts.Collection, nil, t.opts.EmbeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("rag collection: %w", err)
	}

	// chromem requires nResults <= collection size
	n := min(topK, col.Count())
	if n <= 0 {
		return []Source{}, nil
	}

	results, err := col.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("rag query: %w", err)
	}

	sources := make([]Source, 0, len(results))
	for _, r := range results {
		sources = append(sources, Source{ID: r.ID, Content: r.Content, Score: r.Similarity, Metadata: r.Metadata})
	}

	return sources, nil
}

// Document is a passage to index.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// AddDocuments embeds and indexes docs into the tool's collection.
func (t *Tool) AddDocuments(ctx context.Context, db *chromem.DB, docs ...Document) error {
	if db == nil {
		return errors.New("rag: nil vector db")
	}

	col, err := db.GetOrCreateCollection(t.opts.Collection, nil, t.opts.EmbeddingFunc)
	if err != nil {
		return fmt.Errorf("rag collection: %w", err)
	}

	chDocs := make([]chromem.Document, 0, len(docs))
	for _, d := range docs {
		chDocs = append(chDocs, chromem.Document{ID: d.ID, Content: d.Content, Metadata: d.Metadata})
	}

	if err := col.AddDocuments(ctx, chDocs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("rag add documents: %w", err)
	}

	return nil
}
