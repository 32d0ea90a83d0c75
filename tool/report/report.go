// Package report provides a tool that drafts a structured report with the LLM.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hupe1980/agentrouter/internal/util"
	"github.com/hupe1980/agentrouter/model"
	"github.com/hupe1980/agentrouter/tool"
)

// Name is the registry name of the tool.
const Name = "report"

const instructions = `You write concise business reports in markdown.
Start with a one-paragraph executive summary, then one heading per section.`

const promptTemplate = `Title: {{.Title}}
{{range .Sections}}
## {{.Heading}}
{{.Notes}}
{{end}}`

type section struct {
	Heading string
	Notes   string
}

// Tool is the report plugin.
type Tool struct{}

var _ tool.Registrable = Tool{}

// New creates the plugin.
func New() Tool { return Tool{} }

// Register implements tool.Registrable.
func (Tool) Register(reg *tool.Registry) error {
	return reg.Register(tool.Descriptor{
		Name:        Name,
		Description: "Draft a report with the given title and section notes.",
		Requires:    []string{tool.DepLLM},
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title":    map[string]any{"type": "string", "description": "Report title"},
				"sections": map[string]any{"type": "object", "description": "Section heading to notes"},
			},
			"required": []string{"title"},
		},
		Invoke: invoke,
	})
}

func invoke(cc *tool.CallContext, args map[string]any) (any, error) {
	llm, err := tool.Dep[model.Model](cc.Deps(), tool.DepLLM)
	if err != nil {
		return nil, err
	}

	title, _ := args["title"].(string)
	if strings.TrimSpace(title) == "" {
		return nil, tool.NewToolError(Name, "title must not be empty", tool.CodeValidation)
	}

	prompt, err := util.RenderPrompt(promptTemplate, map[string]any{
		"Title":    title,
		"Sections": sections(args["sections"]),
	})
	if err != nil {
		return nil, err
	}

	resp, err := llm.Generate(cc.Context(), model.UserText(instructions, prompt))
	if err != nil {
		return nil, fmt.Errorf("report generate: %w", err)
	}

	return map[string]any{"title": title, "body": resp.Text}, nil
}

// sections orders headings alphabetically so prompts are stable.
func sections(v any) []section {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}

	out := make([]section, 0, len(m))
	for heading, notes := range m {
		out = append(out, section{Heading: heading, Notes: fmt.Sprint(notes)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Heading < out[j].Heading })

	return out
}
