// Package nl2sql provides a tool that turns a natural-language question into a
// single read-only SQL statement and runs it against the shared database.
package nl2sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/hupe1980/agentrouter/internal/util"
	"github.com/hupe1980/agentrouter/model"
	"github.com/hupe1980/agentrouter/tool"
)

// Name is the registry name of the tool.
const Name = "nl2sql"

// ErrNotReadOnly is returned for generated statements other than SELECT/WITH.
var ErrNotReadOnly = errors.New("only a single SELECT or WITH statement is allowed")

const instructions = `You translate questions into one read-only SQL query.
Reply with the SQL only, no explanation and no markdown.`

const promptTemplate = `{{if .Schema}}Schema:
{{.Schema}}

{{end}}{{if .Dialect}}Dialect: {{.Dialect}}
{{end}}Question: {{.Query}}`

var fence = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

var (
	// literals and comments are blanked before scanning for write keywords
	literal = regexp.MustCompile(`(?s)'(?:[^']|'')*'|"(?:[^"]|"")*"|--[^\n]*|/\*.*?\*/`)
	writeOp = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|MERGE|UPSERT|DROP|ALTER|TRUNCATE|CREATE|GRANT|REVOKE|ATTACH|DETACH|PRAGMA|VACUUM|COPY|CALL|EXEC|EXECUTE|LOCK|REINDEX)\b`)
)

// Options configure the tool.
type Options struct {
	// Schema is a DDL or prose description of the tables given to the LLM.
	Schema string
	// Dialect is a hint such as "postgresql" or "sqlite".
	Dialect string
	// MaxRows caps the returned rows (0 = unlimited).
	MaxRows int
	// ReadOnlyTx runs every statement in a read-only transaction that is
	// rolled back afterwards. The driver must support read-only
	// transactions (lib/pq does).
	ReadOnlyTx bool
}

// Tool is the nl2sql plugin.
type Tool struct {
	opts Options
}

var _ tool.Registrable = (*Tool)(nil)

// New creates the plugin.
func New(optFns ...func(o *Options)) *Tool {
	opts := Options{MaxRows: 100}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Tool{opts: opts}
}

// Register implements tool.Registrable.
func (t *Tool) Register(reg *tool.Registry) error {
	return reg.Register(tool.Descriptor{
		Name:        Name,
		Description: "Answer a data question by generating and running a read-only SQL query.",
		Requires:    []string{tool.DepDBEngine, tool.DepLLM},
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string", "description": "Question about the data"},
			},
			"required": []string{"query"},
		},
		Invoke: t.invoke,
	})
}

func (t *Tool) invoke(cc *tool.CallContext, args map[string]any) (any, error) {
	db, err := tool.Dep[*sql.DB](cc.Deps(), tool.DepDBEngine)
	if err != nil {
		return nil, err
	}
	llm, err := tool.Dep[model.Model](cc.Deps(), tool.DepLLM)
	if err != nil {
		return nil, err
	}

	query, _ := args["query"].(string)

	prompt, err := util.RenderPrompt(promptTemplate, map[string]any{
		"Schema":  t.opts.Schema,
		"Dialect": t.opts.Dialect,
		"Query":   query,
	})
	if err != nil {
		return nil, err
	}

	resp, err := llm.Generate(cc.Context(), model.UserText(instructions, prompt))
	if err != nil {
		return nil, fmt.Errorf("nl2sql generate: %w", err)
	}

	stmt, err := ReadOnlyStatement(resp.Text)
	if err != nil {
		return nil, tool.NewToolError(Name, err.Error(), "UNSAFE_SQL")
	}

	cc.Logger().Debug("nl2sql.execute", "sql", stmt)

	columns, rows, err := t.run(cc.Context(), db, stmt)
	if err != nil {
		return nil, fmt.Errorf("nl2sql execute: %w", err)
	}

	return map[string]any{"sql": stmt, "columns": columns, "rows": rows}, nil
}

// ReadOnlyStatement strips markdown fences and a trailing semicolon and
// verifies that what remains is exactly one SELECT or WITH statement with
// no data-modifying keyword outside string literals and comments.
func ReadOnlyStatement(raw string) (string, error) {
	stmt := strings.TrimSpace(raw)
	if m := fence.FindStringSubmatch(stmt); m != nil {
		stmt = strings.TrimSpace(m[1])
	}
	stmt = strings.TrimSpace(strings.TrimSuffix(stmt, ";"))

	if stmt == "" || strings.Contains(stmt, ";") {
		return "", ErrNotReadOnly
	}

	fields := strings.Fields(stmt)
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "WITH":
	default:
		return "", ErrNotReadOnly
	}

	if writeOp.MatchString(literal.ReplaceAllString(stmt, " ")) {
		return "", ErrNotReadOnly
	}

	return stmt, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (t *Tool) run(ctx context.Context, db *sql.DB, stmt string) ([]string, []map[string]any, error) {
	if !t.opts.ReadOnlyTx {
		return t.query(ctx, db, stmt)
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, nil, fmt.Errorf("begin read-only transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	return t.query(ctx, tx, stmt)
}

func (t *Tool) query(ctx context.Context, q querier, stmt string) ([]string, []map[string]any, error) {
	rs, err := q.QueryContext(ctx, stmt)
	if err != nil {
		return nil, nil, err
	}
	defer rs.Close()

	columns, err := rs.Columns()
	if err != nil {
		return nil, nil, err
	}

	rows := []map[string]any{}
	for rs.Next() {
		if t.opts.MaxRows > 0 && len(rows) >= t.opts.MaxRows {
			break
		}

		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rs.Scan(ptrs...); err != nil {
			return nil, nil, err
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		rows = append(rows, row)
	}

	return columns, rows, rs.Err()
}
