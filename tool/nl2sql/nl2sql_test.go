package nl2sql

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/hupe1980/agentrouter/model"
	"github.com/hupe1980/agentrouter/tool"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1) // every :memory: connection is a separate database
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE inventory (sku TEXT, qty INTEGER)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO inventory VALUES ('A-1', 4), ('B-2', 0), ('C-3', 12)`)
	require.NoError(t, err)

	return db
}

func resolve(t *testing.T, llm model.Model, optFns ...func(o *Options)) *tool.Handle {
	t.Helper()

	reg := tool.NewRegistry(map[string]any{tool.DepDBEngine: openDB(t), tool.DepLLM: llm})
	require.NoError(t, New(optFns...).Register(reg))

	h, err := reg.Resolve(Name)
	require.NoError(t, err)
	return h
}

func TestNL2SQL_RunsGeneratedQuery(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.AddContainsResponse("out of stock", "```sql\nSELECT sku, qty FROM inventory WHERE qty = 0;\n```")

	h := resolve(t, llm, func(o *Options) { o.Schema = "inventory(sku TEXT, qty INTEGER)"; o.Dialect = "sqlite" })

	out, err := h.Call(context.Background(), map[string]any{"query": "which items are out of stock?"})
	require.NoError(t, err)

	res := out.(map[string]any)
	assert.Equal(t, "SELECT sku, qty FROM inventory WHERE qty = 0", res["sql"])
	assert.Equal(t, []string{"sku", "qty"}, res["columns"])
	rows := res["rows"].([]map[string]any)
	require.Len(t, rows, 1)
	assert.Equal(t, "B-2", rows[0]["sku"])

	prompt := llm.Requests()[0].LastUserText()
	assert.Contains(t, prompt, "inventory(sku TEXT, qty INTEGER)")
	assert.Contains(t, prompt, "Dialect: sqlite")
}

func TestNL2SQL_MaxRows(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.AddContainsResponse("all", "SELECT * FROM inventory ORDER BY sku")

	h := resolve(t, llm, func(o *Options) { o.MaxRows = 2 })

	out, err := h.Call(context.Background(), map[string]any{"query": "all items"})
	require.NoError(t, err)
	assert.Len(t, out.(map[string]any)["rows"], 2)
}

func TestNL2SQL_RejectsWrites(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.AddContainsResponse("drop", "DROP TABLE inventory")

	h := resolve(t, llm)

	_, err := h.Call(context.Background(), map[string]any{"query": "drop everything"})
	var tErr *tool.ToolError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, "UNSAFE_SQL", tErr.Code)
}

func TestNL2SQL_RejectsWritableCTE(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.AddContainsResponse("clear", "WITH d AS (DELETE FROM inventory RETURNING *) SELECT count(*) FROM d")

	db := openDB(t)
	reg := tool.NewRegistry(map[string]any{tool.DepDBEngine: db, tool.DepLLM: llm})
	require.NoError(t, New().Register(reg))
	h, err := reg.Resolve(Name)
	require.NoError(t, err)

	_, err = h.Call(context.Background(), map[string]any{"query": "clear the inventory"})
	var tErr *tool.ToolError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, "UNSAFE_SQL", tErr.Code)

	var n int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM inventory`).Scan(&n))
	assert.Equal(t, 3, n)
}

func TestNL2SQL_ExecutionError(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.AddContainsResponse("missing", "SELECT * FROM missing_table")

	h := resolve(t, llm)

	_, err := h.Call(context.Background(), map[string]any{"query": "missing"})
	var tErr *tool.ToolError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, tool.CodeExecution, tErr.Code)
}

func TestReadOnlyStatement(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"SELECT 1", "SELECT 1", true},
		{"  select * from t ;  ", "select * from t", true},
		{"WITH x AS (SELECT 1) SELECT * FROM x", "WITH x AS (SELECT 1) SELECT * FROM x", true},
		{"```\nSELECT 2\n```", "SELECT 2", true},
		{"DELETE FROM t", "", false},
		{"SELECT 1; DROP TABLE t", "", false},
		{"WITH d AS (DELETE FROM orders RETURNING *) SELECT count(*) FROM d", "", false},
		{"with u as (update t set qty = 0 returning sku) select * from u", "", false},
		{"SELECT * FROM t FOR UPDATE", "", false},
		{"SELECT note FROM t WHERE note = 'please delete me'", "SELECT note FROM t WHERE note = 'please delete me'", true},
		{"SELECT last_updated, replace(sku, '-', '') FROM t -- drop later", "SELECT last_updated, replace(sku, '-', '') FROM t -- drop later", true},
		{"", "", false},
	}

	for _, tt := range tests {
		got, err := ReadOnlyStatement(tt.in)
		if !tt.ok {
			assert.ErrorIs(t, err, ErrNotReadOnly, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}
