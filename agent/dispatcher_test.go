package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrouter/core"
	"github.com/hupe1980/agentrouter/internal/testutil"
)

func newDispatcher(t *testing.T) *Dispatcher {
	t.Helper()

	d, err := NewDispatcher(map[core.AgentKind]core.Agent{
		core.KindMarketing: testutil.NewStubAgent(core.KindMarketing, nil),
		core.KindOperation: testutil.NewStubAgent(core.KindOperation, nil),
		core.KindResearch:  testutil.NewStubAgent(core.KindResearch, nil),
	}, core.KindMarketing)
	require.NoError(t, err)

	return d
}

func TestDispatcher_SelectKnown(t *testing.T) {
	d := newDispatcher(t)

	tests := []struct {
		key  string
		kind core.AgentKind
	}{
		{"marketing", core.KindMarketing},
		{"operation", core.KindOperation},
		{"research", core.KindResearch},
		{"  Research ", core.KindResearch},
		{"OPERATION", core.KindOperation},
	}

	for _, tt := range tests {
		a, outcome := d.Select(tt.key)
		assert.Equal(t, tt.kind, a.Kind(), tt.key)
		assert.True(t, outcome.Matched, tt.key)
		assert.Equal(t, tt.kind.String(), outcome.Actual)
		assert.Equal(t, core.NormalizeTypeKey(tt.key), outcome.Expected)
	}
}

func TestDispatcher_SelectFallback(t *testing.T) {
	d := newDispatcher(t)

	for _, key := range []string{"unknown_type", "", "sales", "market ing"} {
		a, outcome := d.Select(key)
		assert.Equal(t, core.KindMarketing, a.Kind(), key)
		assert.False(t, outcome.Matched, key)
		assert.Equal(t, "marketing", outcome.Actual)
	}

	a, _ := d.Select("x")
	assert.Same(t, d.Fallback(), a)
}

func TestDispatcher_KnownKindWithoutAgentFallsBack(t *testing.T) {
	d, err := NewDispatcher(map[core.AgentKind]core.Agent{
		core.KindMarketing: testutil.NewStubAgent(core.KindMarketing, nil),
	}, core.KindMarketing)
	require.NoError(t, err)

	a, outcome := d.Select("research")
	assert.Equal(t, core.KindMarketing, a.Kind())
	assert.False(t, outcome.Matched)
	assert.Equal(t, []core.AgentKind{core.KindMarketing}, d.Kinds())
}

func TestNewDispatcher_Errors(t *testing.T) {
	_, err := NewDispatcher(map[core.AgentKind]core.Agent{
		core.KindResearch: testutil.NewStubAgent(core.KindResearch, nil),
	}, core.KindMarketing)
	assert.ErrorIs(t, err, ErrFallbackMissing)

	_, err = NewDispatcher(map[core.AgentKind]core.Agent{
		core.KindMarketing: testutil.NewStubAgent(core.KindResearch, nil),
	}, core.KindMarketing)
	assert.Error(t, err)

	_, err = NewDispatcher(map[core.AgentKind]core.Agent{core.KindMarketing: nil}, core.KindMarketing)
	assert.Error(t, err)
}

func TestDispatcher_Kinds(t *testing.T) {
	assert.Equal(t, core.AllAgentKinds, newDispatcher(t).Kinds())
}
