// Package evaluation scores routing decisions against labeled cases.
package evaluation

import (
	"github.com/hupe1980/agentrouter/core"
)

// Case is a labeled request: Want is the agent kind that should serve it.
type Case struct {
	Request core.Request
	Want    core.AgentKind
}

// Miss records a case served by a different agent than expected.
type Miss struct {
	Index int
	Case  Case
	// Got is -1 when no agent was selected.
	Got core.AgentKind
}

// Result summarizes an evaluation run.
type Result struct {
	Total    int
	Correct  int
	Accuracy float64
	Misses   []Miss
}

// Evaluator scores a set of cases.
type Evaluator interface {
	Evaluate(cases []Case) (*Result, error)
}

// Selector is the routing decision under evaluation.
type Selector interface {
	Select(typeKey string) (core.Agent, core.RoutingOutcome)
}

// RoutingEvaluator checks which agent a selector picks for each case.
type RoutingEvaluator struct {
	selector   Selector
	defaultKey string
}

var _ Evaluator = (*RoutingEvaluator)(nil)

// NewRoutingEvaluator creates an evaluator. defaultKey is used for requests
// without a declared type, as the orchestrator does.
func NewRoutingEvaluator(selector Selector, defaultKey string) *RoutingEvaluator {
	return &RoutingEvaluator{selector: selector, defaultKey: defaultKey}
}

// Evaluate implements Evaluator.
func (e *RoutingEvaluator) Evaluate(cases []Case) (*Result, error) {
	res := &Result{Total: len(cases), Misses: []Miss{}}

	for i, c := range cases {
		key := c.Request.Type
		if key == "" {
			key = e.defaultKey
		}

		a, _ := e.selector.Select(key)
		if a != nil && a.Kind() == c.Want {
			res.Correct++
			continue
		}

		miss := Miss{Index: i, Case: c, Got: -1}
		if a != nil {
			miss.Got = a.Kind()
		}
		res.Misses = append(res.Misses, miss)
	}

	if res.Total > 0 {
		res.Accuracy = float64(res.Correct) / float64(res.Total)
	}

	return res, nil
}
