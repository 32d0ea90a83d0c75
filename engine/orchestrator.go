package engine

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/hupe1980/agentrouter/config"
	"github.com/hupe1980/agentrouter/core"
	"github.com/hupe1980/agentrouter/logging"
)

// ErrorCode is the code of every failure response.
const ErrorCode = 500

// Embedder turns a request into an embedding; nil means absent.
type Embedder interface {
	Embed(ctx context.Context, req core.Request) core.Embedding
}

// MemoryPool stores and retrieves past interactions by similarity.
type MemoryPool interface {
	Retrieve(e core.Embedding, k int) ([]map[string]any, error)
	Store(e core.Embedding, payload map[string]any) error
}

// AgentSelector picks the agent for a declared type key.
type AgentSelector interface {
	Select(typeKey string) (core.Agent, core.RoutingOutcome)
}

// RequestObserver is optionally implemented by the routing recorder to
// receive per-request outcome and latency.
type RequestObserver interface {
	ObserveRequest(ok bool, d time.Duration)
}

// Config defines tuning parameters for the Orchestrator.
type Config struct {
	// BusyMessage is the error text of every failure response.
	BusyMessage string
	// MemoryTopK is the number of memories joined to a request.
	MemoryTopK int
	// DefaultAgentType is used when a request declares no type.
	DefaultAgentType string
	// MaxConcurrentRequests bounds in-flight requests (0 = unlimited).
	MaxConcurrentRequests int
}

// DefaultConfig provides the default configuration values.
var DefaultConfig = Config{
	BusyMessage:      config.DefaultBusyMessage,
	MemoryTopK:       5,
	DefaultAgentType: core.KindMarketing.String(),
}

// Options configures an Orchestrator instance.
type Options struct {
	Config Config
	// Recorder receives the routing outcome of every routed request.
	Recorder core.RoutingRecorder
	Logger   logging.Logger
	// StateObserver, if set, is registered as an on_state_change callback.
	StateObserver StateObserver
	Callbacks     *CallbackManager
	// NewRequestID generates request ids; defaults to 32 hex characters.
	NewRequestID func() string
}

// Orchestrator runs requests through the embed, retrieve, route, execute,
// store and report steps.
type Orchestrator struct {
	embedder  Embedder
	pool      MemoryPool
	selector  AgentSelector
	config    Config
	recorder  core.RoutingRecorder
	logger    logging.Logger
	callbacks *CallbackManager
	newID     func() string
	sem       *semaphore.Weighted
}

// New creates an orchestrator over its three collaborators.
func New(embedder Embedder, pool MemoryPool, selector AgentSelector, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		Config:       DefaultConfig,
		Recorder:     core.NoOpRecorder{},
		Logger:       logging.NoOpLogger{},
		Callbacks:    NewCallbackManager(),
		NewRequestID: NewRequestID,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Config.BusyMessage == "" {
		opts.Config.BusyMessage = DefaultConfig.BusyMessage
	}
	if opts.Config.DefaultAgentType == "" {
		opts.Config.DefaultAgentType = DefaultConfig.DefaultAgentType
	}
	if opts.Recorder == nil {
		opts.Recorder = core.NoOpRecorder{}
	}
	if opts.Callbacks == nil {
		opts.Callbacks = NewCallbackManager()
	}

	if obs := opts.StateObserver; obs != nil {
		opts.Callbacks.RegisterCallback(NewFunctionCallback(CallbackOnStateChange, func(_ context.Context, cc *CallbackContext) error {
			obs(cc.RequestID, cc.State)
			return nil
		}))
	}

	o := &Orchestrator{
		embedder:  embedder,
		pool:      pool,
		selector:  selector,
		config:    opts.Config,
		recorder:  opts.Recorder,
		logger:    logging.OrNoOp(opts.Logger),
		callbacks: opts.Callbacks,
		newID:     opts.NewRequestID,
	}

	if n := opts.Config.MaxConcurrentRequests; n > 0 {
		o.sem = semaphore.NewWeighted(int64(n))
	}

	return o
}

// NewRequestID returns a fresh random identifier of 32 hex characters.
func NewRequestID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config { return o.config }

// run is the per-request state carried through the steps.
type run struct {
	id    string
	req   core.Request
	trail []State
	start time.Time
}

func (o *Orchestrator) transition(ctx context.Context, r *run, s State) {
	r.trail = append(r.trail, s)
	if err := o.callbacks.ExecuteCallbacks(ctx, CallbackOnStateChange, &CallbackContext{RequestID: r.id, Request: r.req, State: s}); err != nil {
		o.logger.Warn("engine.callback.failed", "request_id", r.id, "error", err.Error())
	}
}

// Process handles one request. It never returns an error: failures at any
// step produce {"error": BusyMessage, "code": 500, "request_id": id}.
func (o *Orchestrator) Process(ctx context.Context, req core.Request) (result core.Result) {
	r := &run{id: o.newID(), req: req, start: time.Now()}

	defer func() {
		if rec := recover(); rec != nil {
			result = o.fail(ctx, r, fmt.Errorf("panic: %v", rec))
		}
	}()

	if o.sem != nil {
		if err := o.sem.Acquire(ctx, 1); err != nil {
			return o.fail(ctx, r, fmt.Errorf("acquire slot: %w", err))
		}
		defer o.sem.Release(1)
	}

	o.transition(ctx, r, StateReceived)

	emb := o.embedder.Embed(ctx, req)
	o.transition(ctx, r, StateEmbedded)

	memory := []map[string]any{}
	if emb != nil {
		var err error
		if memory, err = o.pool.Retrieve(emb, o.config.MemoryTopK); err != nil {
			return o.fail(ctx, r, fmt.Errorf("retrieve memory: %w", err))
		}
	}
	o.transition(ctx, r, StateMemoryJoined)

	typeKey := req.Type
	if strings.TrimSpace(typeKey) == "" {
		typeKey = o.config.DefaultAgentType
	}

	agent, outcome := o.selector.Select(typeKey)
	if agent == nil {
		return o.fail(ctx, r, errors.New("no agent selected"))
	}
	logging.Routing(o.logger, outcome.Expected, outcome.Actual, outcome.Matched)
	o.transition(ctx, r, StateRouted)

	if err := o.callbacks.ExecuteCallbacks(ctx, CallbackBeforeAgent, &CallbackContext{RequestID: r.id, Request: req, State: StateRouted, Outcome: outcome}); err != nil {
		return o.fail(ctx, r, err)
	}

	if err := ctx.Err(); err != nil {
		return o.fail(ctx, r, err)
	}

	res, err := agent.Execute(ctx, core.ExecutionInput{
		Query:  req.Text,
		Memory: memory,
		Trace:  []core.TraceStep{},
	})
	if err != nil {
		return o.fail(ctx, r, fmt.Errorf("execute %s: %w", agent.Kind(), err))
	}
	o.transition(ctx, r, StateExecuted)

	if err := o.callbacks.ExecuteCallbacks(ctx, CallbackAfterAgent, &CallbackContext{RequestID: r.id, Request: req, State: StateExecuted, Outcome: outcome, Result: res}); err != nil {
		return o.fail(ctx, r, err)
	}

	if emb != nil && !res.IsEmpty() {
		if err := ctx.Err(); err != nil {
			return o.fail(ctx, r, err)
		}
		if err := o.pool.Store(emb, map[string]any{"query": req.Text, "result": res}); err != nil {
			return o.fail(ctx, r, fmt.Errorf("store memory: %w", err))
		}
	}
	o.transition(ctx, r, StatePersisted)

	o.report(r, outcome)
	o.transition(ctx, r, StateReported)

	o.transition(ctx, r, StateResponded)
	o.observe(true, r.start)

	o.logger.Info("engine.request.completed",
		"request_id", r.id,
		"agent", outcome.Actual,
		"matched", outcome.Matched,
		"embedded", emb != nil,
		"memories", len(memory),
		"states", trail(r.trail),
		"duration_ms", time.Since(r.start).Milliseconds(),
	)

	return res
}

// report hands the outcome to the recorder; a misbehaving recorder never
// fails the request.
func (o *Orchestrator) report(r *run, outcome core.RoutingOutcome) {
	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Warn("engine.report.panic", "request_id", r.id, "panic", rec)
		}
	}()
	o.recorder.RecordRouting(outcome.Matched)
}

func (o *Orchestrator) observe(ok bool, start time.Time) {
	if obs, isObs := o.recorder.(RequestObserver); isObs {
		defer func() { _ = recover() }()
		obs.ObserveRequest(ok, time.Since(start))
	}
}

func (o *Orchestrator) fail(ctx context.Context, r *run, cause error) core.Result {
	last := StateReceived
	if n := len(r.trail); n > 0 {
		last = r.trail[n-1]
	}

	o.logger.Error("engine.request.failed",
		"request_id", r.id,
		"error", cause.Error(),
		"last_state", last.String(),
		"states", trail(r.trail),
		"duration_ms", time.Since(r.start).Milliseconds(),
	)

	// Callbacks must not turn a failure response into a panic.
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				o.logger.Warn("engine.callback.panic", "request_id", r.id, "panic", rec)
			}
		}()
		o.transition(ctx, r, StateError)
		if err := o.callbacks.ExecuteCallbacks(ctx, CallbackOnError, &CallbackContext{RequestID: r.id, Request: r.req, State: StateError, Err: cause}); err != nil {
			o.logger.Warn("engine.callback.failed", "request_id", r.id, "error", err.Error())
		}
	}()

	o.observe(false, r.start)

	return ErrorResult(o.config.BusyMessage, r.id)
}

// ErrorResult builds the uniform failure response.
func ErrorResult(message, requestID string) core.Result {
	return core.Result{
		"error":      message,
		"code":       ErrorCode,
		"request_id": requestID,
	}
}

// IsErrorResult reports whether res is a failure response.
func IsErrorResult(res core.Result) bool {
	code, ok := res["code"].(int)
	_, hasID := res["request_id"].(string)
	return ok && code == ErrorCode && hasID
}

// ProcessBatch processes reqs concurrently and returns the results in
// request order.
func (o *Orchestrator) ProcessBatch(ctx context.Context, reqs []core.Request) []core.Result {
	results := make([]core.Result, len(reqs))

	var g errgroup.Group
	for i, req := range reqs {
		g.Go(func() error {
			results[i] = o.Process(ctx, req)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func trail(states []State) string {
	names := make([]string, len(states))
	for i, s := range states {
		names[i] = s.String()
	}
	return strings.Join(names, ">")
}
