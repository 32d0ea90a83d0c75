// Package agentrouter provides a high-level façade that assembles the routing
// core from a config.Config: embedding dispatcher, memory pool, tool
// registry, the three domain agents, the metrics reporter and the request
// orchestrator. Most applications interact with this package by:
//  1. Loading a configuration (config.Load) or starting from config.Default()
//  2. Creating a Router via New, optionally overriding collaborators
//  3. Calling Start to begin periodic metrics reporting
//  4. Submitting requests with Process or ProcessBatch
//  5. Calling Close on shutdown
//
// Defaults need no external services: a hash encoder, a mock LLM and no SQL
// engine (the nl2sql tool is then left unregistered).
package agentrouter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"
	chromem "github.com/philippgille/chromem-go"
	"github.com/prometheus/client_golang/prometheus"

	// SQL drivers selectable through postgresql_uri.
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/hupe1980/agentrouter/agent"
	"github.com/hupe1980/agentrouter/config"
	"github.com/hupe1980/agentrouter/core"
	"github.com/hupe1980/agentrouter/embedding"
	embopenai "github.com/hupe1980/agentrouter/embedding/openai"
	"github.com/hupe1980/agentrouter/engine"
	"github.com/hupe1980/agentrouter/evaluation"
	"github.com/hupe1980/agentrouter/logging"
	"github.com/hupe1980/agentrouter/memory"
	"github.com/hupe1980/agentrouter/metrics"
	"github.com/hupe1980/agentrouter/model"
	modelanthropic "github.com/hupe1980/agentrouter/model/anthropic"
	modelopenai "github.com/hupe1980/agentrouter/model/openai"
	"github.com/hupe1980/agentrouter/tool"
	"github.com/hupe1980/agentrouter/tool/forecast"
	"github.com/hupe1980/agentrouter/tool/nl2sql"
	"github.com/hupe1980/agentrouter/tool/rag"
	"github.com/hupe1980/agentrouter/tool/report"
)

// Options configures the Router. Every non-nil field overrides the
// collaborator that would otherwise be built from Config.
type Options struct {
	Logger logging.Logger

	// LLM replaces the model selected by cfg.LLM.Provider.
	LLM model.Model
	// TextEncoder and ImageEncoder replace the encoders selected by
	// cfg.Embedder.Provider. Setting either one disables the default pair.
	TextEncoder  core.TextEncoder
	ImageEncoder core.ImageEncoder

	// DB replaces the connection opened from cfg.PostgreSQLURI. The Router
	// does not close a provided DB.
	DB *sql.DB
	// SQLSchema describes the tables to the nl2sql tool.
	SQLSchema string

	VectorDB *chromem.DB

	// Plugins are registered after the built-in tools.
	Plugins []tool.Registrable
	// Agents replace the default agent of the same kind.
	Agents []core.Agent

	// PromRegistry receives the metrics collectors.
	PromRegistry *prometheus.Registry
	Publisher    metrics.Publisher

	Callbacks     *engine.CallbackManager
	StateObserver engine.StateObserver
}

// Router owns the wired routing core.
type Router struct {
	cfg          *config.Config
	logger       logging.Logger
	db           *sql.DB
	ownsDB       bool
	vectorDB     *chromem.DB
	rag          *rag.Tool
	registry     *tool.Registry
	dispatcher   *agent.Dispatcher
	pool         *memory.Pool
	reporter     *metrics.Reporter
	orchestrator *engine.Orchestrator
}

// New builds a Router from cfg (config.Default() when nil).
func New(cfg *config.Config, optFns ...func(o *Options)) (*Router, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger(&logging.LoggerConfig{
			Level:     logging.ParseLevel(cfg.Log.Level),
			Format:    cfg.Log.Format,
			Component: "agentrouter",
		})
	}

	r := &Router{cfg: cfg, logger: logger, vectorDB: opts.VectorDB}
	if r.vectorDB == nil {
		r.vectorDB = chromem.NewDB()
	}

	text, image, err := buildEncoders(cfg, opts)
	if err != nil {
		return nil, err
	}

	llm, client, err := buildModel(cfg, opts)
	if err != nil {
		return nil, err
	}

	r.db = opts.DB
	if r.db == nil && cfg.PostgreSQLURI != "" {
		if r.db, err = openDB(cfg); err != nil {
			return nil, err
		}
		r.ownsDB = true
	}

	if err := r.build(cfg, opts, text, image, llm, client); err != nil {
		_ = r.closeDB()
		return nil, err
	}

	return r, nil
}

func (r *Router) build(cfg *config.Config, opts Options, text core.TextEncoder, image core.ImageEncoder, llm model.Model, client any) error {
	deps := tool.Deps{
		tool.DepConfig:      cfg,
		tool.DepLLM:         llm,
		tool.DepModelClient: client,
		tool.DepVectorDB:    r.vectorDB,
	}
	if image != nil {
		deps[tool.DepCLIPClient] = image
	}
	if r.db != nil {
		deps[tool.DepDBEngine] = r.db
	}

	r.registry = tool.NewRegistry(deps, func(o *tool.RegistryOptions) { o.Logger = r.logger })

	r.rag = rag.New(func(o *rag.Options) {
		if text != nil {
			o.EmbeddingFunc = rag.EmbeddingFuncFromEncoder(text)
		}
	})

	plugins := []tool.Registrable{r.rag, forecast.New(), report.New()}
	if r.db != nil {
		plugins = append(plugins, nl2sql.New(func(o *nl2sql.Options) {
			o.Schema = opts.SQLSchema
			o.Dialect = dialect(cfg.PostgreSQLURI)
			o.ReadOnlyTx = o.Dialect == "postgresql"
		}))
	} else {
		r.logger.Info("tool.disabled", "tool", nl2sql.Name, "reason", "no sql engine configured")
	}
	plugins = append(plugins, opts.Plugins...)

	if err := tool.RegisterAll(r.registry, plugins...); err != nil {
		return err
	}

	agentOpts := func(o *agent.ModelAgentOptions) { o.Logger = r.logger }
	agents := map[core.AgentKind]core.Agent{
		core.KindMarketing: agent.NewMarketingAgent(llm, r.registry, agentOpts),
		core.KindOperation: agent.NewOperationAgent(llm, r.registry, agentOpts),
		core.KindResearch:  agent.NewResearchAgent(llm, r.registry, agentOpts),
	}
	for _, a := range opts.Agents {
		if a != nil {
			agents[a.Kind()] = a
		}
	}

	// Validate guarantees a known kind.
	fallback, _ := core.ParseAgentKind(cfg.DefaultAgent)

	var err error
	if r.dispatcher, err = agent.NewDispatcher(agents, fallback); err != nil {
		return err
	}

	if r.pool, err = memory.NewPool(cfg.EmbedDim, func(o *memory.PoolOptions) {
		o.Capacity = cfg.MemoryCapacity
		o.TopK = cfg.MemoryTopK
		o.Logger = r.logger
	}); err != nil {
		return err
	}

	if r.reporter, err = metrics.NewReporter(func(o *metrics.Options) {
		o.Interval = cfg.MetricsInterval.Duration()
		o.Logger = r.logger
		o.Registry = opts.PromRegistry
		if opts.Publisher != nil {
			o.Publisher = opts.Publisher
		}
	}); err != nil {
		return err
	}

	embedder := embedding.NewDispatcher(image, text, func(o *embedding.DispatcherOptions) {
		o.Dim = cfg.EmbedDim
		o.Logger = r.logger
	})

	r.orchestrator = engine.New(embedder, r.pool, r.dispatcher, func(o *engine.Options) {
		o.Config = engine.Config{
			BusyMessage:           cfg.BusyMessage,
			MemoryTopK:            cfg.MemoryTopK,
			DefaultAgentType:      fallback.String(),
			MaxConcurrentRequests: cfg.MaxConcurrentRequests,
		}
		o.Recorder = r.reporter
		o.Logger = r.logger
		o.Callbacks = opts.Callbacks
		o.StateObserver = opts.StateObserver
	})

	return nil
}

func buildEncoders(cfg *config.Config, opts Options) (core.TextEncoder, core.ImageEncoder, error) {
	if opts.TextEncoder != nil || opts.ImageEncoder != nil {
		return opts.TextEncoder, opts.ImageEncoder, nil
	}

	switch cfg.Embedder.Provider {
	case "openai":
		var clientOpts []openaioption.RequestOption
		if cfg.Embedder.APIKey != "" {
			clientOpts = append(clientOpts, openaioption.WithAPIKey(cfg.Embedder.APIKey))
		}
		if cfg.Embedder.BaseURL != "" {
			clientOpts = append(clientOpts, openaioption.WithBaseURL(cfg.Embedder.BaseURL))
		}
		client := openai.NewClient(clientOpts...)
		enc := embopenai.NewTextEncoderFromClient(&client, func(o *embopenai.Options) {
			if cfg.Embedder.Model != "" {
				o.Model = cfg.Embedder.Model
			}
			o.Dimensions = cfg.EmbedDim
		})
		// Text only; image requests degrade to an absent embedding.
		return enc, nil, nil
	case "clip":
		clip, err := embedding.NewCLIPClient(embedding.CLIPConfig{
			BaseURL: cfg.Embedder.BaseURL,
			APIKey:  cfg.Embedder.APIKey,
			Timeout: cfg.Embedder.Timeout.Duration(),
		})
		if err != nil {
			return nil, nil, err
		}
		return clip, clip, nil
	default:
		h := embedding.NewHashEncoder(cfg.EmbedDim)
		return h, h, nil
	}
}

// buildModel returns the chat model and the raw SDK client bound as the
// model_client dependency.
func buildModel(cfg *config.Config, opts Options) (model.Model, any, error) {
	if opts.LLM != nil {
		return opts.LLM, opts.LLM, nil
	}

	switch cfg.LLM.Provider {
	case "openai":
		var clientOpts []openaioption.RequestOption
		if cfg.LLM.APIKey != "" {
			clientOpts = append(clientOpts, openaioption.WithAPIKey(cfg.LLM.APIKey))
		}
		if cfg.LLM.BaseURL != "" {
			clientOpts = append(clientOpts, openaioption.WithBaseURL(cfg.LLM.BaseURL))
		}
		client := openai.NewClient(clientOpts...)
		m := modelopenai.NewModelFromClient(&client, func(o *modelopenai.Options) {
			if cfg.LLM.Model != "" {
				o.Model = cfg.LLM.Model
			}
			o.Temperature = cfg.LLM.Temperature
			if cfg.LLM.MaxTokens > 0 {
				o.MaxCompletionTokens = int64(cfg.LLM.MaxTokens)
			}
		})
		return m, &client, nil
	case "anthropic":
		var clientOpts []anthropicoption.RequestOption
		if cfg.LLM.APIKey != "" {
			clientOpts = append(clientOpts, anthropicoption.WithAPIKey(cfg.LLM.APIKey))
		}
		if cfg.LLM.BaseURL != "" {
			clientOpts = append(clientOpts, anthropicoption.WithBaseURL(cfg.LLM.BaseURL))
		}
		client := anthropic.NewClient(clientOpts...)
		m := modelanthropic.NewModelFromClient(&client, func(o *modelanthropic.Options) {
			if cfg.LLM.Model != "" {
				o.Model = anthropic.Model(cfg.LLM.Model)
			}
			o.Temperature = cfg.LLM.Temperature
			if cfg.LLM.MaxTokens > 0 {
				o.MaxTokens = int64(cfg.LLM.MaxTokens)
			}
		})
		return m, &client, nil
	case "mock":
		m := model.NewMockModel("mock", "mock")
		return m, m, nil
	default:
		return nil, nil, fmt.Errorf("unsupported llm provider %q", cfg.LLM.Provider)
	}
}

// openDB opens postgres:// and postgresql:// URIs with lib/pq; sqlite: and
// file: URIs (or ":memory:") with the pure-Go sqlite driver.
func openDB(cfg *config.Config) (*sql.DB, error) {
	uri := cfg.PostgreSQLURI
	driver, dsn := "postgres", uri
	switch {
	case uri == ":memory:":
		driver = "sqlite"
	case strings.HasPrefix(uri, "sqlite://"):
		driver, dsn = "sqlite", strings.TrimPrefix(uri, "sqlite://")
	case strings.HasPrefix(uri, "sqlite:"):
		driver, dsn = "sqlite", strings.TrimPrefix(uri, "sqlite:")
	case strings.HasPrefix(uri, "file:"):
		driver = "sqlite"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	conns := cfg.MaxAsyncConnections
	if driver == "sqlite" && dsn == ":memory:" {
		// Every connection to :memory: is a distinct database.
		conns = 1
	}
	db.SetMaxOpenConns(conns)
	db.SetMaxIdleConns(conns)

	return db, nil
}

func dialect(uri string) string {
	if strings.HasPrefix(uri, "postgres") {
		return "postgresql"
	}
	return "sqlite"
}

// Start begins periodic metrics reporting until ctx is done or Close is called.
func (r *Router) Start(ctx context.Context) { r.reporter.Start(ctx) }

// Process runs one request through the routing core. It never returns an
// error; failures surface as error results (see engine.IsErrorResult).
func (r *Router) Process(ctx context.Context, req core.Request) core.Result {
	return r.orchestrator.Process(ctx, req)
}

// ProcessMap accepts the loose map form {"type", "text", "image_url"}.
func (r *Router) ProcessMap(ctx context.Context, m map[string]any) core.Result {
	return r.orchestrator.Process(ctx, core.RequestFromMap(m))
}

// ProcessBatch processes reqs concurrently; results keep the input order.
func (r *Router) ProcessBatch(ctx context.Context, reqs []core.Request) []core.Result {
	return r.orchestrator.ProcessBatch(ctx, reqs)
}

// AddKnowledge indexes documents for the rag tool.
func (r *Router) AddKnowledge(ctx context.Context, docs ...rag.Document) error {
	return r.rag.AddDocuments(ctx, r.vectorDB, docs...)
}

// EvaluateRouting scores the router's agent selection against labeled cases.
func (r *Router) EvaluateRouting(cases []evaluation.Case) (*evaluation.Result, error) {
	return evaluation.NewRoutingEvaluator(r.dispatcher, r.orchestrator.Config().DefaultAgentType).Evaluate(cases)
}

// Config returns the configuration the router was built from.
func (r *Router) Config() *config.Config { return r.cfg }

// Tools returns the tool registry.
func (r *Router) Tools() *tool.Registry { return r.registry }

// Memory returns the interaction memory pool.
func (r *Router) Memory() *memory.Pool { return r.pool }

// Dispatcher returns the agent dispatcher.
func (r *Router) Dispatcher() *agent.Dispatcher { return r.dispatcher }

// Metrics returns the metrics reporter.
func (r *Router) Metrics() *metrics.Reporter { return r.reporter }

// MetricsHandler serves the Prometheus exposition of the router's collectors.
func (r *Router) MetricsHandler() http.Handler { return r.reporter.Handler() }

// Close stops metrics reporting and closes an owned SQL connection.
func (r *Router) Close() error {
	r.reporter.Stop()
	return r.closeDB()
}

func (r *Router) closeDB() error {
	if r.db == nil || !r.ownsDB {
		return nil
	}
	db := r.db
	r.db = nil
	if err := db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}
