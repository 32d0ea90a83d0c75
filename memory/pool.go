package memory

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/agentrouter/core"
	"github.com/hupe1980/agentrouter/logging"
)

// DefaultTopK is the number of records returned when Retrieve is called with k <= 0.
const DefaultTopK = 5

// ErrDimensionMismatch is returned when an embedding does not have the
// dimensionality the pool was constructed with.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Record is an immutable stored interaction.
type Record struct {
	Seq       uint64         // Monotonic insertion sequence (higher = more recent)
	Embedding core.Embedding // Exactly Pool.Dim() components
	Payload   map[string]any // e.g. {"query": ..., "result": ...}
	CreatedAt time.Time
}

// ScoredRecord pairs a record with its similarity to a query.
type ScoredRecord struct {
	Record
	Score float64
}

// PoolOptions configures a Pool.
type PoolOptions struct {
	// Capacity bounds the number of stored records; the oldest record is
	// evicted once the bound is exceeded. Zero means unbounded.
	Capacity int
	// TopK is used when Retrieve is called with k <= 0.
	TopK int
	// Similarity scores query/record pairs. Defaults to Cosine.
	Similarity SimilarityFunc
	// MinScore drops candidates scoring below the threshold. Defaults to -Inf (disabled).
	MinScore float64
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// Pool is an in-process similarity index over stored interactions. It is
// safe for concurrent use.
type Pool struct {
	dim     int
	opts    PoolOptions
	logger  logging.Logger
	mu      sync.RWMutex
	records []Record // insertion order, oldest first
	nextSeq uint64
}

// NewPool creates a pool accepting embeddings of exactly dim components.
func NewPool(dim int, optFns ...func(o *PoolOptions)) (*Pool, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("memory pool: embedding dimension must be positive, got %d", dim)
	}
	opts := PoolOptions{
		TopK:       DefaultTopK,
		Similarity: Cosine,
		MinScore:   math.Inf(-1),
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Capacity < 0 {
		return nil, fmt.Errorf("memory pool: capacity must not be negative, got %d", opts.Capacity)
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Similarity == nil {
		opts.Similarity = Cosine
	}
	return &Pool{dim: dim, opts: opts, logger: logging.OrNoOp(opts.Logger)}, nil
}

// Dim returns the embedding dimensionality accepted by the pool.
func (p *Pool) Dim() int { return p.dim }

// Len returns the number of stored records.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.records)
}

func (p *Pool) checkDim(e core.Embedding) error {
	if len(e) != p.dim {
		return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, p.dim, len(e))
	}
	return nil
}

// Store appends a record. The embedding is copied so later caller mutations
// cannot corrupt the index. Fails with ErrDimensionMismatch without side effects.
func (p *Pool) Store(e core.Embedding, payload map[string]any) error {
	if err := p.checkDim(e); err != nil {
		return err
	}
	rec := Record{Embedding: e.Clone(), Payload: payload, CreatedAt: time.Now()}

	p.mu.Lock()
	p.nextSeq++
	rec.Seq = p.nextSeq
	p.records = append(p.records, rec)
	evicted := 0
	if p.opts.Capacity > 0 && len(p.records) > p.opts.Capacity {
		evicted = len(p.records) - p.opts.Capacity
		// Copy into a fresh backing array: snapshots taken earlier still
		// reference the old one and must stay untouched.
		kept := make([]Record, p.opts.Capacity, p.opts.Capacity+1)
		copy(kept, p.records[evicted:])
		p.records = kept
	}
	size := len(p.records)
	p.mu.Unlock()

	p.logger.Debug("memory.store", "seq", rec.Seq, "size", size, "evicted", evicted)
	return nil
}

// snapshot returns a consistent prefix of the stored records. Records are
// append-only within a backing array, so the returned slice is never
// written to again.
func (p *Pool) snapshot() []Record {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.records[:len(p.records):len(p.records)]
}

// RetrieveRecords returns up to k records most similar to e with their scores,
// most similar first. Ties are broken by recency. k <= 0 uses the configured TopK.
func (p *Pool) RetrieveRecords(e core.Embedding, k int) ([]ScoredRecord, error) {
	if err := p.checkDim(e); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = p.opts.TopK
	}

	snap := p.snapshot()
	if len(snap) == 0 {
		return []ScoredRecord{}, nil
	}

	scored := make([]ScoredRecord, 0, len(snap))
	for _, rec := range snap {
		s := p.opts.Similarity(e, rec.Embedding)
		if s < p.opts.MinScore {
			continue
		}
		scored = append(scored, ScoredRecord{Record: rec, Score: s})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Seq > scored[j].Seq
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Retrieve returns the payloads of the k records most similar to e, most
// similar first. An empty pool yields an empty slice and no error.
func (p *Pool) Retrieve(e core.Embedding, k int) ([]map[string]any, error) {
	scored, err := p.RetrieveRecords(e, k)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, len(scored))
	for i, s := range scored {
		out[i] = s.Payload
	}
	p.logger.Debug("memory.retrieve", "k", k, "hits", len(out))
	return out, nil
}

// Reset drops every stored record.
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = nil
}
