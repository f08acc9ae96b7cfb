package chunk

import (
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"

	"github.com/TomsyPaul/tomsychapel/backing"
	"github.com/TomsyPaul/tomsychapel/heap"
)

// DefaultExhaustionLogInterval is the minimum time between two warnings about
// an exhausted heap.
const DefaultExhaustionLogInterval = 10 * time.Second

// Metrics receives one callback per chunk acquisition.
type Metrics interface {
	RecordChunkAcquire(size uintptr, err error)
}

// Provider serves chunks from a single shared heap. One Provider is installed
// on every arena; all of them share the same heap.
type Provider struct {
	heap    *heap.SharedHeap
	logger  *slog.Logger
	metrics Metrics
	limiter *rate.Limiter
}

var _ backing.ChunkHooks = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the logger used for exhaustion warnings.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = l
	}
}

// WithMetrics sets the metrics sink for chunk acquisitions.
func WithMetrics(m Metrics) Option {
	return func(p *Provider) {
		p.metrics = m
	}
}

// WithExhaustionLogInterval sets the minimum interval between exhaustion
// warnings. Zero or negative logs every failure.
func WithExhaustionLogInterval(d time.Duration) Option {
	return func(p *Provider) {
		if d <= 0 {
			p.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		p.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// NewProvider creates a provider backed by h.
func NewProvider(h *heap.SharedHeap, opts ...Option) *Provider {
	p := &Provider{
		heap:    h,
		logger:  slog.Default(),
		limiter: rate.NewLimiter(rate.Every(DefaultExhaustionLogInterval), 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Heap returns the heap the provider draws from.
func (p *Provider) Heap() *heap.SharedHeap {
	return p.heap
}

// Alloc implements backing.ChunkHooks.
func (p *Provider) Alloc(req backing.ChunkRequest) (backing.ChunkResponse, error) {
	addr, err := p.heap.Allocate(req.Addr, req.Size, req.Alignment, req.Zero)
	if p.metrics != nil {
		p.metrics.RecordChunkAcquire(req.Size, err)
	}
	if err != nil {
		if p.limiter.Allow() {
			p.logger.Warn("shared heap chunk request failed",
				"arena", req.Arena,
				"size", humanize.IBytes(uint64(req.Size)),
				"alignment", req.Alignment,
				"remaining", humanize.IBytes(uint64(p.heap.Remaining())),
				"error", err,
			)
		}
		return backing.ChunkResponse{}, err
	}
	return backing.ChunkResponse{
		Addr:      addr,
		Zeroed:    req.Zero,
		Committed: true,
	}, nil
}

// Dalloc implements backing.ChunkHooks. Shared-heap chunks are never given back.
func (p *Provider) Dalloc(chunk, size uintptr, committed bool, arena uint) bool {
	return true
}

// Commit implements backing.ChunkHooks.
func (p *Provider) Commit(chunk, size, offset, length uintptr, arena uint) bool {
	return true
}

// Decommit implements backing.ChunkHooks.
func (p *Provider) Decommit(chunk, size, offset, length uintptr, arena uint) bool {
	return true
}

// Purge implements backing.ChunkHooks.
func (p *Provider) Purge(chunk, size, offset, length uintptr, arena uint) bool {
	return true
}

// Split implements backing.ChunkHooks.
func (p *Provider) Split(chunk, size, sizeA, sizeB uintptr, committed bool, arena uint) bool {
	return true
}

// Merge implements backing.ChunkHooks.
func (p *Provider) Merge(chunkA, sizeA, chunkB, sizeB uintptr, committed bool, arena uint) bool {
	return true
}
