package tomsychapel

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/TomsyPaul/tomsychapel/backing"
	"github.com/TomsyPaul/tomsychapel/chunk"
	"github.com/TomsyPaul/tomsychapel/comm"
	"github.com/TomsyPaul/tomsychapel/heap"
	"github.com/TomsyPaul/tomsychapel/takeover"
)

// Mode is the configuration a Layer settled on at Init.
type Mode int

const (
	// ModeUnconfigured means no shared heap: the allocator keeps its own chunks.
	ModeUnconfigured Mode = iota
	// ModeSharedHeap means every arena draws chunks from the shared heap.
	ModeSharedHeap
)

func (m Mode) String() string {
	switch m {
	case ModeUnconfigured:
		return "unconfigured"
	case ModeSharedHeap:
		return "shared-heap"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Layer drives the takeover of a backing allocator.
type Layer struct {
	alloc backing.Allocator
	comm  comm.Provider
	opts  options

	mu          sync.Mutex
	initialized bool
	exited      bool
	mode        Mode
	heap        *heap.SharedHeap
	provider    *chunk.Provider
	narenas     uint
	hooked      *roaring.Bitmap
	report      takeover.Report
}

// New creates a layer for alloc. Nothing happens until Init.
//
// alloc must be the handle of the calling thread: Init binds it to every
// arena in turn and drains size classes through it.
func New(alloc backing.Allocator, c comm.Provider, opts ...Option) *Layer {
	if c == nil {
		c = comm.NoHeap{}
	}
	return &Layer{
		alloc:  alloc,
		comm:   c,
		opts:   applyOptions(opts),
		hooked: roaring.New(),
	}
}

// Init queries the communication layer and configures the allocator.
// Any error leaves the allocator in an unknown state; callers should treat
// it as fatal. Init may only be called once.
func (l *Layer) Init() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.initialized {
		return ErrAlreadyInitialized
	}
	l.initialized = true

	start := time.Now()
	err := l.init()
	l.opts.metricsCollector.RecordInit(l.mode, time.Since(start), err)
	l.opts.logger.LogInit(l.mode, l.heap, l.narenas, err)
	return err
}

func (l *Layer) init() error {
	base, size, err := l.comm.DesiredSharedHeap()
	if err != nil {
		return configError(err)
	}
	if base == 0 {
		return l.warmUp()
	}
	if size == 0 {
		return configError(fmt.Errorf("shared heap at %#x has no size", base))
	}

	h, err := heap.New(base, size)
	if err != nil {
		return configError(err)
	}
	l.mode = ModeSharedHeap
	l.heap = h

	narenas, err := takeover.MaterializeArenas(l.alloc)
	if err != nil {
		return initError(phaseOf(err, PhaseBootstrap), err)
	}
	l.narenas = narenas

	if err := l.install(narenas); err != nil {
		return err
	}

	sizes, err := takeover.ClassSizes(l.alloc)
	if err != nil {
		return initError(PhaseIntrospection, err)
	}

	report, err := takeover.Purify(l.alloc, h.Contains, sizes, takeover.PurifyOptions{
		Order:       l.opts.drainOrder,
		MaxAttempts: l.opts.drainLimit,
	})
	l.report = report
	for _, c := range report.Classes {
		l.opts.metricsCollector.RecordDrain(c.Size, c.Sacrificed)
	}
	if err != nil {
		return initError(PhaseDrain, err)
	}
	l.opts.logger.WithMode(l.mode).LogDrain(report)
	return nil
}

// warmUp forces the allocator's own lazy initialization.
func (l *Layer) warmUp() error {
	p, err := l.alloc.Malloc(1)
	if err != nil {
		return &InitError{Phase: PhaseWarmUp, cause: fmt.Errorf("%w: warm-up allocation: %w", ErrBootstrap, err)}
	}
	if err := l.alloc.Free(p); err != nil {
		return &InitError{Phase: PhaseWarmUp, cause: fmt.Errorf("%w: warm-up free: %w", ErrBootstrap, err)}
	}
	return nil
}

func (l *Layer) install(narenas uint) error {
	l.provider = chunk.NewProvider(l.heap,
		chunk.WithLogger(l.opts.logger.WithMode(l.mode).Logger),
		chunk.WithMetrics(l.opts.metricsCollector),
		chunk.WithExhaustionLogInterval(l.opts.exhaustionLogInterval),
	)

	hooked, err := takeover.InstallHooks(l.alloc, l.provider, narenas)
	if err != nil {
		return initError(PhaseInstall, err)
	}
	l.hooked = hooked

	if !l.opts.verifyHooks {
		return nil
	}
	missing, err := takeover.VerifyHooks(l.alloc, l.provider, narenas)
	if err != nil {
		return initError(PhaseInstall, err)
	}
	if !missing.IsEmpty() {
		return initError(PhaseInstall, fmt.Errorf("%w: arenas %v report other hooks", takeover.ErrInstall, missing.ToArray()))
	}
	return nil
}

// phaseOf distinguishes introspection failures inside a bootstrap step.
func phaseOf(err error, fallback Phase) Phase {
	if errors.Is(err, takeover.ErrIntrospection) {
		return PhaseIntrospection
	}
	return fallback
}

// Exit tears the layer down. The shared heap refuses further chunk
// requests; the region itself belongs to the communication layer.
// Teardown errors are ignored and Exit is idempotent.
func (l *Layer) Exit() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.exited {
		return
	}
	l.exited = true

	if l.heap != nil {
		_ = l.heap.Close()
	}
	l.opts.logger.LogExit(l.mode, l.heap)
}

// Mode returns the mode chosen by Init.
func (l *Layer) Mode() Mode {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mode
}

// Heap returns the shared heap, or nil in unconfigured mode.
func (l *Layer) Heap() *heap.SharedHeap {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.heap
}

// Provider returns the installed chunk provider, or nil.
func (l *Layer) Provider() *chunk.Provider {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.provider
}

// Hooked returns the arenas carrying the provider.
func (l *Layer) Hooked() *roaring.Bitmap {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hooked.Clone()
}

// Report returns the purification report.
func (l *Layer) Report() takeover.Report {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.report
}
