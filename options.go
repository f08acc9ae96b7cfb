package tomsychapel

import (
	"log/slog"
	"time"

	"github.com/TomsyPaul/tomsychapel/chunk"
	"github.com/TomsyPaul/tomsychapel/takeover"
)

type options struct {
	metricsCollector      MetricsCollector
	logger                *Logger
	drainOrder            takeover.Order
	drainLimit            int
	verifyHooks           bool
	exhaustionLogInterval time.Duration
}

// Option configures a Layer.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for init, chunk
// acquisition and drain events. Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &tomsychapel.BasicMetricsCollector{}
//	l := tomsychapel.New(alloc, provider, tomsychapel.WithMetricsCollector(metrics))
//	_ = l.Init()
//	stats := metrics.GetStats()
//	fmt.Printf("chunks: %d, sacrificed: %d\n", stats.ChunkAcquires, stats.Sacrificed)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging. Pass nil to disable logging.
//
//	logger := tomsychapel.NewJSONLogger(slog.LevelInfo)
//	l := tomsychapel.New(alloc, provider, tomsychapel.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithDrainOrder sets the order in which size classes are drained.
// The default is takeover.Descending.
func WithDrainOrder(order takeover.Order) Option {
	return func(o *options) {
		o.drainOrder = order
	}
}

// WithDrainLimit bounds the allocations made while draining one size
// class. 0, the default, means no bound.
func WithDrainLimit(n int) Option {
	return func(o *options) {
		o.drainLimit = max(n, 0)
	}
}

// WithHookVerification controls whether Init reads the hooks back from
// every arena after installing them. Enabled by default.
func WithHookVerification(enabled bool) Option {
	return func(o *options) {
		o.verifyHooks = enabled
	}
}

// WithExhaustionLogInterval sets the minimum interval between warnings
// about an exhausted shared heap. Zero or negative logs every failure.
func WithExhaustionLogInterval(d time.Duration) Option {
	return func(o *options) {
		o.exhaustionLogInterval = d
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector:      NoopMetricsCollector{},
		logger:                NoopLogger(),
		drainOrder:            takeover.Descending,
		verifyHooks:           true,
		exhaustionLogInterval: chunk.DefaultExhaustionLogInterval,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
