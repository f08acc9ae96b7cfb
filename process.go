package tomsychapel

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/TomsyPaul/tomsychapel/backing"
	"github.com/TomsyPaul/tomsychapel/comm"
)

var (
	processMu    sync.Mutex
	processLayer *Layer

	// fatal terminates the process after a failed LayerInit.
	fatal = func(l *Logger, err error) {
		if !l.Enabled(context.Background(), slog.LevelError) {
			l = NewLogger(nil)
		}
		l.Error("shared heap layer cannot continue", "error", err)
		os.Exit(1)
	}
)

// LayerInit creates and initializes the process-wide Layer. It must be
// called once, at process start, before any application allocation. Any
// failure terminates the process.
func LayerInit(alloc backing.Allocator, c comm.Provider, opts ...Option) *Layer {
	processMu.Lock()
	defer processMu.Unlock()

	if processLayer != nil {
		fatal(processLayer.opts.logger, ErrAlreadyInitialized)
		return processLayer
	}

	l := New(alloc, c, opts...)
	processLayer = l
	if err := l.Init(); err != nil {
		fatal(l.opts.logger, err)
	}
	return l
}

// LayerExit tears down the process-wide Layer. It never fails observably.
func LayerExit() {
	processMu.Lock()
	defer processMu.Unlock()

	if processLayer != nil {
		processLayer.Exit()
	}
}
