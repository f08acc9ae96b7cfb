package slab

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"

	"github.com/TomsyPaul/tomsychapel/internal/conv"
	"github.com/TomsyPaul/tomsychapel/internal/mmap"
)

const (
	// DefaultChunkSize is the chunk size and alignment.
	DefaultChunkSize = 2 << 20

	// EnvNArenas overrides the default arena count.
	EnvNArenas = "TOMSY_NARENAS"

	// minChunkPages keeps room for the header page plus the largest large class.
	minChunkPages = 16
)

// Config configures an Allocator.
type Config struct {
	// ChunkSize is the chunk size and alignment. Must be a power of two.
	// Defaults to DefaultChunkSize.
	ChunkSize uintptr

	// PageSize is the page granularity of runs. Must be a power of two.
	// Defaults to the system page size.
	PageSize uintptr

	// NArenas is the number of arenas. Defaults to 4×GOMAXPROCS, or to the
	// value of TOMSY_NARENAS when set.
	NArenas int

	// SystemLimit caps the bytes SystemHooks may map. 0 means unlimited.
	SystemLimit int64

	// Logger receives arena lifecycle events. Defaults to a discarding logger.
	Logger *slog.Logger
}

func (c Config) withDefaults() (Config, error) {
	if c.ChunkSize == 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.PageSize == 0 {
		c.PageSize = uintptr(mmap.PageSize())
	}
	if c.NArenas == 0 {
		n, err := arenasFromEnv()
		if err != nil {
			return c, err
		}
		c.NArenas = n
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}

	switch {
	case !conv.IsPowerOfTwo(c.PageSize):
		return c, fmt.Errorf("%w: page size %d is not a power of two", ErrInvalidConfig, c.PageSize)
	case !conv.IsPowerOfTwo(c.ChunkSize):
		return c, fmt.Errorf("%w: chunk size %d is not a power of two", ErrInvalidConfig, c.ChunkSize)
	case c.ChunkSize/c.PageSize < minChunkPages:
		return c, fmt.Errorf("%w: chunk size %d holds fewer than %d pages", ErrInvalidConfig, c.ChunkSize, minChunkPages)
	case c.NArenas < 0:
		return c, fmt.Errorf("%w: negative arena count %d", ErrInvalidConfig, c.NArenas)
	case c.SystemLimit < 0:
		return c, fmt.Errorf("%w: negative system limit", ErrInvalidConfig)
	}
	return c, nil
}

func arenasFromEnv() (int, error) {
	v, ok := os.LookupEnv(EnvNArenas)
	if !ok || v == "" {
		return 4 * runtime.GOMAXPROCS(0), nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidConfig, EnvNArenas, v)
	}
	return n, nil
}
