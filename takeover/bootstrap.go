package takeover

import (
	"fmt"

	"github.com/TomsyPaul/tomsychapel/backing"
	"github.com/TomsyPaul/tomsychapel/internal/conv"
)

// ArenaCount returns the configured number of arenas as an arena index bound.
func ArenaCount(a backing.ArenaController) (uint, error) {
	n, err := a.NumArenas()
	if err != nil {
		return 0, fmt.Errorf("%w: arena count: %w", ErrIntrospection, err)
	}
	narenas, err := conv.IntToUint(n)
	if err != nil {
		return 0, fmt.Errorf("%w: arena count: %w", ErrIntrospection, err)
	}
	if narenas == 0 {
		return 0, fmt.Errorf("%w: allocator reports no arenas", ErrIntrospection)
	}
	return narenas, nil
}

// MaterializeArenas binds the calling thread to every arena but the default
// one, initializing each as a side effect, then binds it back to arena 0.
// It returns the arena count.
func MaterializeArenas(a backing.ArenaController) (uint, error) {
	narenas, err := ArenaCount(a)
	if err != nil {
		return 0, err
	}

	// Arena 0 initializes itself on first use.
	for arena := uint(1); arena < narenas; arena++ {
		if err := a.BindArena(arena); err != nil {
			return 0, fmt.Errorf("%w: could not change current thread's arena to %d: %w", ErrBootstrap, arena, err)
		}
	}

	if err := a.BindArena(0); err != nil {
		return 0, fmt.Errorf("%w: could not change current thread's arena back to 0: %w", ErrBootstrap, err)
	}
	return narenas, nil
}
