package takeover

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/TomsyPaul/tomsychapel/backing"
	"github.com/TomsyPaul/tomsychapel/internal/conv"
)

// InstallHooks installs hooks on arenas [0, narenas) and returns the set of
// arenas now carrying them. Every arena must already be initialized.
func InstallHooks(a backing.ArenaController, hooks backing.ChunkHooks, narenas uint) (*roaring.Bitmap, error) {
	hooked := roaring.New()
	for arena := uint(0); arena < narenas; arena++ {
		idx, err := conv.UintToUint32(arena)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInstall, err)
		}
		if err := a.SetChunkHooks(arena, hooks); err != nil {
			return nil, fmt.Errorf("%w: could not update the chunk hooks of arena %d: %w", ErrInstall, arena, err)
		}
		hooked.Add(idx)
	}
	return hooked, nil
}

// VerifyHooks checks that every arena in [0, narenas) reports hooks as its
// installed chunk hooks. It returns the arenas that do not.
func VerifyHooks(a backing.ArenaController, hooks backing.ChunkHooks, narenas uint) (*roaring.Bitmap, error) {
	missing := roaring.New()
	for arena := uint(0); arena < narenas; arena++ {
		got, err := a.ChunkHooks(arena)
		if err != nil {
			return nil, fmt.Errorf("%w: read arena %d hooks: %w", ErrInstall, arena, err)
		}
		if got != hooks {
			idx, err := conv.UintToUint32(arena)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInstall, err)
			}
			missing.Add(idx)
		}
	}
	return missing, nil
}
