// Package resource accounts for memory the slab allocator maps from the
// operating system.
//
// A Controller tracks usage with an atomic counter and, when a limit is
// configured, enforces it with a weighted semaphore. Acquisition never
// blocks: a reservation that would exceed the limit fails immediately
// with ErrMemoryLimitExceeded and the caller decides what to do.
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 1 << 30,
//	})
//
//	if err := rc.AcquireMemory(2 << 20); err != nil {
//	    // ErrMemoryLimitExceeded
//	}
//	defer rc.ReleaseMemory(2 << 20)
//
// All methods are safe for concurrent use and treat a nil Controller as
// an unlimited no-op.
package resource
