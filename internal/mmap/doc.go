// Package mmap provides anonymous memory mappings for off-heap memory.
//
// # Overview
//
// Mappings obtained here live outside the Go garbage collector's control and
// have stable addresses for their whole lifetime. They back two things:
//
//   - the shared region handed out by the communication layer (comm.Segment)
//   - the system chunks the slab allocator uses before a shared heap takes over
//
// # Usage
//
//	m, err := mmap.MapAnon(64 << 20)
//	if err != nil { ... }
//	defer m.Close()
//
//	base := m.Addr()
//
//	// Give a sub-range back to the kernel without unmapping it
//	r, _ := m.Region(offset, length)
//	r.Advise(mmap.AccessDontNeed)
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with madvise(2) for access hints
//   - Windows: VirtualAlloc/VirtualFree (madvise is a no-op)
//
// # Thread Safety
//
// Mapping and Region are safe for concurrent use. Close is idempotent and
// protected by atomic operations. Callers must ensure nothing dereferences
// addresses inside the mapping after Close returns.
package mmap
