// Package comm describes the shared heap the communication layer wants.
//
// The layer asks a Provider once, at Init, for the base and size of the
// region it should allocate from. A zero base means no shared heap is
// wanted and the layer leaves the allocator untouched.
package comm
