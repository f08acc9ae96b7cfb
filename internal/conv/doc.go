// Package conv provides checked integer conversion and address arithmetic.
//
// These functions perform bounds checking to prevent integer overflow/underflow
// when converting between signed/unsigned types and when computing addresses
// as base+offset. Every failure wraps ErrOverflow.
//
// Use cases:
//   - Converting sizes supplied by configuration or collaborators
//   - Aligning and bounding addresses inside a fixed memory region
//
// For conversions that are provably safe by domain constraints (e.g., loop
// indices, bounded counters), use direct type casts instead to avoid overhead.
package conv
