// Package takeover contains the steps that hand a backing allocator's chunk
// supply over to a shared heap:
//
//  1. ClassSizes reads every small and large size class.
//  2. MaterializeArenas forces every arena into existence, because hooks can
//     only be installed on an initialized arena and arenas are created lazily.
//  3. InstallHooks installs the same chunk provider on every arena.
//  4. Purify drains every size class until the allocator serves it from the
//     shared heap, sacrificing whatever it obtained from the system before.
//
// All steps run once, on the startup thread, before any application thread
// can allocate. Every error returned here leaves the allocator in a state the
// caller cannot repair; the lifecycle controller treats them as fatal.
package takeover
