// Package mempool implements a pooled, typed memory allocator layered over
// the general heap. Long-running processes that churn through very large
// numbers of same-sized objects use it to reduce fragmentation, amortize
// allocation cost, and get per-type usage statistics for free.
//
// # Architecture
//
// Storage is carved in chunks: contiguous backing arrays subdivided into
// fixed-size slots with a freelist per chunk. Chunks are the unit of
// growth and of reclamation; released objects go idle in their chunk for
// fast reuse, and the periodic sweep returns fully idle chunks to the
// heap.
//
// Core types:
//
//   - Pool[T]: a typed pool, one per (label, object size) pair
//   - RawPool: the untyped form, handing out opaque Ref handles
//   - Proxy[T]: a late-binding handle that defers pool creation to first
//     use, so types can declare pooling at their own definition time
//   - Registry: owns every pool, the idle-byte ceiling, iteration, and
//     the Clean/FlushMeters maintenance entry points
//
// # Type integration
//
// A leaf type opts into pooling with one package-level proxy:
//
//	type session struct {
//		id     uint64
//		expiry int64
//	}
//
//	var sessionPool = mempool.NewProxy[session]("session")
//
//	func newSession() *session   { return sessionPool.Alloc() }
//	func (s *session) release()  { sessionPool.Free(s) }
//
// The pool is created lazily inside the Default registry (or an explicit
// one via NewProxyIn) and sized exactly to the type.
//
// # Maintenance
//
// The registry never schedules its own upkeep. Call Clean and FlushMeters
// on a recurring cadence of tens of seconds to a few minutes — the sweep
// package provides a ticker-driven runner. Between sweeps released
// objects stay resident as idle memory; the idle-byte limit set on the
// registry biases how aggressively the next sweep reclaims.
//
// # Failure model
//
// Allocate and release return no errors. Backing-store exhaustion
// escalates to the runtime's out-of-memory failure, and size-contract
// violations panic: neither is recoverable in-process. Double releases
// and releases of foreign handles are caller-contract violations that the
// production configuration does not detect; enable checked handles (see
// WithCheckedHandles) to turn them into fatal panics during tests and
// debugging.
package mempool
