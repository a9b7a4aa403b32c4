// Package mempool provides a pooled, typed memory allocator framework for
// long-running Go services that churn through large numbers of small,
// fixed-size objects.
//
// Objects of one size are carved out of larger backing chunks, recycled
// through per-chunk free lists, and returned to the general heap only when
// an entire chunk has sat idle past a configurable age. Every pool meters
// its own usage, so a process can always answer "which types own my
// memory" without external profiling.
//
// # Architecture
//
// The framework is built from small collaborating packages:
//
//	pkg/mempool  - Pools, the registry, proxies, and reclamation
//	pkg/meter    - Usage accounting (levels, peaks, cumulative volumes)
//	pkg/sweep    - Periodic maintenance driving reclamation
//	pkg/metrics  - Prometheus collector over a registry
//	pkg/report   - Point-in-time usage reports (text and JSON)
//	pkg/config   - Unified configuration with validation
//	pkg/logger   - Structured logging
//	pkg/errors   - Structured error handling
//
// # Quick Start
//
// A type opts into pooling with one package-level proxy:
//
//	type session struct {
//	    id     uint64
//	    expiry int64
//	}
//
//	var sessionPool = mempool.NewProxy[session]("session")
//
//	func newSession(id uint64) *session {
//	    s := sessionPool.Alloc()
//	    s.id = id
//	    return s
//	}
//
//	func (s *session) release() {
//	    sessionPool.Free(s)
//	}
//
// The pool itself is created lazily inside the default registry on first
// allocation, so package initialization order never matters.
//
// Callers that deal in raw byte records use the registry directly:
//
//	reg := mempool.NewRegistry()
//	pool := reg.Create("wire-frame", 256)
//	ref := pool.Alloc()
//	copy(ref.Bytes(), payload)
//	pool.Free(ref)
//
// # Maintenance
//
// Idle memory does not drain on its own. A process runs a sweeper to fold
// statistics and return aged idle chunks to the heap:
//
//	sw := sweep.New(reg, cfg.Sweep, logger.Get())
//	go sw.Run(ctx)
//
// The registry's idle limit biases the sweep: when aggregate idle memory
// exceeds the limit, the pass reclaims every fully idle chunk regardless
// of age. A negative limit disables the ceiling.
//
// # Failure Model
//
// Allocation never fails; it falls through to the heap allocator growing a
// new chunk. Handle misuse is a programming error: freeing a pointer or
// Ref a pool does not own panics, and with checked handles enabled double
// frees and stale handles panic as well.
//
// # Observability
//
// Register the Prometheus collector to export per-pool gauges and
// cumulative counters:
//
//	prometheus.MustRegister(metrics.NewCollector(reg))
//
// For one-shot inspection, pkg/report renders the same statistics as a
// sorted table or a JSON document.
package mempool
