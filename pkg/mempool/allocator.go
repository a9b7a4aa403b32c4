package mempool

import (
	"time"

	"github.com/ajitpratap0/mempool/pkg/meter"
)

// Chunk sizing bounds. A chunk is the unit of bulk growth and reclamation:
// a contiguous backing array subdivided into fixed-size slots.
const (
	// minChunkItems is the smallest number of slots a chunk may carry.
	// Very large objects still get a few slots per chunk so pooling them
	// amortizes anything at all.
	minChunkItems = 8
	// maxChunkItems caps slots per chunk so freelist indexes fit in int32
	// comfortably and single chunks stay reclaimable.
	maxChunkItems = 65535
)

// Allocator is the capability every pool implementation provides. One
// allocator backs exactly one (label, object size) pair; allocators are
// created through a Registry, live for the life of the process, and are
// never destroyed individually.
//
// Alloc and Free live on the concrete types (Pool[T] and RawPool) because
// their handle types differ; everything size- and statistics-shaped is
// uniform and lives here so the Registry can own pools of mixed types.
type Allocator interface {
	// Label returns the pool's display name.
	Label() string

	// ObjectSize returns the fixed slot size in bytes. Invariant for the
	// allocator's lifetime.
	ObjectSize() int64

	// PoolID returns the registry-assigned numeric identity, used for
	// diagnostic correlation.
	PoolID() int

	// ChunkCapacity returns the number of slots carried by each chunk.
	ChunkCapacity() int

	// InUseCount returns the number of objects currently allocated and
	// not yet released.
	InUseCount() int64

	// IdleCount returns the number of slots retained for reuse.
	IdleCount() int64

	// Meter returns a copy of the pool's usage meter.
	Meter() meter.Meter

	// FlushMeters folds pending call counts into the meter's cumulative
	// history.
	FlushMeters()

	// IdleTrigger reports whether idle storage exceeds the chunk capacity
	// scaled up by shift. The reclamation sweep uses it to decide urgency.
	IdleTrigger(shift uint) bool

	// Clean releases backing chunks that are fully idle and have not been
	// referenced for at least maxAge, returning the number of bytes
	// reclaimed. In-use objects are never touched.
	Clean(maxAge time.Duration) int64

	// GetStats fills s with a point-in-time snapshot of the pool and
	// returns the in-use count. With accumulate set it adds into s
	// instead of overwriting, so callers can roll up many pools without
	// intermediate allocation.
	GetStats(s *PoolStats, accumulate bool) int64
}

// chunkCapacity computes slots per chunk for the given object size against
// a target chunk byte size.
func chunkCapacity(objSize int64, chunkSize int) int {
	n := int64(chunkSize) / objSize
	if n < minChunkItems {
		n = minChunkItems
	}
	if n > maxChunkItems {
		n = maxChunkItems
	}
	return int(n)
}
