package mempool

// PoolStats is a point-in-time snapshot of one allocator's counters and
// meter values. It is a plain value with no link back to the live pool;
// reporting code may hold it for as long as it likes.
//
// With GetStats' accumulate mode the numeric fields add up across pools,
// which is how registry-wide aggregates are built without intermediate
// allocation. Label, ObjectSize and the chunk-shape fields are only
// meaningful for single-pool snapshots.
type PoolStats struct {
	Label      string
	ObjectSize int64

	// Chunk shape
	ChunkCapacity int
	ChunkSize     int64

	// Chunk population
	ChunksAllocated int
	ChunksFull      int
	ChunksPartial   int
	ChunksFree      int

	// Item gauges
	ItemsAllocated int64
	ItemsInUse     int64
	ItemsIdle      int64

	// Cumulative call history
	AllocCalls int64
	SavedCalls int64
	FreeCalls  int64

	// Derived byte figures
	InUseBytes int64
	IdleBytes  int64

	// Overhead estimates the pool's own bookkeeping bytes: chunk headers,
	// freelists and handle-check state.
	Overhead int64
}

// GlobalStats aggregates usage across every pool in a registry.
type GlobalStats struct {
	// Pools holds the accumulated per-pool snapshot fields.
	Pools PoolStats

	// PoolCount is the number of pools the registry owns.
	PoolCount int
	// PoolsInUse is the number of pools with at least one object out.
	PoolsInUse int

	// IdleLimitBytes echoes the registry's configured idle ceiling.
	IdleLimitBytes int64

	// TotalAllocatedBytes is the backing memory currently held across all
	// pools, in-use and idle together.
	TotalAllocatedBytes int64
}
