package mempool

import (
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/mempool/pkg/meter"
)

// base carries the bookkeeping every pool implementation shares: call
// counters, the usage meter, identity, and the per-pool lock. Concrete
// pools (Pool[T], RawPool) embed it and implement the slot-carving side;
// the split keeps statistics and registry machinery reusable across
// backends.
//
// All mutation happens under mu. The maintenance sweep takes mu one pool
// at a time, so cleaning one pool never stalls traffic on another.
type base struct {
	label    string
	objSize  int64
	id       int
	capacity int // slots per chunk

	checked bool
	log     *zap.Logger

	mu sync.Mutex
	m  meter.Meter

	// Call counters since the last meter flush. savedCalls counts
	// allocations served from already-resident idle memory instead of
	// new backing growth.
	allocCalls int64
	freeCalls  int64
	savedCalls int64
}

// Label returns the pool's display name.
func (b *base) Label() string { return b.label }

// ObjectSize returns the fixed slot size in bytes.
func (b *base) ObjectSize() int64 { return b.objSize }

// PoolID returns the registry-assigned numeric identity.
func (b *base) PoolID() int { return b.id }

// ChunkCapacity returns the number of slots carried by each chunk.
func (b *base) ChunkCapacity() int { return b.capacity }

// InUseCount returns the number of objects currently allocated and not yet
// released.
func (b *base) InUseCount() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.m.InUse.Level()
}

// IdleCount returns the number of slots retained for reuse.
func (b *base) IdleCount() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.m.Idle.Level()
}

// Meter returns a copy of the pool's usage meter.
func (b *base) Meter() meter.Meter {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.m
}

// FlushMeters folds pending call counts into the meter's cumulative
// history.
func (b *base) FlushMeters() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushMetersLocked()
}

// IdleTrigger reports whether idle storage exceeds the chunk capacity
// scaled up by shift.
func (b *base) IdleTrigger(shift uint) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.m.Idle.Level() > int64(b.capacity)<<shift
}

func (b *base) flushMetersLocked() {
	b.m.Flush(b.allocCalls, b.savedCalls, b.freeCalls, b.objSize)
	b.allocCalls = 0
	b.savedCalls = 0
	b.freeCalls = 0
}

// noteGrow records capacity new slots of backing storage. Fresh slots
// start idle.
func (b *base) noteGrow(capacity int64) {
	b.m.RecordAlloc(capacity)
	b.m.RecordIdle(capacity)
}

// noteReclaim records the release of capacity idle slots back to the
// general heap.
func (b *base) noteReclaim(capacity int64) {
	b.m.RecordAlloc(-capacity)
	b.m.RecordIdle(-capacity)
}

// noteAlloc records one allocation. saved marks a reuse of idle memory
// rather than an allocation that forced backing growth.
func (b *base) noteAlloc(saved bool) {
	b.allocCalls++
	if saved {
		b.savedCalls++
	}
	b.m.RecordInUse(1)
	b.m.RecordIdle(-1)
}

// noteFree records one release back into idle storage.
func (b *base) noteFree() {
	b.freeCalls++
	b.m.RecordInUse(-1)
	b.m.RecordIdle(1)
}

// statsLocked fills or accumulates the bookkeeping side of a snapshot.
// Chunk-shape fields are the concrete pool's job.
func (b *base) statsLocked(s *PoolStats, accumulate bool) int64 {
	b.flushMetersLocked()

	if !accumulate {
		*s = PoolStats{
			Label:      b.label,
			ObjectSize: b.objSize,
		}
		s.ChunkCapacity = b.capacity
		s.ChunkSize = int64(b.capacity) * b.objSize
	}

	s.ItemsAllocated += b.m.Alloc.Level()
	s.ItemsInUse += b.m.InUse.Level()
	s.ItemsIdle += b.m.Idle.Level()

	s.AllocCalls += b.m.TotalAllocated.Count
	s.SavedCalls += b.m.TotalSaved.Count
	s.FreeCalls += b.m.TotalFreed.Count

	s.InUseBytes += b.m.InUse.Level() * b.objSize
	s.IdleBytes += b.m.Idle.Level() * b.objSize

	return b.m.InUse.Level()
}
