package mempool

import (
	"fmt"
	"time"
	"unsafe"

	"go.uber.org/zap"
)

// chunk is one contiguous block of backing storage for a typed pool,
// subdivided into capacity slots. Chunks are the unit of growth and of
// reclamation: a chunk is only ever returned to the heap when every slot
// in it is idle.
type chunk[T any] struct {
	items    []T
	free     []int32 // stack of idle slot indexes
	used     []uint64 // per-slot allocation bitmap, checked mode only
	inUse    int32
	lastUsed time.Time
	next     *chunk[T]
}

// Pool is a typed pool allocator: a growing space for objects of one type.
// Alloc hands out zeroed *T values backed by pooled chunk storage; Free
// returns them for reuse. Obtain pools from a Registry (via CreateTyped or
// a Proxy) so they participate in statistics and the reclamation sweep.
//
// Releasing a pointer that did not come from this pool, or releasing it
// twice, is a caller-contract violation. In checked mode both are detected
// and fail fatally; in production mode a foreign pointer still panics (it
// cannot be mapped to a slot) but a double release is not detected.
type Pool[T any] struct {
	base
	elemSize uintptr
	chunks   *chunk[T]
}

func newPool[T any](label string, id int, chunkSize int, checked bool, log *zap.Logger) *Pool[T] {
	var zero T
	elemSize := unsafe.Sizeof(zero)
	if elemSize == 0 {
		panic(fmt.Sprintf("mempool: pool %q: zero-size object type", label))
	}

	p := &Pool[T]{elemSize: elemSize}
	p.label = label
	p.objSize = int64(elemSize)
	p.id = id
	p.capacity = chunkCapacity(p.objSize, chunkSize)
	p.checked = checked
	p.log = log
	return p
}

// Alloc returns one zeroed object from the pool. It never returns nil:
// when no idle slot exists a new chunk is carved from the general heap,
// and heap exhaustion escalates to the runtime's out-of-memory failure.
func (p *Pool[T]) Alloc() *T {
	p.mu.Lock()
	defer p.mu.Unlock()

	ptr, saved := p.acquireSlot()
	p.noteAlloc(saved)
	return ptr
}

// Free returns an object previously obtained from Alloc. The slot is
// zeroed so released objects cannot pin their referents against the
// garbage collector.
func (p *Pool[T]) Free(ptr *T) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.releaseSlot(ptr)
	p.noteFree()
}

// acquireSlot pops an idle slot, growing by one chunk when every slot is
// taken. The second result reports whether the allocation was served from
// already-resident idle memory.
func (p *Pool[T]) acquireSlot() (*T, bool) {
	c := p.chunks
	for c != nil && len(c.free) == 0 {
		c = c.next
	}

	saved := true
	if c == nil {
		c = p.grow()
		saved = false
	}

	slot := c.free[len(c.free)-1]
	c.free = c.free[:len(c.free)-1]
	c.inUse++
	c.lastUsed = time.Now()

	if p.checked {
		c.used[slot/64] |= 1 << (uint(slot) % 64)
	}
	return &c.items[slot], saved
}

// releaseSlot pushes ptr's slot back onto its chunk's freelist.
func (p *Pool[T]) releaseSlot(ptr *T) {
	c, slot := p.find(ptr)
	if c == nil {
		panic(fmt.Sprintf("mempool: pool %q: release of pointer not allocated from this pool", p.label))
	}

	if p.checked {
		bit := uint64(1) << (uint(slot) % 64)
		if c.used[slot/64]&bit == 0 {
			panic(fmt.Sprintf("mempool: pool %q: double release of slot %d", p.label, slot))
		}
		c.used[slot/64] &^= bit
	}

	var zero T
	c.items[slot] = zero
	c.free = append(c.free, slot)
	c.inUse--
	c.lastUsed = time.Now()
}

// find maps ptr to its owning chunk and slot index by address range.
func (p *Pool[T]) find(ptr *T) (*chunk[T], int32) {
	addr := uintptr(unsafe.Pointer(ptr))
	for c := p.chunks; c != nil; c = c.next {
		start := uintptr(unsafe.Pointer(&c.items[0]))
		span := uintptr(len(c.items)) * p.elemSize
		if addr < start || addr >= start+span {
			continue
		}
		off := addr - start
		if off%p.elemSize != 0 {
			return nil, 0 // interior pointer
		}
		return c, int32(off / p.elemSize)
	}
	return nil, 0
}

func (p *Pool[T]) grow() *chunk[T] {
	c := &chunk[T]{
		items:    make([]T, p.capacity),
		free:     make([]int32, 0, p.capacity),
		lastUsed: time.Now(),
	}
	// Low slots pop first so sequential allocations stay contiguous.
	for i := p.capacity - 1; i >= 0; i-- {
		c.free = append(c.free, int32(i))
	}
	if p.checked {
		c.used = make([]uint64, (p.capacity+63)/64)
	}

	c.next = p.chunks
	p.chunks = c
	p.noteGrow(int64(p.capacity))
	return c
}

// Clean releases chunks that are fully idle and have not been referenced
// for at least maxAge, returning the number of bytes reclaimed. In-use
// objects are never moved or freed.
func (p *Pool[T]) Clean(maxAge time.Duration) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	var reclaimed int64

	prev := &p.chunks
	for c := p.chunks; c != nil; c = c.next {
		if c.inUse == 0 && now.Sub(c.lastUsed) >= maxAge {
			*prev = c.next
			p.noteReclaim(int64(len(c.items)))
			reclaimed += int64(len(c.items)) * p.objSize
			continue
		}
		prev = &c.next
	}

	if reclaimed > 0 && p.log != nil {
		p.log.Debug("pool cleaned",
			zap.String("pool", p.label),
			zap.Int64("reclaimed_bytes", reclaimed))
	}
	return reclaimed
}

// GetStats fills s with a snapshot of the pool and returns the in-use
// count. With accumulate set the numeric fields add into s.
func (p *Pool[T]) GetStats(s *PoolStats, accumulate bool) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	inUse := p.statsLocked(s, accumulate)

	for c := p.chunks; c != nil; c = c.next {
		s.ChunksAllocated++
		switch {
		case c.inUse == 0:
			s.ChunksFree++
		case int(c.inUse) == len(c.items):
			s.ChunksFull++
		default:
			s.ChunksPartial++
		}
		s.Overhead += chunkOverhead(len(c.items), p.checked)
	}
	return inUse
}

// chunkOverhead estimates one chunk's bookkeeping bytes: the freelist, the
// header, and the checked-mode bitmap.
func chunkOverhead(capacity int, checked bool) int64 {
	overhead := int64(capacity)*4 + 64
	if checked {
		overhead += int64((capacity+63)/64) * 8
	}
	return overhead
}
