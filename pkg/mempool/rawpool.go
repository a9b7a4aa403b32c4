package mempool

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// rawChunk is one contiguous block of fixed-size byte slots. Slot
// generations bump on every release, so a stale Ref can be recognized in
// checked mode.
type rawChunk struct {
	data     []byte
	free     []int32
	gens     []uint32 // odd while allocated, even while idle
	inUse    int32
	lastUsed time.Time
	next     *rawChunk
}

// RawPool is the untyped pool allocator: fixed-size byte slots identified
// by opaque Ref handles. It backs clients that deal in wire buffers or
// records without a Go type of their own; typed clients should prefer
// Pool[T]. Obtain raw pools from Registry.Create.
type RawPool struct {
	base
	zero   bool // zero slots on release
	chunks *rawChunk
}

// Ref is an opaque handle to one allocated slot. The zero Ref is invalid.
// A Ref must be released exactly once, to the pool that issued it; in
// checked mode violations are detected and fail fatally.
type Ref struct {
	pool *RawPool
	c    *rawChunk
	slot int32
	gen  uint32
}

// Bytes returns the slot's backing memory, sized exactly to the pool's
// object size. The memory is only valid until the Ref is released.
func (r Ref) Bytes() []byte {
	if r.pool == nil {
		return nil
	}
	size := r.pool.objSize
	start := int64(r.slot) * size
	return r.c.data[start : start+size : start+size]
}

// Valid reports whether the handle refers to a live allocation.
func (r Ref) Valid() bool {
	return r.pool != nil && r.gen%2 == 1
}

func newRawPool(label string, objSize int64, id int, chunkSize int, checked, zero bool, log *zap.Logger) *RawPool {
	p := &RawPool{zero: zero}
	p.label = label
	p.objSize = objSize
	p.id = id
	p.capacity = chunkCapacity(objSize, chunkSize)
	p.checked = checked
	p.log = log
	return p
}

// Alloc returns a handle to one slot of the pool's object size. It never
// returns an invalid Ref; heap exhaustion while growing escalates to the
// runtime's out-of-memory failure.
func (p *RawPool) Alloc() Ref {
	p.mu.Lock()
	defer p.mu.Unlock()

	ref, saved := p.acquireSlot()
	p.noteAlloc(saved)
	return ref
}

// AllocSized allocates one slot after asserting that the requested size
// matches the pool's declared object size. A mismatch means the caller
// bound the wrong pool to its type and is fatal: one allocator backs
// exactly one object size.
func (p *RawPool) AllocSized(size int64) Ref {
	if size != p.objSize {
		panic(fmt.Sprintf("mempool: pool %q: requested size %d does not match declared object size %d",
			p.label, size, p.objSize))
	}
	return p.Alloc()
}

// Free returns a previously allocated handle to the pool.
func (p *RawPool) Free(ref Ref) {
	if ref.pool != p {
		panic(fmt.Sprintf("mempool: pool %q: release of handle from a different pool", p.label))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.releaseSlot(ref)
	p.noteFree()
}

func (p *RawPool) acquireSlot() (Ref, bool) {
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
	c.gens[slot]++ // idle -> allocated, now odd

	return Ref{pool: p, c: c, slot: slot, gen: c.gens[slot]}, saved
}

func (p *RawPool) releaseSlot(ref Ref) {
	c, slot := ref.c, ref.slot
	if p.checked && c.gens[slot] != ref.gen {
		panic(fmt.Sprintf("mempool: pool %q: stale or double release of slot %d", p.label, slot))
	}

	if p.zero {
		b := ref.Bytes()
		for i := range b {
			b[i] = 0
		}
	}

	c.gens[slot]++ // allocated -> idle, now even
	c.free = append(c.free, slot)
	c.inUse--
	c.lastUsed = time.Now()
}

func (p *RawPool) grow() *rawChunk {
	c := &rawChunk{
		data:     make([]byte, int64(p.capacity)*p.objSize),
		free:     make([]int32, 0, p.capacity),
		gens:     make([]uint32, p.capacity),
		lastUsed: time.Now(),
	}
	for i := p.capacity - 1; i >= 0; i-- {
		c.free = append(c.free, int32(i))
	}

	c.next = p.chunks
	p.chunks = c
	p.noteGrow(int64(p.capacity))
	return c
}

// SetZeroOnRelease configures whether slots are zeroed when released.
func (p *RawPool) SetZeroOnRelease(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.zero = on
}

// Clean releases chunks that are fully idle and have not been referenced
// for at least maxAge, returning the number of bytes reclaimed.
func (p *RawPool) Clean(maxAge time.Duration) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	var reclaimed int64

	prev := &p.chunks
	for c := p.chunks; c != nil; c = c.next {
		if c.inUse == 0 && now.Sub(c.lastUsed) >= maxAge {
			*prev = c.next
			p.noteReclaim(int64(len(c.gens)))
			reclaimed += int64(len(c.data))
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
func (p *RawPool) GetStats(s *PoolStats, accumulate bool) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	inUse := p.statsLocked(s, accumulate)

	for c := p.chunks; c != nil; c = c.next {
		s.ChunksAllocated++
		switch {
		case c.inUse == 0:
			s.ChunksFree++
		case int(c.inUse) == len(c.gens):
			s.ChunksFull++
		default:
			s.ChunksPartial++
		}
		// gens always present on raw chunks
		s.Overhead += chunkOverhead(len(c.gens), false) + int64(len(c.gens))*4
	}
	return inUse
}
