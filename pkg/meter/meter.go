// Package meter provides the usage accounting primitives for the mempool
// framework. A Meter tracks one pool's memory consumption across three
// states (allocated, in-use, idle) together with cumulative allocation
// history, so that long-running processes can report both instantaneous
// levels and lifetime totals per pool.
//
// Meters perform no locking. The owning allocator serializes access; in a
// multi-threaded deployment every mutation happens under the pool's lock.
package meter

// Gauge tracks the current level of one resource dimension along with its
// high-water mark. Levels are expressed in objects; byte values are derived
// by the owner from its fixed object size.
type Gauge struct {
	level int64
	peak  int64
}

// Add adjusts the gauge by delta, which may be negative.
func (g *Gauge) Add(delta int64) {
	g.level += delta
	if g.level > g.peak {
		g.peak = g.level
	}
}

// Level returns the current level.
func (g *Gauge) Level() int64 { return g.level }

// Peak returns the highest level the gauge has reached.
func (g *Gauge) Peak() int64 { return g.peak }

// Volume is a cumulative (count, bytes) pair. Volumes only ever grow.
type Volume struct {
	Count int64
	Bytes int64
}

// Add folds count objects totalling bytes into the volume.
func (v *Volume) Add(count, bytes int64) {
	v.Count += count
	v.Bytes += bytes
}

// Meter tracks usage for a single pool.
//
// Invariant: Alloc.Level() == InUse.Level() + Idle.Level() at every settle
// point. Every slot with backing storage is either handed out or cached.
type Meter struct {
	// Alloc counts objects that have backing storage, in-use or not.
	Alloc Gauge
	// InUse counts objects currently handed out and not yet released.
	InUse Gauge
	// Idle counts objects retained in the pool for fast reuse.
	Idle Gauge

	// TotalAllocated accumulates every allocation request ever served.
	TotalAllocated Volume
	// TotalSaved accumulates allocations served from idle memory rather
	// than new backing growth.
	TotalSaved Volume
	// TotalFreed accumulates every release.
	TotalFreed Volume
}

// RecordAlloc adjusts the allocated gauge by delta objects. Called when
// backing storage grows or shrinks.
func (m *Meter) RecordAlloc(delta int64) { m.Alloc.Add(delta) }

// RecordInUse adjusts the in-use gauge by delta objects.
func (m *Meter) RecordInUse(delta int64) { m.InUse.Add(delta) }

// RecordIdle adjusts the idle gauge by delta objects.
func (m *Meter) RecordIdle(delta int64) { m.Idle.Add(delta) }

// Flush folds pending call counts into the cumulative history. The owner
// passes the alloc, saved and free call counts observed since the previous
// flush plus its fixed object size; byte totals are derived here. Call
// before reporting deltas so the cumulative volumes are current.
func (m *Meter) Flush(allocs, saved, freed, objSize int64) {
	if allocs != 0 {
		m.TotalAllocated.Add(allocs, allocs*objSize)
	}
	if saved != 0 {
		m.TotalSaved.Add(saved, saved*objSize)
	}
	if freed != 0 {
		m.TotalFreed.Add(freed, freed*objSize)
	}
}

// Consistent reports whether the allocated level equals in-use plus idle.
func (m *Meter) Consistent() bool {
	return m.Alloc.Level() == m.InUse.Level()+m.Idle.Level()
}
