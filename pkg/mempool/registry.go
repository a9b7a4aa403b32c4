package mempool

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/mempool/pkg/config"
	"github.com/ajitpratap0/mempool/pkg/logger"
)

// entry is one link in the registry's pool list. The list is insertion
// ordered and append-only: pools live for the life of the registry.
type entry struct {
	alloc Allocator
	next  *entry
}

// Registry owns every pool allocator created through it: the pool list,
// the idle-byte ceiling, and the periodic maintenance sweep entry points.
// Construct one registry per process (or per test) and thread it through
// the components that need it; Default returns a lazily-built process-wide
// instance for types that declare pooling before any wiring runs.
//
// Create is idempotent per (label, object size) pair, so two independent
// declarations of the same pool resolve to the same allocator.
type Registry struct {
	mu    sync.Mutex
	head  *entry
	tail  *entry
	byKey map[poolKey]Allocator
	count int
	nextID int

	idleLimit atomic.Int64

	chunkSize int
	checked   bool
	zero      bool
	log       *zap.Logger
}

type poolKey struct {
	label string
	size  int64
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for pool lifecycle and sweep events.
func WithLogger(log *zap.Logger) Option {
	return func(r *Registry) { r.log = log }
}

// WithChunkSize sets the target chunk byte size for pools created by this
// registry.
func WithChunkSize(size int) Option {
	return func(r *Registry) { r.chunkSize = size }
}

// WithCheckedHandles enables fatal detection of double and foreign
// releases. Intended for tests and debug deployments.
func WithCheckedHandles(on bool) Option {
	return func(r *Registry) { r.checked = on }
}

// WithZeroOnRelease makes raw pools zero slots when they are released.
func WithZeroOnRelease(on bool) Option {
	return func(r *Registry) { r.zero = on }
}

// WithIdleLimit sets the soft ceiling on aggregate idle bytes.
func WithIdleLimit(bytes int64) Option {
	return func(r *Registry) { r.idleLimit.Store(bytes) }
}

// WithConfig applies a config.Config to the registry.
func WithConfig(cfg *config.Config) Option {
	return func(r *Registry) {
		r.chunkSize = cfg.Chunk.Size
		r.checked = cfg.Checked
		r.zero = cfg.ZeroOnRelease
		r.idleLimit.Store(cfg.IdleLimitBytes)
	}
}

// NewRegistry constructs an empty registry with production defaults:
// 16 KiB chunks, a 64 MiB idle ceiling, unchecked handles.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		byKey:     make(map[poolKey]Allocator),
		chunkSize: config.DefaultChunkSize,
		nextID:    1,
	}
	r.idleLimit.Store(config.DefaultIdleLimitBytes)
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Get()
	}
	return r
}

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the process-wide registry, constructing it on first use.
// Proxies with no explicit registry resolve against it. Tests should
// construct their own registries with NewRegistry instead.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Create returns the raw pool for this exact (label, size) pair, creating
// it on first request. Size is in bytes and must be positive; a label may
// back several pools as long as their sizes differ, but one (label, size)
// pair never yields two allocators.
func (r *Registry) Create(label string, size int64) *RawPool {
	if label == "" {
		panic("mempool: pool label must not be empty")
	}
	if size <= 0 {
		panic(fmt.Sprintf("mempool: pool %q: object size must be positive, got %d", label, size))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	a := r.createLocked(poolKey{label, size}, func(id int) Allocator {
		return newRawPool(label, size, id, r.chunkSize, r.checked, r.zero, r.log)
	})

	p, ok := a.(*RawPool)
	if !ok {
		panic(fmt.Sprintf("mempool: pool %q (size %d) already exists with a typed backing", label, size))
	}
	return p
}

// CreateTyped returns the typed pool for T under the given label, creating
// it on first request. The object size is T's exact size; a second call
// with the same label and type returns the same pool. An empty label
// derives the type's name.
func CreateTyped[T any](r *Registry, label string) *Pool[T] {
	if label == "" {
		label = TypeLabel[T]()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	probe := newPool[T](label, 0, r.chunkSize, r.checked, r.log)
	a := r.createLocked(poolKey{label, probe.objSize}, func(id int) Allocator {
		probe.id = id
		return probe
	})

	p, ok := a.(*Pool[T])
	if !ok {
		panic(fmt.Sprintf("mempool: pool %q (size %d) already exists with a different backing type",
			label, probe.objSize))
	}
	return p
}

// createLocked is the idempotent create path. The pool count increments
// on creation only.
func (r *Registry) createLocked(key poolKey, build func(id int) Allocator) Allocator {
	if a, ok := r.byKey[key]; ok {
		return a
	}

	a := build(r.nextID)
	r.nextID++
	r.byKey[key] = a

	e := &entry{alloc: a}
	if r.tail == nil {
		r.head = e
	} else {
		r.tail.next = e
	}
	r.tail = e
	r.count++

	r.log.Debug("pool created",
		zap.String("pool", key.label),
		zap.Int64("object_size", key.size),
		zap.Int("chunk_capacity", a.ChunkCapacity()),
		zap.Int("pool_id", a.PoolID()))
	return a
}

// PoolCount returns the number of pools the registry owns.
func (r *Registry) PoolCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// SetIdleLimit configures the soft ceiling on aggregate idle backing
// memory across all pools. Advisory: pools over the limit are
// preferentially reclaimed by the sweep, never truncated mid-call. Zero
// tolerates no idle memory; a negative value disables the limit.
func (r *Registry) SetIdleLimit(bytes int64) {
	r.idleLimit.Store(bytes)
}

// IdleLimit returns the configured idle ceiling in bytes.
func (r *Registry) IdleLimit() int64 {
	return r.idleLimit.Load()
}

// snapshot copies the current pool list. Entries are append-only, so the
// copy stays valid after the lock drops.
func (r *Registry) snapshot() []Allocator {
	r.mu.Lock()
	defer r.mu.Unlock()

	pools := make([]Allocator, 0, r.count)
	for e := r.head; e != nil; e = e.next {
		pools = append(pools, e.alloc)
	}
	return pools
}

// FlushMeters folds per-pool meter deltas into cumulative history across
// all pools. Run it on the same cadence as Clean.
func (r *Registry) FlushMeters() {
	for _, a := range r.snapshot() {
		a.FlushMeters()
	}
}

// Clean runs one reclamation sweep: every pool whose idle storage trips
// the urgency trigger releases chunks unused for at least maxAge. When
// aggregate idle memory exceeds the idle limit the sweep turns aggressive
// and reclaims every fully idle chunk regardless of age. Returns the
// bytes reclaimed.
//
// The registry does not self-schedule; invoke Clean periodically (seconds
// to minutes) from a scheduling facility such as sweep.Sweeper. Each
// pool's lock is held only while that pool is cleaned, never across the
// whole sweep.
func (r *Registry) Clean(maxAge time.Duration) int64 {
	r.FlushMeters()

	pools := r.snapshot()

	var idleBytes int64
	for _, a := range pools {
		idleBytes += a.IdleCount() * a.ObjectSize()
	}

	shift := uint(1)
	limit := r.IdleLimit()
	aggressive := limit >= 0 && idleBytes > limit
	if aggressive {
		maxAge = 0
		shift = 0
	}

	var reclaimed int64
	for _, a := range pools {
		if aggressive || a.IdleTrigger(shift) {
			reclaimed += a.Clean(maxAge)
		}
	}

	if reclaimed > 0 {
		r.log.Debug("registry sweep reclaimed idle chunks",
			zap.Int64("reclaimed_bytes", reclaimed),
			zap.Bool("aggressive", aggressive))
	}
	return reclaimed
}

// TotalAllocatedBytes returns the backing memory currently held across
// all pools, in-use and idle together.
func (r *Registry) TotalAllocatedBytes() int64 {
	var total int64
	for _, a := range r.snapshot() {
		m := a.Meter()
		total += m.Alloc.Level() * a.ObjectSize()
	}
	return total
}

// GetGlobalStats fills gs with aggregate statistics for every pool and
// returns the number of pools with at least one object in use.
func (r *Registry) GetGlobalStats(gs *GlobalStats) int {
	*gs = GlobalStats{IdleLimitBytes: r.IdleLimit()}

	for _, a := range r.snapshot() {
		inUse := a.GetStats(&gs.Pools, true)
		if inUse > 0 {
			gs.PoolsInUse++
		}
		gs.PoolCount++
		m := a.Meter()
		gs.TotalAllocatedBytes += m.Alloc.Level() * a.ObjectSize()
	}
	return gs.PoolsInUse
}

// Iterator walks the registry's pools in creation order without exposing
// the list representation.
type Iterator struct {
	r   *Registry
	cur *entry
}

// Iterate returns a cursor positioned before the first pool.
func (r *Registry) Iterate() *Iterator {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &Iterator{r: r, cur: &entry{next: r.head}}
}

// Next advances the cursor and returns the next allocator, or false when
// the traversal is done.
func (it *Iterator) Next() (Allocator, bool) {
	it.r.mu.Lock()
	defer it.r.mu.Unlock()

	if it.cur == nil || it.cur.next == nil {
		it.cur = nil
		return nil, false
	}
	it.cur = it.cur.next
	return it.cur.alloc, true
}

// Each calls fn for every pool in creation order until fn returns false.
func (r *Registry) Each(fn func(Allocator) bool) {
	for _, a := range r.snapshot() {
		if !fn(a) {
			return
		}
	}
}
