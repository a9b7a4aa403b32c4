package mempool

import (
	"reflect"
	"sync/atomic"

	"github.com/ajitpratap0/mempool/pkg/meter"
)

// Proxy is a late-binding handle to a typed pool. It lets a leaf type
// declare "my instances are pool-allocated" at its own definition time,
// before any registry exists: the underlying pool is acquired on first use
// and is stable for the proxy's lifetime afterwards.
//
// The conventional integration is one package-level proxy per leaf type:
//
//	type widget struct{ ... }
//
//	var widgetPool = mempool.NewProxy[widget]("widget")
//
//	func newWidget() *widget    { return widgetPool.Alloc() }
//	func (w *widget) release()  { widgetPool.Free(w) }
//
// Resolution is an atomic resolve-once: concurrent first uses race only to
// install the same registry-created pool, never to create duplicates.
// The proxy does not own the pool; the registry does.
type Proxy[T any] struct {
	label string
	reg   *Registry
	pool  atomic.Pointer[Pool[T]]
}

// NewProxy returns a proxy that resolves against the Default registry on
// first use. An empty label derives the type's name.
func NewProxy[T any](label string) *Proxy[T] {
	if label == "" {
		label = TypeLabel[T]()
	}
	return &Proxy[T]{label: label}
}

// NewProxyIn returns a proxy bound to an explicit registry, for processes
// that thread their registry through instead of using Default.
func NewProxyIn[T any](r *Registry, label string) *Proxy[T] {
	p := NewProxy[T](label)
	p.reg = r
	return p
}

// Alloc returns one zeroed object, resolving the pool on first use.
func (p *Proxy[T]) Alloc() *T {
	return p.Allocator().Alloc()
}

// Free returns an object previously obtained from Alloc.
func (p *Proxy[T]) Free(ptr *T) {
	p.Allocator().Free(ptr)
}

// Label returns the proxy's pool label.
func (p *Proxy[T]) Label() string { return p.label }

// ObjectSize returns the fixed object size in bytes.
func (p *Proxy[T]) ObjectSize() int64 {
	return p.Allocator().ObjectSize()
}

// InUseCount returns the number of objects currently allocated and not
// yet released.
func (p *Proxy[T]) InUseCount() int64 {
	return p.Allocator().InUseCount()
}

// Meter returns a copy of the pool's usage meter, resolving the pool as a
// side effect if needed.
func (p *Proxy[T]) Meter() meter.Meter {
	return p.Allocator().Meter()
}

// GetStats proxies through to the resolved pool.
func (p *Proxy[T]) GetStats(s *PoolStats, accumulate bool) int64 {
	return p.Allocator().GetStats(s, accumulate)
}

// Allocator returns the underlying pool, resolving it on first use.
// Registry creation is idempotent per (label, size), so a lost
// compare-and-swap race still yields the one shared pool.
func (p *Proxy[T]) Allocator() *Pool[T] {
	if pl := p.pool.Load(); pl != nil {
		return pl
	}

	r := p.reg
	if r == nil {
		r = Default()
	}
	pl := CreateTyped[T](r, p.label)
	p.pool.CompareAndSwap(nil, pl)
	return p.pool.Load()
}

// TypeLabel returns the conventional pool label for T: the type's name.
func TypeLabel[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if name := t.Name(); name != "" {
		return name
	}
	return t.String()
}
