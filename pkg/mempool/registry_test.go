package mempool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCreate(t *testing.T) {
	t.Run("create is idempotent per label and size", func(t *testing.T) {
		reg := testRegistry(t)

		a := reg.Create("Foo", 64)
		b := reg.Create("Foo", 64)

		require.Same(t, a, b)
		assert.Equal(t, 1, reg.PoolCount())
	})

	t.Run("same label with different sizes yields distinct pools", func(t *testing.T) {
		reg := testRegistry(t)

		a := reg.Create("Foo", 64)
		b := reg.Create("Foo", 128)

		assert.NotSame(t, a, b)
		assert.Equal(t, 2, reg.PoolCount())
		assert.NotEqual(t, a.PoolID(), b.PoolID())
	})

	t.Run("invalid arguments panic", func(t *testing.T) {
		reg := testRegistry(t)
		require.Panics(t, func() { reg.Create("", 64) })
		require.Panics(t, func() { reg.Create("Foo", 0) })
		require.Panics(t, func() { reg.Create("Foo", -8) })
	})

	t.Run("typed and raw pools do not share a key silently", func(t *testing.T) {
		reg := testRegistry(t)
		CreateTyped[widget](reg, "widget")
		require.Panics(t, func() { reg.Create("widget", 32) })
	})
}

func TestRegistryIteration(t *testing.T) {
	reg := testRegistry(t)
	reg.Create("alpha", 16)
	reg.Create("beta", 32)
	reg.Create("gamma", 64)

	t.Run("cursor walks pools in creation order", func(t *testing.T) {
		var labels []string
		it := reg.Iterate()
		for a, ok := it.Next(); ok; a, ok = it.Next() {
			labels = append(labels, a.Label())
		}
		assert.Equal(t, []string{"alpha", "beta", "gamma"}, labels)
	})

	t.Run("exhausted cursor stays done", func(t *testing.T) {
		it := reg.Iterate()
		for _, ok := it.Next(); ok; _, ok = it.Next() {
		}
		_, ok := it.Next()
		assert.False(t, ok)
	})

	t.Run("each stops when told", func(t *testing.T) {
		var n int
		reg.Each(func(Allocator) bool {
			n++
			return n < 2
		})
		assert.Equal(t, 2, n)
	})
}

func TestRegistryIdleLimit(t *testing.T) {
	t.Run("configurable at any time", func(t *testing.T) {
		reg := testRegistry(t)
		reg.SetIdleLimit(1 << 20)
		assert.Equal(t, int64(1<<20), reg.IdleLimit())
	})

	t.Run("zero limit makes the sweep reclaim all idle storage", func(t *testing.T) {
		reg := testRegistry(t)
		reg.SetIdleLimit(0)
		pool := CreateTyped[widget](reg, "widget")

		live := make([]*widget, 0, 200)
		for i := 0; i < 200; i++ {
			live = append(live, pool.Alloc())
		}
		for _, w := range live[100:] {
			pool.Free(w)
		}

		reg.Clean(0)

		// In-use objects are untouched; the fully idle storage is gone
		// as far as chunk granularity allows.
		assert.Equal(t, int64(100), pool.InUseCount())
		m := pool.Meter()
		assert.True(t, m.Consistent())
		assert.Less(t, m.Idle.Level(), int64(pool.ChunkCapacity()),
			"only the partially used chunk may retain idle slots")
	})

	t.Run("idle-only pool drains to zero", func(t *testing.T) {
		reg := testRegistry(t)
		reg.SetIdleLimit(0)
		pool := CreateTyped[widget](reg, "widget")

		live := make([]*widget, 0, 2000)
		for i := 0; i < 2000; i++ {
			live = append(live, pool.Alloc())
		}
		for _, w := range live {
			pool.Free(w)
		}

		reg.Clean(0)
		assert.Equal(t, int64(0), pool.IdleCount())
		assert.Equal(t, int64(0), pool.InUseCount())
	})

	t.Run("negative limit disables aggressive reclamation", func(t *testing.T) {
		reg := testRegistry(t)
		reg.SetIdleLimit(-1)
		pool := CreateTyped[widget](reg, "widget")

		w := pool.Alloc()
		pool.Free(w)

		reg.Clean(0)
		// One idle chunk stays below the trigger threshold.
		assert.Positive(t, pool.IdleCount())
	})
}

func TestRegistryFlushMeters(t *testing.T) {
	reg := testRegistry(t)
	pool := CreateTyped[widget](reg, "widget")

	for i := 0; i < 5; i++ {
		pool.Free(pool.Alloc())
	}

	reg.FlushMeters()

	m := pool.Meter()
	assert.Equal(t, int64(5), m.TotalAllocated.Count)
	assert.Equal(t, int64(5), m.TotalFreed.Count)
	assert.True(t, m.Consistent())
}

func TestRegistryGlobalStats(t *testing.T) {
	reg := testRegistry(t)
	widgets := CreateTyped[widget](reg, "widget")
	frames := reg.Create("frame", 128)
	reg.Create("unused", 16)

	for i := 0; i < 10; i++ {
		widgets.Alloc()
	}
	frames.Alloc()

	var gs GlobalStats
	dirty := reg.GetGlobalStats(&gs)

	assert.Equal(t, 2, dirty)
	assert.Equal(t, 2, gs.PoolsInUse)
	assert.Equal(t, 3, gs.PoolCount)
	assert.Equal(t, int64(11), gs.Pools.ItemsInUse)
	assert.Equal(t, int64(10*32+128), gs.Pools.InUseBytes)
	assert.Equal(t, reg.IdleLimit(), gs.IdleLimitBytes)
	assert.Equal(t, reg.TotalAllocatedBytes(), gs.TotalAllocatedBytes)
	assert.Positive(t, gs.TotalAllocatedBytes)
}

func TestRegistryTotalAllocatedBytes(t *testing.T) {
	reg := testRegistry(t)
	pool := CreateTyped[widget](reg, "widget")

	assert.Zero(t, reg.TotalAllocatedBytes())

	pool.Alloc()
	expected := int64(pool.ChunkCapacity()) * pool.ObjectSize()
	assert.Equal(t, expected, reg.TotalAllocatedBytes())
}
