package mempool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawPoolAllocFree(t *testing.T) {
	t.Run("slots are sized to the declared object size", func(t *testing.T) {
		pool := testRegistry(t).Create("frame", 128)

		ref := pool.Alloc()
		require.True(t, ref.Valid())
		assert.Len(t, ref.Bytes(), 128)
		assert.Equal(t, 128, cap(ref.Bytes()))

		pool.Free(ref)
		assert.Equal(t, int64(0), pool.InUseCount())
	})

	t.Run("in-use count tracks allocations minus releases", func(t *testing.T) {
		pool := testRegistry(t).Create("frame", 64)

		refs := make([]Ref, 0, 500)
		for i := 0; i < 500; i++ {
			refs = append(refs, pool.Alloc())
		}
		assert.Equal(t, int64(500), pool.InUseCount())

		for _, ref := range refs {
			pool.Free(ref)
		}
		assert.Equal(t, int64(0), pool.InUseCount())

		m := pool.Meter()
		assert.True(t, m.Consistent())
		assert.GreaterOrEqual(t, m.Idle.Level(), int64(500))
	})

	t.Run("slot memory holds caller data until release", func(t *testing.T) {
		pool := testRegistry(t).Create("frame", 16)

		a := pool.Alloc()
		b := pool.Alloc()
		copy(a.Bytes(), "aaaaaaaaaaaaaaaa")
		copy(b.Bytes(), "bbbbbbbbbbbbbbbb")

		assert.Equal(t, byte('a'), a.Bytes()[15])
		assert.Equal(t, byte('b'), b.Bytes()[0])
	})
}

func TestRawPoolAllocSized(t *testing.T) {
	pool := testRegistry(t).Create("frame", 64)

	ref := pool.AllocSized(64)
	assert.Len(t, ref.Bytes(), 64)

	require.Panics(t, func() { pool.AllocSized(65) },
		"one allocator backs exactly one object size")
}

func TestRawPoolZeroOnRelease(t *testing.T) {
	pool := testRegistry(t, WithZeroOnRelease(true)).Create("frame", 32)

	ref := pool.Alloc()
	for i := range ref.Bytes() {
		ref.Bytes()[i] = 0xFF
	}
	pool.Free(ref)

	reused := pool.Alloc()
	for _, b := range reused.Bytes() {
		assert.Zero(t, b)
	}
}

func TestRawPoolChecked(t *testing.T) {
	t.Run("double release panics", func(t *testing.T) {
		pool := testRegistry(t, WithCheckedHandles(true)).Create("frame", 32)

		ref := pool.Alloc()
		pool.Free(ref)
		require.Panics(t, func() { pool.Free(ref) })
	})

	t.Run("stale handle panics after slot reuse", func(t *testing.T) {
		pool := testRegistry(t, WithCheckedHandles(true)).Create("frame", 32)

		ref := pool.Alloc()
		pool.Free(ref)
		fresh := pool.Alloc() // reuses the slot, bumping its generation
		require.Panics(t, func() { pool.Free(ref) })
		pool.Free(fresh)
	})

	t.Run("foreign pool panics regardless of mode", func(t *testing.T) {
		reg := testRegistry(t)
		a := reg.Create("a", 32)
		b := reg.Create("b", 32)

		ref := a.Alloc()
		require.Panics(t, func() { b.Free(ref) })
		a.Free(ref)
	})
}

func TestRawPoolClean(t *testing.T) {
	pool := testRegistry(t).Create("frame", 64)
	capacity := pool.ChunkCapacity()

	refs := make([]Ref, 0, 3*capacity)
	for i := 0; i < 3*capacity; i++ {
		refs = append(refs, pool.Alloc())
	}
	// Keep the first chunk's worth live, free the rest.
	for _, ref := range refs[capacity:] {
		pool.Free(ref)
	}

	reclaimed := pool.Clean(0)
	assert.Positive(t, reclaimed)
	assert.Equal(t, int64(capacity), pool.InUseCount())

	// Live handles still map to valid memory.
	for _, ref := range refs[:capacity] {
		assert.Len(t, ref.Bytes(), 64)
	}
}

func TestRefZeroValue(t *testing.T) {
	var ref Ref
	assert.False(t, ref.Valid())
	assert.Nil(t, ref.Bytes())
}
