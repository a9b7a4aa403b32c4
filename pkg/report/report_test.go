package report

import (
	"bytes"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/mempool/pkg/mempool"
)

func buildRegistry(t *testing.T) *mempool.Registry {
	t.Helper()
	reg := mempool.NewRegistry(mempool.WithLogger(zaptest.NewLogger(t)))

	small := reg.Create("small", 32)
	large := reg.Create("large", 512)
	reg.Create("empty", 64)

	for i := 0; i < 10; i++ {
		small.Alloc()
	}
	for i := 0; i < 5; i++ {
		large.Alloc()
	}
	return reg
}

func TestBuild(t *testing.T) {
	rep := Build(buildRegistry(t))

	assert.Equal(t, 3, rep.PoolCount)
	assert.Equal(t, 2, rep.PoolsInUse)
	assert.False(t, rep.GeneratedAt.IsZero())
	assert.Positive(t, rep.TotalBytes)
	require.Len(t, rep.Pools, 3)

	t.Run("sorted by in-use footprint", func(t *testing.T) {
		assert.Equal(t, "large", rep.Pools[0].Label, "5*512 bytes outranks 10*32")
		assert.Equal(t, "small", rep.Pools[1].Label)
		assert.Equal(t, "empty", rep.Pools[2].Label)
	})

	t.Run("rows carry pool figures", func(t *testing.T) {
		large := rep.Pools[0]
		assert.Equal(t, int64(512), large.ObjectSize)
		assert.Equal(t, int64(5), large.ItemsInUse)
		assert.Equal(t, int64(5*512), large.InUseBytes)
		assert.Equal(t, int64(5), large.AllocCalls)
		assert.Equal(t, 1, large.ChunksAllocated)
	})
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Build(buildRegistry(t)).WriteJSON(&buf))

	var decoded Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, 3, decoded.PoolCount)
	require.Len(t, decoded.Pools, 3)
	assert.Equal(t, "large", decoded.Pools[0].Label)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Build(buildRegistry(t)).WriteText(&buf))

	out := buf.String()
	assert.Contains(t, out, "POOL")
	assert.Contains(t, out, "small")
	assert.Contains(t, out, "large")
	assert.Contains(t, out, "pools: 3 (2 in use)")
}
