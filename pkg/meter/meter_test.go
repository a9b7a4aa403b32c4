package meter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGauge(t *testing.T) {
	t.Run("tracks level", func(t *testing.T) {
		var g Gauge
		g.Add(5)
		g.Add(3)
		g.Add(-2)
		assert.Equal(t, int64(6), g.Level())
	})

	t.Run("tracks peak", func(t *testing.T) {
		var g Gauge
		g.Add(10)
		g.Add(-8)
		g.Add(4)
		assert.Equal(t, int64(6), g.Level())
		assert.Equal(t, int64(10), g.Peak())
	})
}

func TestVolume(t *testing.T) {
	var v Volume
	v.Add(3, 96)
	v.Add(2, 64)
	assert.Equal(t, int64(5), v.Count)
	assert.Equal(t, int64(160), v.Bytes)
}

func TestMeterFlush(t *testing.T) {
	t.Run("folds call counts into history", func(t *testing.T) {
		var m Meter
		m.Flush(10, 4, 6, 8)

		assert.Equal(t, int64(10), m.TotalAllocated.Count)
		assert.Equal(t, int64(80), m.TotalAllocated.Bytes)
		assert.Equal(t, int64(4), m.TotalSaved.Count)
		assert.Equal(t, int64(32), m.TotalSaved.Bytes)
		assert.Equal(t, int64(6), m.TotalFreed.Count)
		assert.Equal(t, int64(48), m.TotalFreed.Bytes)
	})

	t.Run("accumulates across flushes", func(t *testing.T) {
		var m Meter
		m.Flush(10, 0, 0, 16)
		m.Flush(5, 0, 0, 16)

		assert.Equal(t, int64(15), m.TotalAllocated.Count)
		assert.Equal(t, int64(240), m.TotalAllocated.Bytes)
	})
}

func TestMeterConsistent(t *testing.T) {
	var m Meter

	// Grow backing by a chunk of 8, hand out 3.
	m.RecordAlloc(8)
	m.RecordIdle(8)
	for i := 0; i < 3; i++ {
		m.RecordInUse(1)
		m.RecordIdle(-1)
	}

	require.True(t, m.Consistent())
	assert.Equal(t, int64(8), m.Alloc.Level())
	assert.Equal(t, int64(3), m.InUse.Level())
	assert.Equal(t, int64(5), m.Idle.Level())

	m.Flush(3, 0, 0, 64)
	assert.True(t, m.Consistent(), "flush must not disturb the gauge balance")
}
