package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/mempool/pkg/mempool"
)

func TestCollectorRegisters(t *testing.T) {
	reg := mempool.NewRegistry(mempool.WithLogger(zaptest.NewLogger(t)))

	promReg := prometheus.NewPedanticRegistry()
	require.NoError(t, promReg.Register(NewCollector(reg)))
}

func TestCollectorSeriesCount(t *testing.T) {
	reg := mempool.NewRegistry(mempool.WithLogger(zaptest.NewLogger(t)))
	c := NewCollector(reg)

	// Registry-level gauges only while no pools exist.
	assert.Equal(t, 3, testutil.CollectAndCount(c))

	reg.Create("frame", 64)
	// 12 per-pool series plus the 3 registry-level ones.
	assert.Equal(t, 15, testutil.CollectAndCount(c))

	reg.Create("header", 32)
	assert.Equal(t, 27, testutil.CollectAndCount(c))
}

func TestCollectorValues(t *testing.T) {
	reg := mempool.NewRegistry(
		mempool.WithLogger(zaptest.NewLogger(t)),
		mempool.WithIdleLimit(4096),
	)
	pool := reg.Create("frame", 64)

	// One chunk of 256 slots; two allocations stay live, one is returned.
	refs := []mempool.Ref{pool.Alloc(), pool.Alloc(), pool.Alloc()}
	pool.Free(refs[2])

	c := NewCollector(reg)
	expected := `
# HELP mempool_pool_calls_total Cumulative allocator calls per pool (alloc, saved, free).
# TYPE mempool_pool_calls_total counter
mempool_pool_calls_total{op="alloc",pool="frame"} 3
mempool_pool_calls_total{op="free",pool="frame"} 1
mempool_pool_calls_total{op="saved",pool="frame"} 2
# HELP mempool_pool_items Objects per pool by state (allocated, in_use, idle).
# TYPE mempool_pool_items gauge
mempool_pool_items{pool="frame",state="allocated"} 256
mempool_pool_items{pool="frame",state="idle"} 254
mempool_pool_items{pool="frame",state="in_use"} 2
# HELP mempool_idle_limit_bytes Configured soft ceiling on aggregate idle memory.
# TYPE mempool_idle_limit_bytes gauge
mempool_idle_limit_bytes 4096
# HELP mempool_allocated_bytes Backing memory currently held across all pools.
# TYPE mempool_allocated_bytes gauge
mempool_allocated_bytes 16384
# HELP mempool_pools Number of pools owned by the registry.
# TYPE mempool_pools gauge
mempool_pools 1
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"mempool_pool_calls_total",
		"mempool_pool_items",
		"mempool_idle_limit_bytes",
		"mempool_allocated_bytes",
		"mempool_pools",
	))
}

func TestCollectorTracksReclamation(t *testing.T) {
	reg := mempool.NewRegistry(
		mempool.WithLogger(zaptest.NewLogger(t)),
		mempool.WithIdleLimit(0),
	)
	pool := reg.Create("scratch", 128)
	pool.Free(pool.Alloc())
	reg.Clean(0)

	c := NewCollector(reg)
	expected := `
# HELP mempool_allocated_bytes Backing memory currently held across all pools.
# TYPE mempool_allocated_bytes gauge
mempool_allocated_bytes 0
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"mempool_allocated_bytes"))
}
