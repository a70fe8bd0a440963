package parallel

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFor_VisitsEveryIndexOnce(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 8}
	const n = 1000
	counts := make([]int32, n)
	For(n, func(i int) {
		atomic.AddInt32(&counts[i], 1)
	}, cfg)
	for i, c := range counts {
		require.Equal(t, int32(1), c, "index %d", i)
	}
}

func TestForRange_ChunksCoverRange(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 3, MinChunkSize: 10}
	var mu sync.Mutex
	var chunks [][2]int
	ForRange(100, func(start, end int) {
		mu.Lock()
		chunks = append(chunks, [2]int{start, end})
		mu.Unlock()
	}, cfg)

	require.Len(t, chunks, 3)
	covered := make([]bool, 100)
	for _, c := range chunks {
		assert.GreaterOrEqual(t, c[1]-c[0], cfg.MinChunkSize)
		for i := c[0]; i < c[1]; i++ {
			assert.False(t, covered[i], "index %d covered twice", i)
			covered[i] = true
		}
	}
	for i, ok := range covered {
		assert.True(t, ok, "index %d not covered", i)
	}
}

func TestForRange_RunsInline(t *testing.T) {
	tests := []struct {
		name string
		n    int
		cfg  Config
	}{
		{"sequential", 1000, Sequential()},
		{"disabled", 1000, Config{Enabled: false, NumWorkers: 8, MinChunkSize: 1}},
		{"single worker", 1000, Config{Enabled: true, NumWorkers: 1, MinChunkSize: 1}},
		{"small n", 10, Config{Enabled: true, NumWorkers: 8, MinChunkSize: 64}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls [][2]int
			ForRange(tt.n, func(start, end int) {
				calls = append(calls, [2]int{start, end})
			}, tt.cfg)
			assert.Equal(t, [][2]int{{0, tt.n}}, calls)
		})
	}
}

func TestForRange_Empty(t *testing.T) {
	called := false
	ForRange(0, func(int, int) { called = true }, DefaultConfig())
	For(-1, func(int) { called = true }, DefaultConfig())
	assert.False(t, called)
}

func TestForRange_PanicReachesCaller(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 10}
	var visited atomic.Int32
	assert.PanicsWithValue(t, "bad chunk", func() {
		ForRange(100, func(start, end int) {
			visited.Add(int32(end - start))
			if start == 0 {
				panic("bad chunk")
			}
		}, cfg)
	})
	// The other chunks still ran to completion before the panic was raised.
	assert.Equal(t, int32(100), visited.Load())

	// Later calls are unaffected.
	var sum atomic.Int64
	For(100, func(i int) { sum.Add(int64(i)) }, cfg)
	assert.Equal(t, int64(4950), sum.Load())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Positive(t, cfg.NumWorkers)
	assert.Equal(t, 64, cfg.MinChunkSize)
	assert.Equal(t, cfg.NumWorkers > 1, cfg.Enabled)
}

func BenchmarkFor(b *testing.B) {
	data := make([]float64, 1<<16)
	cfg := DefaultConfig()
	for b.Loop() {
		For(len(data), func(i int) {
			data[i] = data[i]*0.5 + 1
		}, cfg)
	}
}
