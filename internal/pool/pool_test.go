package pool

import (
	"math"
	"testing"

	"github.com/born-ml/matgraph/internal/tensor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RequestRelease(t *testing.T) {
	p := New[float32]()
	owner := uuid.New()

	h := p.Request(owner, "temp")
	require.NotNil(t, h.Matrix())
	assert.Equal(t, "temp", h.Name())
	assert.Equal(t, owner, h.Owner())
	assert.Equal(t, 1, p.Outstanding())
	assert.Error(t, p.CheckBalanced())

	h.Matrix().Resize(3, 2)
	p.Release(h)
	assert.True(t, h.Released())
	assert.Equal(t, 0, p.Outstanding())
	assert.Equal(t, 1, p.NumFree())
	assert.NoError(t, p.CheckBalanced())
}

func TestPool_ReusesMostRecentlyReleased(t *testing.T) {
	p := New[float64]()
	owner := uuid.New()

	a := p.Request(owner, "a")
	b := p.Request(owner, "b")
	ma, mb := a.Matrix(), b.Matrix()
	require.NotSame(t, ma, mb)

	p.Release(a)
	p.Release(b)

	c := p.Request(uuid.New(), "c")
	assert.Same(t, mb, c.Matrix())
	d := p.Request(uuid.New(), "d")
	assert.Same(t, ma, d.Matrix())

	stats := p.Stats()
	assert.Equal(t, 4, stats.Requests)
	assert.Equal(t, 2, stats.Reuses)
	assert.Equal(t, 2, stats.Allocations)
	assert.Equal(t, 2, stats.PeakOutstanding)
}

func TestPool_PoisonOnRelease(t *testing.T) {
	p := New[float64](WithPoison())
	h := p.Request(uuid.New(), "x")
	h.Matrix().Resize(2, 2)
	h.Matrix().SetValue(1)
	p.Release(h)

	h = p.Request(uuid.New(), "y")
	m := h.Matrix()
	m.Resize(2, 2)
	for _, v := range m.Data() {
		assert.True(t, math.IsNaN(v))
	}
}

func TestPool_MisuseIsFatal(t *testing.T) {
	p := New[float32]()
	other := New[float32]()
	owner := uuid.New()

	h := p.Request(owner, "temp")
	assert.Panics(t, func() { other.Release(h) }, "foreign handle")
	p.Release(h)
	assert.Panics(t, func() { p.Release(h) }, "double release")
	assert.Panics(t, func() { h.Matrix() }, "use after release")
	assert.Panics(t, func() { p.Release(nil) })
}

func TestPool_CheckBalancedListsOutstanding(t *testing.T) {
	p := New[float32]()
	owner := uuid.New()
	p.Request(owner, "invNorm0")
	p.Request(owner, "invNorm1")

	err := p.CheckBalanced()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 buffers")
	assert.Contains(t, err.Error(), owner.String()+"/invNorm0")
	assert.Contains(t, err.Error(), owner.String()+"/invNorm1")
}

func TestPool_SetDevice(t *testing.T) {
	p := New[float32](WithDevice(tensor.CUDA))
	assert.Equal(t, tensor.CUDA, p.Device())

	free := p.Request(uuid.New(), "free")
	assert.Equal(t, tensor.CUDA, free.Matrix().Device())
	p.Release(free)
	borrowed := p.Request(uuid.New(), "borrowed")
	spare := p.Request(uuid.New(), "spare")
	p.Release(spare)

	p.SetDevice(tensor.Metal)
	assert.Equal(t, tensor.Metal, borrowed.Matrix().Device())
	again := p.Request(uuid.New(), "again")
	assert.Equal(t, tensor.Metal, again.Matrix().Device())
}

func TestPool_SparseBuffersAreNotRecycled(t *testing.T) {
	p := New[float32]()
	h := p.Request(uuid.New(), "temp")
	h.Matrix().Resize(2, 2)
	h.Matrix().SwitchToSparseBlockCol()
	p.Release(h)
	assert.Equal(t, 0, p.NumFree())
	p.LogStats()
	p.Clear()
}
