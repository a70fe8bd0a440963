// Package pool implements the scratch buffer pool shared by graph nodes.
//
// A node requests a named temporary right before its first use in a pass and
// releases it right after its last use. The pool may hand the same physical
// buffer to another node once released, so callers never rely on the content
// of a temporary across a release/request cycle.
//
// Misuse of the protocol (double release, releasing a handle of another pool)
// is fatal. CheckBalanced reports requests that were never released.
package pool

import (
	"math"
	"strings"

	"github.com/born-ml/matgraph/internal/tensor"
	"github.com/dustin/go-humanize"
	"github.com/emirpasic/gods/v2/stacks/arraystack"
	"github.com/gomlx/exceptions"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"k8s.io/klog/v2"
)

// Handle is an opaque reference to a borrowed buffer.
type Handle[T tensor.Float] struct {
	id       uint64
	pool     *Pool[T]
	owner    uuid.UUID
	name     string
	matrix   *tensor.Matrix[T]
	released bool
}

// Matrix returns the borrowed buffer. Its dimensions and content are undefined
// until the borrower resizes and fills it. Panics after release.
func (h *Handle[T]) Matrix() *tensor.Matrix[T] {
	if h.released {
		exceptions.Panicf("pool: buffer %q of %s used after release", h.name, h.owner)
	}
	return h.matrix
}

// Name returns the logical slot name given at request time.
func (h *Handle[T]) Name() string { return h.name }

// Owner returns the identity of the requester.
func (h *Handle[T]) Owner() uuid.UUID { return h.owner }

// Released reports whether the handle was given back to the pool.
func (h *Handle[T]) Released() bool { return h.released }

// Stats counts pool activity.
type Stats struct {
	Requests        int
	Reuses          int
	Allocations     int
	PeakOutstanding int
}

// Pool is a registry of reusable scratch matrices. It is not safe for
// concurrent use: graph passes are single-threaded.
type Pool[T tensor.Float] struct {
	device      tensor.Device
	poison      bool
	free        *arraystack.Stack[*tensor.Matrix[T]]
	outstanding *orderedmap.OrderedMap[uint64, *Handle[T]]
	nextID      uint64
	stats       Stats
}

// Option configures a Pool.
type Option func(*options)

type options struct {
	device tensor.Device
	poison bool
}

// WithDevice places the pooled buffers on device.
func WithDevice(device tensor.Device) Option {
	return func(o *options) { o.device = device }
}

// WithPoison fills released buffers with NaN so that reading a temporary's
// content from a previous borrow shows up in the results.
func WithPoison() Option {
	return func(o *options) { o.poison = true }
}

// New creates an empty pool.
func New[T tensor.Float](opts ...Option) *Pool[T] {
	o := options{device: tensor.CPU}
	for _, opt := range opts {
		opt(&o)
	}
	return &Pool[T]{
		device:      o.device,
		poison:      o.poison,
		free:        arraystack.New[*tensor.Matrix[T]](),
		outstanding: orderedmap.New[uint64, *Handle[T]](),
	}
}

// Device returns the device buffers are placed on.
func (p *Pool[T]) Device() tensor.Device { return p.device }

// Request borrows a buffer for owner under the logical slot name.
// The most recently released buffer is reused first.
func (p *Pool[T]) Request(owner uuid.UUID, name string) *Handle[T] {
	p.stats.Requests++
	m, ok := p.free.Pop()
	if ok {
		p.stats.Reuses++
	} else {
		p.stats.Allocations++
		m = tensor.NewOnDevice[T](0, 0, p.device)
	}
	p.nextID++
	h := &Handle[T]{id: p.nextID, pool: p, owner: owner, name: name, matrix: m}
	p.outstanding.Set(h.id, h)
	p.stats.PeakOutstanding = max(p.stats.PeakOutstanding, p.outstanding.Len())
	if klog.V(3).Enabled() {
		klog.Infof("pool: %s requested %q (reused=%v, outstanding=%d)", owner, name, ok, p.outstanding.Len())
	}
	return h
}

// Release gives a borrowed buffer back to the pool.
func (p *Pool[T]) Release(h *Handle[T]) {
	if h == nil {
		exceptions.Panicf("pool: release of a nil handle")
	}
	if h.pool != p {
		exceptions.Panicf("pool: buffer %q of %s released into a pool that did not lend it", h.name, h.owner)
	}
	if h.released {
		exceptions.Panicf("pool: buffer %q of %s released twice", h.name, h.owner)
	}
	if _, present := p.outstanding.Delete(h.id); !present {
		exceptions.Panicf("pool: buffer %q of %s is not outstanding", h.name, h.owner)
	}
	h.released = true
	m := h.matrix
	h.matrix = nil
	if m.IsSparse() || m.IsView() {
		// Only plain dense buffers are recycled.
		return
	}
	if p.poison {
		m.SetValue(T(math.NaN()))
	}
	m.MoveToDevice(p.device)
	p.free.Push(m)
}

// Outstanding returns the number of buffers currently borrowed.
func (p *Pool[T]) Outstanding() int { return p.outstanding.Len() }

// NumFree returns the number of buffers ready for reuse.
func (p *Pool[T]) NumFree() int { return p.free.Size() }

// Stats returns activity counters since creation.
func (p *Pool[T]) Stats() Stats { return p.stats }

// CheckBalanced returns an error listing every buffer requested and not yet released.
func (p *Pool[T]) CheckBalanced() error {
	if p.outstanding.Len() == 0 {
		return nil
	}
	var names []string
	for pair := p.outstanding.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Value.owner.String()+"/"+pair.Value.name)
	}
	return errors.Errorf("pool: %d buffers requested but not released: %s",
		len(names), strings.Join(names, ", "))
}

// SetDevice moves every pooled buffer, free or borrowed, to device.
func (p *Pool[T]) SetDevice(device tensor.Device) {
	p.device = device
	for _, m := range p.free.Values() {
		m.MoveToDevice(device)
	}
	for pair := p.outstanding.Oldest(); pair != nil; pair = pair.Next() {
		pair.Value.matrix.MoveToDevice(device)
	}
}

// Clear drops all free buffers. Borrowed buffers are unaffected.
func (p *Pool[T]) Clear() {
	p.free.Clear()
}

// LogStats logs the pool counters and the memory held by free buffers.
func (p *Pool[T]) LogStats() {
	if !klog.V(2).Enabled() {
		return
	}
	var held int
	for _, m := range p.free.Values() {
		held += m.Capacity() * tensor.DataTypeOf[T]().Size()
	}
	klog.Infof("pool[%s, %s]: %d requests, %d reused, %d allocated, peak %d outstanding, %d free buffers holding %s",
		tensor.DataTypeOf[T](), p.device, p.stats.Requests, p.stats.Reuses, p.stats.Allocations,
		p.stats.PeakOutstanding, p.free.Size(), humanize.Bytes(uint64(held)))
}
