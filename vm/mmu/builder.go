package mmu

import (
	"github.com/sarchlab/vmsim/mem"
	"github.com/sarchlab/vmsim/trace"
	"github.com/sarchlab/vmsim/vm"
)

// A Builder can build memory managers.
type Builder struct {
	pageSize      uint64
	frameCount    int
	swapSlotCount int

	framePool    *mem.FramePool
	swapSpace    *mem.SwapSpace
	pageTable    vm.PageTable
	backingStore mem.PageStore
	victimFinder VictimFinder
	tracers      []trace.Tracer
}

// MakeBuilder creates a new builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		pageSize:      4096,
		frameCount:    8,
		swapSlotCount: 32,
	}
}

// WithPageSize sets the page size in bytes.
func (b Builder) WithPageSize(pageSize uint64) Builder {
	b.pageSize = pageSize
	return b
}

// WithFrameCount sets the number of physical frames to create.
func (b Builder) WithFrameCount(n int) Builder {
	b.frameCount = n
	return b
}

// WithSwapSlotCount sets the number of swap slots to create.
func (b Builder) WithSwapSlotCount(n int) Builder {
	b.swapSlotCount = n
	return b
}

// WithFramePool sets an existing frame pool to use instead of creating one.
// Multiple memory managers must not share a pool; share it by routing all
// address spaces through one manager.
func (b Builder) WithFramePool(pool *mem.FramePool) Builder {
	b.framePool = pool
	return b
}

// WithSwapSpace sets an existing swap space to use instead of creating one.
func (b Builder) WithSwapSpace(swap *mem.SwapSpace) Builder {
	b.swapSpace = swap
	return b
}

// WithPageTable sets the page table the memory manager uses.
func (b Builder) WithPageTable(pageTable vm.PageTable) Builder {
	b.pageTable = pageTable
	return b
}

// WithBackingStore sets the page-addressable store that backs file
// mappings.
func (b Builder) WithBackingStore(store mem.PageStore) Builder {
	b.backingStore = store
	return b
}

// WithVictimFinder sets the eviction policy.
func (b Builder) WithVictimFinder(vf VictimFinder) Builder {
	b.victimFinder = vf
	return b
}

// WithTracers adds tracers that receive paging events.
func (b Builder) WithTracers(tracers ...trace.Tracer) Builder {
	b.tracers = append(b.tracers, tracers...)
	return b
}

// Build returns a newly created memory manager.
func (b Builder) Build(name string) *Comp {
	c := &Comp{
		name:     name,
		pageSize: b.pageSize,
	}

	c.frames = b.framePool
	if c.frames == nil {
		c.frames = mem.NewFramePool(b.frameCount, b.pageSize)
	}

	c.swap = b.swapSpace
	if c.swap == nil {
		c.swap = mem.NewSwapSpace(b.swapSlotCount, b.pageSize)
	}

	c.pageTable = b.pageTable
	if c.pageTable == nil {
		c.pageTable = vm.NewPageTable()
	}

	c.victimFinder = b.victimFinder
	if c.victimFinder == nil {
		c.victimFinder = NewLRUVictimFinder()
	}

	c.backing = b.backingStore
	c.tracers = b.tracers

	return c
}
