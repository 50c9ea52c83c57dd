package addressspace

import "github.com/sarchlab/vmsim/vm/mmu"

// DefaultStartAddress is where the bump allocator of a new address space
// starts handing out virtual addresses.
const DefaultStartAddress = 0x10000000

// A Builder can build address spaces.
type Builder struct {
	manager      *mmu.Comp
	startAddress uint64
}

// MakeBuilder creates a new builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		startAddress: DefaultStartAddress,
	}
}

// WithMemoryManager sets the memory manager the address space delegates to.
func (b Builder) WithMemoryManager(m *mmu.Comp) Builder {
	b.manager = m
	return b
}

// WithStartAddress sets the first virtual address the bump allocator
// returns. It must be page aligned.
func (b Builder) WithStartAddress(addr uint64) Builder {
	b.startAddress = addr
	return b
}

// Build returns a newly created address space.
func (b Builder) Build(name string) *Comp {
	if b.manager == nil {
		panic("an address space requires a memory manager")
	}

	if b.startAddress%b.manager.PageSize() != 0 {
		panic("the start address must be page aligned")
	}

	return &Comp{
		name:      name,
		manager:   b.manager,
		pageSize:  b.manager.PageSize(),
		nextVAddr: b.startAddress,
	}
}
