// Package addressspace provides the public mapping and access API of the
// virtual memory simulator. It allocates virtual ranges with a bump pointer
// and delegates translation and fault handling to a memory manager.
package addressspace

import (
	"errors"
	"fmt"

	"github.com/sarchlab/vmsim/vm"
	"github.com/sarchlab/vmsim/vm/mmu"
)

// A FileMapping asks for a file-backed mapping at the given byte offset into
// the backing store. The offset must be page aligned.
type FileMapping struct {
	Offset uint64
}

// Comp is an address space. It owns a bump allocator over virtual addresses
// and one memory manager.
//
// Freed virtual ranges are not reused; the bump pointer only moves forward.
type Comp struct {
	name      string
	manager   *mmu.Comp
	pageSize  uint64
	nextVAddr uint64
}

// Name returns the name of the address space.
func (c *Comp) Name() string {
	return c.name
}

// Manager returns the memory manager the address space delegates to.
func (c *Comp) Manager() *mmu.Comp {
	return c.manager
}

// Mmap reserves enough pages to hold length bytes and returns the virtual
// address of the mapping. With a nil file the mapping is anonymous and
// zero-filled on first touch; otherwise content comes from the backing
// store at the given offset. No frame is allocated until the first access.
func (c *Comp) Mmap(length uint64, file *FileMapping) (uint64, error) {
	if length == 0 {
		return 0, errors.New("cannot map zero bytes")
	}

	pagesNeeded := (length + c.pageSize - 1) / c.pageSize

	fileBacked := false
	backingStart := uint64(0)
	if file != nil {
		if file.Offset%c.pageSize != 0 {
			return 0, fmt.Errorf("%w: file offset 0x%x",
				vm.ErrUnalignedAddress, file.Offset)
		}

		fileBacked = true
		backingStart = file.Offset / c.pageSize
	}

	vaddr := c.nextVAddr
	vpnStart := vaddr / c.pageSize

	err := c.manager.Map(vpnStart, pagesNeeded, fileBacked, backingStart)
	if err != nil {
		return 0, err
	}

	c.nextVAddr += pagesNeeded * c.pageSize

	return vaddr, nil
}

// Munmap destroys the mapping that covers length bytes starting at addr.
// The address must be page aligned; the length is rounded up to a page
// multiple.
func (c *Comp) Munmap(addr, length uint64) error {
	if addr%c.pageSize != 0 {
		return fmt.Errorf("%w: 0x%x", vm.ErrUnalignedAddress, addr)
	}

	pages := (length + c.pageSize - 1) / c.pageSize

	return c.manager.Unmap(addr/c.pageSize, pages)
}

// Read returns n bytes starting at addr. The range must not cross a page
// boundary: only the starting address is translated.
func (c *Comp) Read(addr, n uint64) ([]byte, error) {
	if err := c.checkInPage(addr, n); err != nil {
		return nil, err
	}

	frame, offset, err := c.manager.Translate(addr, vm.AccessRead)
	if err != nil {
		return nil, err
	}

	return c.manager.ReadPhysical(frame, offset, n)
}

// Write stores data starting at addr. The range must not cross a page
// boundary: only the starting address is translated.
func (c *Comp) Write(addr uint64, data []byte) error {
	if err := c.checkInPage(addr, uint64(len(data))); err != nil {
		return err
	}

	frame, offset, err := c.manager.Translate(addr, vm.AccessWrite)
	if err != nil {
		return err
	}

	return c.manager.WritePhysical(frame, offset, data)
}

func (c *Comp) checkInPage(addr, n uint64) error {
	offset := addr % c.pageSize
	if offset+n > c.pageSize {
		return fmt.Errorf("%w: [0x%x, 0x%x)",
			vm.ErrCrossesPageBoundary, addr, addr+n)
	}

	return nil
}
