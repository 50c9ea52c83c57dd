// Package mmu implements the memory manager of the virtual memory
// simulator. It translates virtual addresses on demand, resolves page
// faults, and evicts resident pages under memory pressure.
package mmu

import (
	"fmt"

	"github.com/sarchlab/vmsim/mem"
	"github.com/sarchlab/vmsim/trace"
	"github.com/sarchlab/vmsim/vm"
)

// Comp is the default memory manager implementation.
//
// A Comp exclusively owns its page table and the physical resources handed
// to it at build time. All operations run to completion before returning;
// there are no suspension points.
type Comp struct {
	name     string
	pageSize uint64

	pageTable    vm.PageTable
	frames       *mem.FramePool
	swap         *mem.SwapSpace
	backing      mem.PageStore
	victimFinder VictimFinder
	tracers      []trace.Tracer

	clock uint64
}

// Name returns the name of the memory manager.
func (c *Comp) Name() string {
	return c.name
}

// PageSize returns the page size in bytes.
func (c *Comp) PageSize() uint64 {
	return c.pageSize
}

// PageTable returns the page table the memory manager owns.
func (c *Comp) PageTable() vm.PageTable {
	return c.pageTable
}

// Frames returns the physical frame pool.
func (c *Comp) Frames() *mem.FramePool {
	return c.frames
}

// Swap returns the swap space.
func (c *Comp) Swap() *mem.SwapSpace {
	return c.swap
}

// Map reserves page-table entries for count pages starting at vpnStart. No
// frame is allocated until the first access.
func (c *Comp) Map(
	vpnStart, count uint64,
	fileBacked bool,
	backingStart uint64,
) error {
	err := c.pageTable.Reserve(vpnStart, count, fileBacked, backingStart)
	if err != nil {
		return err
	}

	for i := uint64(0); i < count; i++ {
		c.trace(trace.Event{
			Kind:  trace.EventMap,
			VPN:   vpnStart + i,
			Clock: c.clock,
		})
	}

	return nil
}

// Unmap destroys the entries for count pages starting at vpnStart. Dirty
// file-backed content is flushed to its backing page first; frames and swap
// slots are released. Pages in the range that are not reserved are skipped.
func (c *Comp) Unmap(vpnStart, count uint64) error {
	for i := uint64(0); i < count; i++ {
		vpn := vpnStart + i

		page, found := c.pageTable.Find(vpn)
		if !found {
			continue
		}

		if page.Present {
			if page.Dirty && page.FileBacked {
				if err := c.writeBack(page); err != nil {
					return err
				}
			}

			c.frames.Free(page.Frame)
		}

		if page.InSwap {
			c.swap.FreeSlot(page.SwapSlot)
		}

		c.pageTable.Remove(vpn)

		c.trace(trace.Event{
			Kind:  trace.EventUnmap,
			VPN:   vpn,
			Clock: c.clock,
		})
	}

	return nil
}

// Translate resolves a virtual address to a frame index and an in-page
// offset, faulting the page in if necessary. The access kind drives the
// dirty and LRU bookkeeping.
func (c *Comp) Translate(
	vaddr uint64,
	access vm.AccessKind,
) (frame, offset uint64, err error) {
	vpn := vaddr / c.pageSize
	offset = vaddr % c.pageSize

	page, found := c.pageTable.Find(vpn)
	if !found {
		return 0, 0, fmt.Errorf("%w: address 0x%x is not mapped",
			vm.ErrSegmentationFault, vaddr)
	}

	if !page.Present {
		page, err = c.handlePageFault(page)
		if err != nil {
			return 0, 0, err
		}
	}

	c.clock++
	page.LastAccess = c.clock
	page.Accessed = true
	if access == vm.AccessWrite {
		page.Dirty = true
	}
	c.pageTable.Update(page)

	return page.Frame, offset, nil
}

// ReadPhysical copies n bytes out of a frame at the given offset.
func (c *Comp) ReadPhysical(frame, offset, n uint64) ([]byte, error) {
	return c.frames.Read(frame, offset, n)
}

// WritePhysical copies data into a frame at the given offset.
func (c *Comp) WritePhysical(frame, offset uint64, data []byte) error {
	return c.frames.Write(frame, offset, data)
}

// handlePageFault brings a non-present page into a frame and returns the
// updated entry.
func (c *Comp) handlePageFault(page vm.Page) (vm.Page, error) {
	c.trace(trace.Event{
		Kind:  trace.EventPageFault,
		VPN:   page.VPN,
		Clock: c.clock,
	})

	frame, err := c.frames.Allocate(page.VPN)
	if err != nil {
		if err = c.evictOne(); err != nil {
			return page, err
		}

		frame, err = c.frames.Allocate(page.VPN)
		if err != nil {
			// Eviction just freed a frame, so a second failure means the
			// frame accounting is corrupted.
			panic("out of memory: frame allocation failed after eviction")
		}
	}

	data, err := c.loadContent(&page)
	if err != nil {
		c.frames.Free(frame)
		return page, err
	}

	if err := c.frames.WriteFrame(frame, data); err != nil {
		c.frames.Free(frame)
		return page, err
	}

	page.Present = true
	page.Frame = frame
	page.Dirty = false
	c.clock++
	page.LastAccess = c.clock
	c.pageTable.Update(page)

	return page, nil
}

// loadContent fetches the authoritative copy of a faulting page: the swap
// slot if one is held, the backing page for file mappings, or zeroes for a
// never-touched anonymous page. A consumed swap slot is freed.
func (c *Comp) loadContent(page *vm.Page) ([]byte, error) {
	switch {
	case page.InSwap:
		data, err := c.swap.ReadSlot(page.SwapSlot)
		if err != nil {
			return nil, err
		}

		c.swap.FreeSlot(page.SwapSlot)
		c.trace(trace.Event{
			Kind:  trace.EventSwapIn,
			VPN:   page.VPN,
			Slot:  page.SwapSlot,
			Clock: c.clock,
		})
		page.InSwap = false
		page.SwapSlot = 0

		return data, nil

	case page.FileBacked:
		if c.backing == nil {
			panic("file-backed page without a backing store")
		}

		data, err := c.backing.ReadPage(page.BackingPage)
		if err != nil {
			return nil, err
		}

		c.trace(trace.Event{
			Kind:  trace.EventFileRead,
			VPN:   page.VPN,
			Page:  page.BackingPage,
			Clock: c.clock,
		})

		return data, nil

	default:
		c.trace(trace.Event{
			Kind:  trace.EventZeroFill,
			VPN:   page.VPN,
			Clock: c.clock,
		})

		return make([]byte, c.pageSize), nil
	}
}

// evictOne reclaims exactly one frame from the least recently used resident
// page, persisting its content first when required.
func (c *Comp) evictOne() error {
	victim, found := c.victimFinder.FindVictim(c.pageTable)
	if !found {
		// The pool is exhausted yet nothing is resident.
		panic("out of memory: no resident page to evict")
	}

	if victim.FileBacked {
		if victim.Dirty {
			if err := c.writeBack(victim); err != nil {
				return err
			}
			victim.Dirty = false
		}
		// A clean file-backed page needs no I/O: the backing copy is
		// already authoritative.
	} else if victim.Dirty || !victim.InSwap {
		if err := c.swapOut(&victim); err != nil {
			return err
		}
	}

	victim.Present = false
	c.frames.Free(victim.Frame)

	c.trace(trace.Event{
		Kind:  trace.EventEvict,
		VPN:   victim.VPN,
		Frame: victim.Frame,
		Clock: c.clock,
	})

	victim.Frame = 0
	c.pageTable.Update(victim)

	return nil
}

// swapOut persists an anonymous page to its swap slot, allocating a slot if
// the page holds none. A clean page that is already mirrored in swap never
// reaches this point.
func (c *Comp) swapOut(victim *vm.Page) error {
	data, err := c.frames.ReadFrame(victim.Frame)
	if err != nil {
		return err
	}

	if !victim.InSwap {
		slot, err := c.swap.AllocateSlot()
		if err != nil {
			return fmt.Errorf("evicting page %d: %w", victim.VPN, err)
		}

		victim.SwapSlot = slot
		victim.InSwap = true
	}

	if err := c.swap.WriteSlot(victim.SwapSlot, data); err != nil {
		return err
	}

	victim.Dirty = false

	c.trace(trace.Event{
		Kind:  trace.EventSwapOut,
		VPN:   victim.VPN,
		Slot:  victim.SwapSlot,
		Clock: c.clock,
	})

	return nil
}

// writeBack flushes the frame content of a dirty file-backed page to its
// backing page.
func (c *Comp) writeBack(page vm.Page) error {
	data, err := c.frames.ReadFrame(page.Frame)
	if err != nil {
		return err
	}

	if c.backing == nil {
		panic("file-backed page without a backing store")
	}

	if err := c.backing.WritePage(page.BackingPage, data); err != nil {
		return err
	}

	c.trace(trace.Event{
		Kind:  trace.EventWriteBack,
		VPN:   page.VPN,
		Page:  page.BackingPage,
		Clock: c.clock,
	})

	return nil
}

func (c *Comp) trace(e trace.Event) {
	for _, t := range c.tracers {
		t.Trace(e)
	}
}
