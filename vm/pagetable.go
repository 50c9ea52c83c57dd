// Package vm defines the virtual page metadata model and the page table of
// the virtual memory simulator.
package vm

import (
	"container/list"
	"fmt"
	"sort"
	"sync"
)

// A Page is an entry in the page table. It tracks where the content of one
// virtual page currently lives.
//
// A page is in exactly one of four states: reserved and never touched,
// resident, evicted to swap, or evicted to its backing file. Present is true
// only while resident. Frame is meaningful only while Present; SwapSlot is
// meaningful only while InSwap, and only anonymous pages ever hold a swap
// slot. The authoritative non-resident copy of a file-backed page is always
// its backing page.
type Page struct {
	VPN        uint64
	Present    bool
	Dirty      bool
	Accessed   bool
	LastAccess uint64

	FileBacked  bool
	BackingPage uint64

	Frame    uint64
	InSwap   bool
	SwapSlot uint64
}

// A PageTable maps virtual page numbers to Page entries.
type PageTable interface {
	// Reserve creates count entries starting at vpn in the reserved state.
	// It fails with ErrDoubleReservation when any page in the range already
	// has an entry, without creating anything.
	Reserve(vpn, count uint64, fileBacked bool, backingStart uint64) error

	// Find returns the entry for a virtual page number. The bool return
	// value indicates whether the page is reserved.
	Find(vpn uint64) (Page, bool)

	// Update replaces the entry whose VPN matches the given page.
	Update(page Page)

	// Remove deletes the entry for a virtual page number.
	Remove(vpn uint64)

	// Resident returns all present entries, ordered by ascending VPN.
	Resident() []Page

	// All returns every entry, ordered by ascending VPN.
	All() []Page
}

// NewPageTable creates an empty PageTable.
func NewPageTable() PageTable {
	return &pageTableImpl{
		entries:      list.New(),
		entriesTable: make(map[uint64]*list.Element),
	}
}

type pageTableImpl struct {
	sync.Mutex
	entries      *list.List
	entriesTable map[uint64]*list.Element
}

func (t *pageTableImpl) Reserve(
	vpn, count uint64,
	fileBacked bool,
	backingStart uint64,
) error {
	t.Lock()
	defer t.Unlock()

	for i := uint64(0); i < count; i++ {
		if _, found := t.entriesTable[vpn+i]; found {
			return fmt.Errorf("%w: page %d is already mapped",
				ErrDoubleReservation, vpn+i)
		}
	}

	for i := uint64(0); i < count; i++ {
		page := Page{
			VPN:        vpn + i,
			FileBacked: fileBacked,
		}
		if fileBacked {
			page.BackingPage = backingStart + i
		}

		elem := t.entries.PushBack(page)
		t.entriesTable[page.VPN] = elem
	}

	return nil
}

func (t *pageTableImpl) Find(vpn uint64) (Page, bool) {
	t.Lock()
	defer t.Unlock()

	elem, found := t.entriesTable[vpn]
	if found {
		return elem.Value.(Page), true
	}

	return Page{}, false
}

func (t *pageTableImpl) Update(page Page) {
	t.Lock()
	defer t.Unlock()

	t.pageMustExist(page.VPN)

	elem := t.entriesTable[page.VPN]
	elem.Value = page
}

func (t *pageTableImpl) Remove(vpn uint64) {
	t.Lock()
	defer t.Unlock()

	t.pageMustExist(vpn)

	elem := t.entriesTable[vpn]
	t.entries.Remove(elem)
	delete(t.entriesTable, vpn)
}

func (t *pageTableImpl) Resident() []Page {
	t.Lock()
	defer t.Unlock()

	var pages []Page
	for elem := t.entries.Front(); elem != nil; elem = elem.Next() {
		page := elem.Value.(Page)
		if page.Present {
			pages = append(pages, page)
		}
	}

	sort.Slice(pages, func(i, j int) bool {
		return pages[i].VPN < pages[j].VPN
	})

	return pages
}

func (t *pageTableImpl) All() []Page {
	t.Lock()
	defer t.Unlock()

	pages := make([]Page, 0, t.entries.Len())
	for elem := t.entries.Front(); elem != nil; elem = elem.Next() {
		pages = append(pages, elem.Value.(Page))
	}

	sort.Slice(pages, func(i, j int) bool {
		return pages[i].VPN < pages[j].VPN
	})

	return pages
}

func (t *pageTableImpl) pageMustExist(vpn uint64) {
	if _, found := t.entriesTable[vpn]; !found {
		panic("page does not exist")
	}
}
