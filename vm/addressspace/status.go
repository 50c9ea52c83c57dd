package addressspace

import "github.com/sarchlab/vmsim/vm"

// PageState names where the content of a mapped page currently lives.
type PageState string

// The externally visible page states.
const (
	StateReserved PageState = "reserved"
	StateResident PageState = "resident"
	StateInSwap   PageState = "swapped"
	StateOnFile   PageState = "file"
)

// A PageStatus is a read-only snapshot of one page-table entry.
type PageStatus struct {
	VPN         uint64    `json:"vpn"`
	State       PageState `json:"state"`
	Frame       uint64    `json:"frame,omitempty"`
	SwapSlot    uint64    `json:"swap_slot,omitempty"`
	BackingPage uint64    `json:"backing_page,omitempty"`
	FileBacked  bool      `json:"file_backed"`
	Dirty       bool      `json:"dirty"`
	Accessed    bool      `json:"accessed"`
	LastAccess  uint64    `json:"last_access"`
}

// A Status is a read-only snapshot of an address space and the physical
// resources behind it.
type Status struct {
	Name           string       `json:"name"`
	PageSize       uint64       `json:"page_size"`
	NextAddress    uint64       `json:"next_address"`
	FreeFrames     int          `json:"free_frames"`
	TotalFrames    int          `json:"total_frames"`
	FreeSwapSlots  int          `json:"free_swap_slots"`
	TotalSwapSlots int          `json:"total_swap_slots"`
	Pages          []PageStatus `json:"pages"`
}

// Status reports the residency of every mapped page plus the resource
// counters.
func (c *Comp) Status() Status {
	s := Status{
		Name:           c.name,
		PageSize:       c.pageSize,
		NextAddress:    c.nextVAddr,
		FreeFrames:     c.manager.Frames().FreeCount(),
		TotalFrames:    c.manager.Frames().FrameCount(),
		FreeSwapSlots:  c.manager.Swap().FreeSlots(),
		TotalSwapSlots: c.manager.Swap().SlotCount(),
	}

	for _, page := range c.manager.PageTable().All() {
		s.Pages = append(s.Pages, pageStatus(page))
	}

	return s
}

func pageStatus(page vm.Page) PageStatus {
	ps := PageStatus{
		VPN:         page.VPN,
		State:       stateOf(page),
		Frame:       page.Frame,
		SwapSlot:    page.SwapSlot,
		BackingPage: page.BackingPage,
		FileBacked:  page.FileBacked,
		Dirty:       page.Dirty,
		Accessed:    page.Accessed,
		LastAccess:  page.LastAccess,
	}

	return ps
}

func stateOf(page vm.Page) PageState {
	switch {
	case page.Present:
		return StateResident
	case page.InSwap:
		return StateInSwap
	case page.FileBacked && page.Accessed:
		return StateOnFile
	default:
		return StateReserved
	}
}
