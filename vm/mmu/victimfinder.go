package mmu

import "github.com/sarchlab/vmsim/vm"

// A VictimFinder decides which resident page should be evicted.
type VictimFinder interface {
	FindVictim(pageTable vm.PageTable) (vm.Page, bool)
}

// LRUVictimFinder selects the least recently used resident page.
type LRUVictimFinder struct{}

// NewLRUVictimFinder returns a newly constructed LRU evictor.
func NewLRUVictimFinder() *LRUVictimFinder {
	return &LRUVictimFinder{}
}

// FindVictim returns the resident page with the smallest LastAccess value.
// Ties break toward the smallest virtual page number, so the choice is
// deterministic.
func (e *LRUVictimFinder) FindVictim(
	pageTable vm.PageTable,
) (vm.Page, bool) {
	resident := pageTable.Resident()
	if len(resident) == 0 {
		return vm.Page{}, false
	}

	// Resident pages come back ordered by VPN, so keeping the first page
	// with a strictly smaller LastAccess realizes the tie-break.
	victim := resident[0]
	for _, page := range resident[1:] {
		if page.LastAccess < victim.LastAccess {
			victim = page
		}
	}

	return victim, true
}
