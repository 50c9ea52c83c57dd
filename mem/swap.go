package mem

import "errors"

// ErrSwapFull is returned when the swap space has no free slot left.
var ErrSwapFull = errors.New("swap space full")

// A SwapSpace manages a fixed pool of page-sized swap slots.
//
// A slot holds the last-evicted content of one anonymous page. All transfers
// move exactly one page; partial reads or writes are not supported.
type SwapSpace struct {
	pageSize  uint64
	storage   *Storage
	allocated []bool
	free      int
}

// NewSwapSpace creates a SwapSpace with slotCount slots of pageSize bytes
// each.
func NewSwapSpace(slotCount int, pageSize uint64) *SwapSpace {
	return &SwapSpace{
		pageSize:  pageSize,
		storage:   NewStorageWithUnitSize(uint64(slotCount)*pageSize, pageSize),
		allocated: make([]bool, slotCount),
		free:      slotCount,
	}
}

// SlotCount returns the total number of slots.
func (s *SwapSpace) SlotCount() int {
	return len(s.allocated)
}

// FreeSlots returns the number of slots that are not allocated.
func (s *SwapSpace) FreeSlots() int {
	return s.free
}

// AllocateSlot claims the lowest-indexed free slot. It returns ErrSwapFull
// when all slots are taken.
func (s *SwapSpace) AllocateSlot() (uint64, error) {
	for i := range s.allocated {
		if !s.allocated[i] {
			s.allocated[i] = true
			s.free--
			return uint64(i), nil
		}
	}

	return 0, ErrSwapFull
}

// FreeSlot releases a slot.
func (s *SwapSpace) FreeSlot(slot uint64) {
	s.mustBeValid(slot)

	if !s.allocated[slot] {
		panic("freeing a swap slot that is not allocated")
	}

	s.allocated[slot] = false
	s.free++
}

// ReadSlot returns the full content of a slot.
func (s *SwapSpace) ReadSlot(slot uint64) ([]byte, error) {
	s.mustBeValid(slot)
	return s.storage.Read(slot*s.pageSize, s.pageSize)
}

// WriteSlot replaces the full content of a slot. The data must be exactly
// one page long.
func (s *SwapSpace) WriteSlot(slot uint64, data []byte) error {
	s.mustBeValid(slot)

	if uint64(len(data)) != s.pageSize {
		panic("data must be exactly one page")
	}

	return s.storage.Write(slot*s.pageSize, data)
}

func (s *SwapSpace) mustBeValid(slot uint64) {
	if slot >= uint64(len(s.allocated)) {
		panic("swap slot index out of range")
	}
}
