package vm

import "errors"

// ErrSegmentationFault is returned when an access touches a virtual address
// that has no reservation. The address space stays usable after it.
var ErrSegmentationFault = errors.New("segmentation fault")

// ErrDoubleReservation is returned when a mapping overlaps a virtual range
// that is already reserved.
var ErrDoubleReservation = errors.New("double reservation")

// ErrUnalignedAddress is returned when a map or unmap request is not aligned
// to the page size. It is reported before any state changes.
var ErrUnalignedAddress = errors.New("unaligned address")

// ErrCrossesPageBoundary is returned when a single read or write call spans
// more than one page. Callers split such accesses at page boundaries.
var ErrCrossesPageBoundary = errors.New("access crosses a page boundary")
