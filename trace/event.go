// Package trace provides tracers that can record the paging activity of a
// memory manager.
package trace

// EventKind names one kind of paging activity.
type EventKind string

// The paging events a memory manager reports.
const (
	EventPageFault EventKind = "page_fault"
	EventZeroFill  EventKind = "zero_fill"
	EventSwapIn    EventKind = "swap_in"
	EventSwapOut   EventKind = "swap_out"
	EventFileRead  EventKind = "file_read"
	EventWriteBack EventKind = "write_back"
	EventEvict     EventKind = "evict"
	EventMap       EventKind = "map"
	EventUnmap     EventKind = "unmap"
)

// An Event describes one paging action on one virtual page.
type Event struct {
	Kind  EventKind
	VPN   uint64
	Frame uint64
	Slot  uint64
	Page  uint64
	Clock uint64
}

// A Tracer consumes paging events as they happen.
type Tracer interface {
	Trace(e Event)
}
