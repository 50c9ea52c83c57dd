package trace

import (
	"log"

	"github.com/rs/xid"

	"github.com/sarchlab/vmsim/datarecording"
)

// A logTracer writes one line per paging event into a standard logger.
type logTracer struct {
	logger *log.Logger
}

// NewTracer creates a Tracer that writes paging events into the given
// logger, one comma-separated line per event.
func NewTracer(logger *log.Logger) Tracer {
	return &logTracer{logger: logger}
}

func (t *logTracer) Trace(e Event) {
	t.logger.Printf("%s, clock %d, vpn 0x%x, frame %d, slot %d, page %d\n",
		e.Kind, e.Clock, e.VPN, e.Frame, e.Slot, e.Page)
}

// pagingEventEntry represents a paging event in the database.
type pagingEventEntry struct {
	ID    string
	Kind  string
	VPN   uint64
	Frame uint64
	Slot  uint64
	Page  uint64
	Clock uint64
}

// pagingEventTable is the table DB tracers record into.
const pagingEventTable = "paging_events"

// A dbTracer records paging events with a data recorder.
type dbTracer struct {
	recorder datarecording.DataRecorder
}

// NewDBTracer creates a Tracer that records paging events with the given
// data recorder. It creates the paging_events table.
func NewDBTracer(recorder datarecording.DataRecorder) Tracer {
	recorder.CreateTable(pagingEventTable, pagingEventEntry{})

	return &dbTracer{recorder: recorder}
}

func (t *dbTracer) Trace(e Event) {
	t.recorder.InsertData(pagingEventTable, pagingEventEntry{
		ID:    xid.New().String(),
		Kind:  string(e.Kind),
		VPN:   e.VPN,
		Frame: e.Frame,
		Slot:  e.Slot,
		Page:  e.Page,
		Clock: e.Clock,
	})
}
