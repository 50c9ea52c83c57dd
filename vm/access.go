package vm

// AccessKind tells whether a memory access reads or writes.
type AccessKind int

// The two kinds of memory access.
const (
	AccessRead AccessKind = iota
	AccessWrite
)

func (k AccessKind) String() string {
	if k == AccessWrite {
		return "write"
	}

	return "read"
}
