package mem

import "errors"

// ErrNoFreeFrame is returned when the frame pool has no free frame left.
var ErrNoFreeFrame = errors.New("no free frame")

// NoOwner marks a frame that is not owned by any virtual page.
const NoOwner = ^uint64(0)

// A FramePool manages a fixed pool of physical page frames.
//
// Each frame holds exactly one page of data and is owned by at most one
// virtual page at a time. The pool keeps the owner back-reference by frame
// index so that the eviction logic can walk all resident pages without
// chasing pointers. The pool never grows.
type FramePool struct {
	pageSize uint64
	storage  *Storage
	owners   []uint64
	free     int
}

// NewFramePool creates a FramePool with frameCount frames of pageSize bytes
// each.
func NewFramePool(frameCount int, pageSize uint64) *FramePool {
	p := &FramePool{
		pageSize: pageSize,
		storage:  NewStorageWithUnitSize(uint64(frameCount)*pageSize, pageSize),
		owners:   make([]uint64, frameCount),
		free:     frameCount,
	}

	for i := range p.owners {
		p.owners[i] = NoOwner
	}

	return p
}

// FrameCount returns the total number of frames in the pool.
func (p *FramePool) FrameCount() int {
	return len(p.owners)
}

// FreeCount returns the number of frames that are not allocated.
func (p *FramePool) FreeCount() int {
	return p.free
}

// Allocate claims the lowest-indexed free frame for the given virtual page.
// It returns ErrNoFreeFrame when the pool is exhausted.
func (p *FramePool) Allocate(owner uint64) (uint64, error) {
	if owner == NoOwner {
		panic("cannot allocate a frame without an owner")
	}

	for i := range p.owners {
		if p.owners[i] == NoOwner {
			p.owners[i] = owner
			p.free--
			return uint64(i), nil
		}
	}

	return 0, ErrNoFreeFrame
}

// Free releases a frame and clears its owner back-reference.
func (p *FramePool) Free(frame uint64) {
	p.mustBeValid(frame)

	if p.owners[frame] == NoOwner {
		panic("freeing a frame that is not allocated")
	}

	p.owners[frame] = NoOwner
	p.free++
}

// OwnerOf returns the virtual page number that owns the frame. The bool
// return value indicates whether the frame is allocated.
func (p *FramePool) OwnerOf(frame uint64) (uint64, bool) {
	p.mustBeValid(frame)

	owner := p.owners[frame]
	if owner == NoOwner {
		return 0, false
	}

	return owner, true
}

// ReadFrame returns the full content of a frame.
func (p *FramePool) ReadFrame(frame uint64) ([]byte, error) {
	p.mustBeValid(frame)
	return p.storage.Read(frame*p.pageSize, p.pageSize)
}

// WriteFrame replaces the full content of a frame. The data must be exactly
// one page long.
func (p *FramePool) WriteFrame(frame uint64, data []byte) error {
	p.mustBeValid(frame)
	p.mustBePageSized(data)
	return p.storage.Write(frame*p.pageSize, data)
}

// Read returns n bytes starting at the given offset within a frame. The
// range must not run past the end of the frame.
func (p *FramePool) Read(frame, offset, n uint64) ([]byte, error) {
	p.mustBeValid(frame)

	if offset+n > p.pageSize {
		return nil, errors.New("read range exceeds the frame")
	}

	return p.storage.Read(frame*p.pageSize+offset, n)
}

// Write stores data at the given offset within a frame. The range must not
// run past the end of the frame.
func (p *FramePool) Write(frame, offset uint64, data []byte) error {
	p.mustBeValid(frame)

	if offset+uint64(len(data)) > p.pageSize {
		return errors.New("write range exceeds the frame")
	}

	return p.storage.Write(frame*p.pageSize+offset, data)
}

func (p *FramePool) mustBeValid(frame uint64) {
	if frame >= uint64(len(p.owners)) {
		panic("frame index out of range")
	}
}

func (p *FramePool) mustBePageSized(data []byte) {
	if uint64(len(data)) != p.pageSize {
		panic("data must be exactly one page")
	}
}
