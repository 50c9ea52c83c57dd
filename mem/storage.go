// Package mem provides the physical storage media of the virtual memory
// simulator, including the main memory frame pool, the swap space, and the
// simulated disk.
package mem

import "fmt"

// A Storage keeps the data of a simulated storage medium.
//
// A Storage is an abstraction over different types of media, including main
// memory, swap space, and disks. It manages data in page-sized units. Units
// that are never touched by Read or Write do not occupy host memory.
type Storage struct {
	unitSize uint64
	capacity uint64
	data     map[uint64][]byte
}

// NewStorage creates a Storage with the given capacity in bytes, using the
// default 4096-byte unit size.
func NewStorage(capacity uint64) *Storage {
	return &Storage{
		unitSize: 4096,
		capacity: capacity,
		data:     make(map[uint64][]byte),
	}
}

// NewStorageWithUnitSize creates a Storage with the given capacity in bytes
// and an explicit unit size.
func NewStorageWithUnitSize(capacity, unitSize uint64) *Storage {
	if unitSize == 0 {
		panic("storage unit size must be positive")
	}

	return &Storage{
		unitSize: unitSize,
		capacity: capacity,
		data:     make(map[uint64][]byte),
	}
}

// Capacity returns the total number of bytes the storage can hold.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

func (s *Storage) unit(address uint64) ([]byte, error) {
	if address >= s.capacity {
		return nil, fmt.Errorf(
			"address 0x%x is beyond the storage capacity 0x%x",
			address, s.capacity)
	}

	baseAddr, _ := s.parseAddress(address)
	u, ok := s.data[baseAddr]
	if !ok {
		u = make([]byte, s.unitSize)
		s.data[baseAddr] = u
	}

	return u, nil
}

func (s *Storage) parseAddress(addr uint64) (baseAddr, inUnitAddr uint64) {
	inUnitAddr = addr % s.unitSize
	baseAddr = addr - inUnitAddr
	return
}

// Read returns n bytes starting at the given address.
func (s *Storage) Read(address, n uint64) ([]byte, error) {
	if address+n > s.capacity {
		return nil, fmt.Errorf(
			"reading [0x%x, 0x%x) exceeds the storage capacity 0x%x",
			address, address+n, s.capacity)
	}

	res := make([]byte, n)
	currAddr := address
	offset := uint64(0)

	for offset < n {
		u, err := s.unit(currAddr)
		if err != nil {
			return nil, err
		}

		_, inUnitAddr := s.parseAddress(currAddr)
		count := s.unitSize - inUnitAddr
		if n-offset < count {
			count = n - offset
		}

		copy(res[offset:offset+count], u[inUnitAddr:inUnitAddr+count])
		offset += count
		currAddr += count
	}

	return res, nil
}

// Write stores data starting at the given address.
func (s *Storage) Write(address uint64, data []byte) error {
	n := uint64(len(data))
	if address+n > s.capacity {
		return fmt.Errorf(
			"writing [0x%x, 0x%x) exceeds the storage capacity 0x%x",
			address, address+n, s.capacity)
	}

	currAddr := address
	offset := uint64(0)

	for offset < n {
		u, err := s.unit(currAddr)
		if err != nil {
			return err
		}

		_, inUnitAddr := s.parseAddress(currAddr)
		count := s.unitSize - inUnitAddr
		if n-offset < count {
			count = n - offset
		}

		copy(u[inUnitAddr:inUnitAddr+count], data[offset:offset+count])
		offset += count
		currAddr += count
	}

	return nil
}
