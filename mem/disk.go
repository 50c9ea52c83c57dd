package mem

import (
	"errors"
	"fmt"
)

// A PageStore is a page-addressable store that can back file mappings. The
// page index space is independent of virtual page numbers.
type PageStore interface {
	ReadPage(index uint64) ([]byte, error)
	WritePage(index uint64, data []byte) error
}

// A FileEntry records where a file lives on a Disk.
type FileEntry struct {
	Name      string
	StartPage uint64
	PageCount uint64
	Size      uint64
}

// A Disk is a fixed-size page-addressable store for file-backed mappings.
//
// Besides the raw page interface, a Disk keeps a flat catalog of files laid
// out on consecutive pages, so that a driver can create content and map it
// without caring about disk geometry.
type Disk struct {
	pageSize  uint64
	pageCount uint64
	storage   *Storage

	files        map[string]FileEntry
	nextFreePage uint64
}

// NewDisk creates a Disk with pageCount pages of pageSize bytes each.
func NewDisk(pageCount int, pageSize uint64) *Disk {
	return &Disk{
		pageSize:  pageSize,
		pageCount: uint64(pageCount),
		storage: NewStorageWithUnitSize(
			uint64(pageCount)*pageSize, pageSize),
		files: make(map[string]FileEntry),
	}
}

// PageCount returns the total number of pages on the disk.
func (d *Disk) PageCount() uint64 {
	return d.pageCount
}

// ReadPage returns the full content of a disk page.
func (d *Disk) ReadPage(index uint64) ([]byte, error) {
	if index >= d.pageCount {
		return nil, fmt.Errorf("disk page %d out of range", index)
	}

	return d.storage.Read(index*d.pageSize, d.pageSize)
}

// WritePage replaces the full content of a disk page. The data must be
// exactly one page long.
func (d *Disk) WritePage(index uint64, data []byte) error {
	if index >= d.pageCount {
		return fmt.Errorf("disk page %d out of range", index)
	}

	if uint64(len(data)) != d.pageSize {
		panic("data must be exactly one page")
	}

	return d.storage.Write(index*d.pageSize, data)
}

// CreateFile lays the content onto consecutive free pages and records it in
// the catalog. The last page is zero-padded.
func (d *Disk) CreateFile(name string, content []byte) (FileEntry, error) {
	if _, ok := d.files[name]; ok {
		return FileEntry{}, fmt.Errorf("file %q already exists", name)
	}

	size := uint64(len(content))
	pagesNeeded := (size + d.pageSize - 1) / d.pageSize
	if pagesNeeded == 0 {
		return FileEntry{}, errors.New("cannot create an empty file")
	}

	if d.nextFreePage+pagesNeeded > d.pageCount {
		return FileEntry{}, fmt.Errorf(
			"disk full: file %q needs %d pages, %d left",
			name, pagesNeeded, d.pageCount-d.nextFreePage)
	}

	entry := FileEntry{
		Name:      name,
		StartPage: d.nextFreePage,
		PageCount: pagesNeeded,
		Size:      size,
	}

	err := d.storage.Write(entry.StartPage*d.pageSize, content)
	if err != nil {
		return FileEntry{}, err
	}

	d.files[name] = entry
	d.nextFreePage += pagesNeeded

	return entry, nil
}

// Lookup returns the catalog entry for a file. The bool return value
// indicates whether the file exists.
func (d *Disk) Lookup(name string) (FileEntry, bool) {
	entry, ok := d.files[name]
	return entry, ok
}
