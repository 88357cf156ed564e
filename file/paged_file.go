package file

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/cespare/xxhash/v2"
)

/*
On-disk layout of a paged file. The file is a sequence of equally sized slots of
slotHeaderSize+pageSize bytes. Slot 0 holds the file header:

	[0:4)   magic "BMGR"
	[4:8)   page size
	[8:12)  number of slots, header slot included
	[12:16) head of the free list (0 when empty)

Slot n > 0 holds page n:

	[0:1)   flags, slotUsed when the page is allocated
	[4:8)   next page on the free list while the page is deleted
	[8:16)  xxhash64 of the page contents
	[16:)   page contents
*/
const (
	slotHeaderSize = 16
	fileMagic      = 0x424d4752
	slotUsed       = 1
)

// PagedFile is a File stored in a Manager's directory. Deleted pages are kept on a free list
// and reused by later allocations. All methods are serialized by the owning Manager.
type PagedFile struct {
	manager  *Manager
	name     string
	numSlots uint32
	freeHead PageNo
}

var _ File = (*PagedFile)(nil)

func (pf *PagedFile) Filename() string {
	return pf.name
}

func (pf *PagedFile) PageSize() int {
	return pf.manager.pageSize
}

func (pf *PagedFile) String() string {
	return fmt.Sprintf("[file %s]", pf.name)
}

// NumPages returns the number of page slots ever handed out, including deleted ones.
func (pf *PagedFile) NumPages() int {
	pf.manager.mu.Lock()
	defer pf.manager.mu.Unlock()

	return int(pf.numSlots) - 1
}

func (pf *PagedFile) ReadPage(pageNo PageNo, p *Page) error {
	m := pf.manager
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.Size() != m.pageSize {
		return fmt.Errorf("cannot read %s of %s: %w", pageNo, pf.name, ErrPageSizeMismatch)
	}
	f, err := pf.usedSlotFile(pageNo)
	if err != nil {
		return fmt.Errorf("cannot read %s of %s: %w", pageNo, pf.name, err)
	}

	slot := make([]byte, pf.slotSize())
	if _, err := f.ReadAt(slot, pf.slotOffset(pageNo)); err != nil {
		return fmt.Errorf("cannot read %s of %s: %w", pageNo, pf.name, err)
	}
	contents := slot[slotHeaderSize:]
	if binary.BigEndian.Uint64(slot[8:16]) != xxhash.Sum64(contents) {
		return fmt.Errorf("cannot read %s of %s: %w", pageNo, pf.name, ErrChecksumMismatch)
	}

	copy(p.buffer, contents)
	p.number = pageNo
	m.pagesRead++
	return nil
}

func (pf *PagedFile) WritePage(p *Page) error {
	m := pf.manager
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.Size() != m.pageSize {
		return fmt.Errorf("cannot write %s of %s: %w", p.number, pf.name, ErrPageSizeMismatch)
	}
	f, err := pf.usedSlotFile(p.number)
	if err != nil {
		return fmt.Errorf("cannot write %s of %s: %w", p.number, pf.name, err)
	}
	if err := pf.writeSlot(f, p.number, p.buffer); err != nil {
		return fmt.Errorf("cannot write %s of %s: %w", p.number, pf.name, err)
	}
	return nil
}

func (pf *PagedFile) AllocatePage() (PageNo, error) {
	m := pf.manager
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := m.getFile(pf.name)
	if err != nil {
		return InvalidPageNo, err
	}

	numSlots, freeHead := pf.numSlots, pf.freeHead
	var pageNo PageNo
	if pf.freeHead.IsValid() {
		pageNo = pf.freeHead
		hdr, err := pf.readSlotHeader(f, pageNo)
		if err != nil {
			return InvalidPageNo, fmt.Errorf("cannot reuse %s of %s: %w", pageNo, pf.name, err)
		}
		pf.freeHead = PageNo(binary.BigEndian.Uint32(hdr[4:8]))
	} else {
		if pf.numSlots == math.MaxUint32 {
			return InvalidPageNo, fmt.Errorf("%s: %w", pf.name, ErrTooManyPages)
		}
		pageNo = PageNo(pf.numSlots)
		pf.numSlots++
	}

	if err := pf.writeSlot(f, pageNo, make([]byte, m.pageSize)); err != nil {
		pf.numSlots, pf.freeHead = numSlots, freeHead
		return InvalidPageNo, fmt.Errorf("cannot allocate %s of %s: %w", pageNo, pf.name, err)
	}
	if err := pf.writeHeader(f); err != nil {
		pf.numSlots, pf.freeHead = numSlots, freeHead
		return InvalidPageNo, err
	}
	return pageNo, nil
}

func (pf *PagedFile) DeletePage(pageNo PageNo) error {
	m := pf.manager
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := pf.usedSlotFile(pageNo)
	if err != nil {
		return fmt.Errorf("cannot delete %s of %s: %w", pageNo, pf.name, err)
	}

	hdr := make([]byte, slotHeaderSize)
	binary.BigEndian.PutUint32(hdr[4:8], uint32(pf.freeHead))
	if _, err := f.WriteAt(hdr, pf.slotOffset(pageNo)); err != nil {
		return fmt.Errorf("cannot delete %s of %s: %w", pageNo, pf.name, err)
	}
	freeHead := pf.freeHead
	pf.freeHead = pageNo
	if err := pf.writeHeader(f); err != nil {
		pf.freeHead = freeHead
		return err
	}
	return nil
}

// usedSlotFile returns the handle of the file after checking that pageNo is allocated.
func (pf *PagedFile) usedSlotFile(pageNo PageNo) (*os.File, error) {
	if !pageNo.IsValid() || uint32(pageNo) >= pf.numSlots {
		return nil, ErrInvalidPage
	}
	f, err := pf.manager.getFile(pf.name)
	if err != nil {
		return nil, err
	}
	hdr, err := pf.readSlotHeader(f, pageNo)
	if err != nil {
		return nil, err
	}
	if hdr[0] != slotUsed {
		return nil, ErrInvalidPage
	}
	return f, nil
}

func (pf *PagedFile) readSlotHeader(f *os.File, pageNo PageNo) ([]byte, error) {
	hdr := make([]byte, slotHeaderSize)
	if _, err := f.ReadAt(hdr, pf.slotOffset(pageNo)); err != nil {
		return nil, err
	}
	return hdr, nil
}

func (pf *PagedFile) writeSlot(f *os.File, pageNo PageNo, contents []byte) error {
	slot := make([]byte, pf.slotSize())
	slot[0] = slotUsed
	binary.BigEndian.PutUint64(slot[8:16], xxhash.Sum64(contents))
	copy(slot[slotHeaderSize:], contents)

	if _, err := f.WriteAt(slot, pf.slotOffset(pageNo)); err != nil {
		return err
	}
	if err := pf.sync(f); err != nil {
		return err
	}
	pf.manager.pagesWritten++
	return nil
}

// initialize writes the header slot of an empty file.
func (pf *PagedFile) initialize(f *os.File) error {
	pf.numSlots = 1
	pf.freeHead = InvalidPageNo
	if err := f.Truncate(int64(pf.slotSize())); err != nil {
		return fmt.Errorf("cannot size %s: %w", pf.name, err)
	}
	return pf.writeHeader(f)
}

// load reads and validates the header slot of an existing file.
func (pf *PagedFile) load(f *os.File) error {
	hdr := make([]byte, slotHeaderSize)
	if _, err := f.ReadAt(hdr, 0); err != nil {
		return fmt.Errorf("cannot read header of %s: %w", pf.name, err)
	}
	if binary.BigEndian.Uint32(hdr[0:4]) != fileMagic {
		return fmt.Errorf("%s: %w", pf.name, ErrBadFileHeader)
	}
	if pageSize := int(binary.BigEndian.Uint32(hdr[4:8])); pageSize != pf.manager.pageSize {
		return fmt.Errorf("%s has page size %d, want %d: %w", pf.name, pageSize, pf.manager.pageSize, ErrPageSizeMismatch)
	}
	pf.numSlots = binary.BigEndian.Uint32(hdr[8:12])
	pf.freeHead = PageNo(binary.BigEndian.Uint32(hdr[12:16]))
	if pf.numSlots == 0 || uint32(pf.freeHead) >= pf.numSlots {
		return fmt.Errorf("%s: %w", pf.name, ErrBadFileHeader)
	}
	return nil
}

func (pf *PagedFile) writeHeader(f *os.File) error {
	hdr := make([]byte, slotHeaderSize)
	binary.BigEndian.PutUint32(hdr[0:4], fileMagic)
	binary.BigEndian.PutUint32(hdr[4:8], uint32(pf.manager.pageSize))
	binary.BigEndian.PutUint32(hdr[8:12], pf.numSlots)
	binary.BigEndian.PutUint32(hdr[12:16], uint32(pf.freeHead))
	if _, err := f.WriteAt(hdr, 0); err != nil {
		return fmt.Errorf("cannot write header of %s: %w", pf.name, err)
	}
	return pf.sync(f)
}

func (pf *PagedFile) sync(f *os.File) error {
	if !pf.manager.syncWrites {
		return nil
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("cannot flush file %s to disk: %w", pf.name, err)
	}
	return nil
}

func (pf *PagedFile) slotSize() int {
	return slotHeaderSize + pf.manager.pageSize
}

func (pf *PagedFile) slotOffset(pageNo PageNo) int64 {
	return int64(pageNo) * int64(pf.slotSize())
}
