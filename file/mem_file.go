package file

import (
	"fmt"
	"sync"
)

// MemFile is a File kept entirely in memory. It counts reads and writes per page, which makes it
// convenient for observing the I/O a buffer manager performs.
type MemFile struct {
	name     string
	pageSize int
	mu       sync.RWMutex
	pages    map[PageNo][]byte
	free     []PageNo
	nextPage PageNo
	reads    map[PageNo]int
	writes   map[PageNo]int
}

var _ File = (*MemFile)(nil)

func NewMemFile(name string, pageSize int) *MemFile {
	return &MemFile{
		name:     name,
		pageSize: pageSize,
		pages:    make(map[PageNo][]byte),
		nextPage: 1,
		reads:    make(map[PageNo]int),
		writes:   make(map[PageNo]int),
	}
}

func (mf *MemFile) Filename() string {
	return mf.name
}

func (mf *MemFile) PageSize() int {
	return mf.pageSize
}

func (mf *MemFile) ReadPage(pageNo PageNo, p *Page) error {
	mf.mu.Lock()
	defer mf.mu.Unlock()

	if p.Size() != mf.pageSize {
		return fmt.Errorf("cannot read %s of %s: %w", pageNo, mf.name, ErrPageSizeMismatch)
	}
	data, ok := mf.pages[pageNo]
	if !ok {
		return fmt.Errorf("cannot read %s of %s: %w", pageNo, mf.name, ErrInvalidPage)
	}
	copy(p.buffer, data)
	p.number = pageNo
	mf.reads[pageNo]++
	return nil
}

func (mf *MemFile) WritePage(p *Page) error {
	mf.mu.Lock()
	defer mf.mu.Unlock()

	if p.Size() != mf.pageSize {
		return fmt.Errorf("cannot write %s of %s: %w", p.number, mf.name, ErrPageSizeMismatch)
	}
	data, ok := mf.pages[p.number]
	if !ok {
		return fmt.Errorf("cannot write %s of %s: %w", p.number, mf.name, ErrInvalidPage)
	}
	copy(data, p.buffer)
	mf.writes[p.number]++
	return nil
}

func (mf *MemFile) AllocatePage() (PageNo, error) {
	mf.mu.Lock()
	defer mf.mu.Unlock()

	var pageNo PageNo
	if n := len(mf.free); n > 0 {
		pageNo = mf.free[n-1]
		mf.free = mf.free[:n-1]
	} else {
		pageNo = mf.nextPage
		mf.nextPage++
	}
	mf.pages[pageNo] = make([]byte, mf.pageSize)
	return pageNo, nil
}

func (mf *MemFile) DeletePage(pageNo PageNo) error {
	mf.mu.Lock()
	defer mf.mu.Unlock()

	if _, ok := mf.pages[pageNo]; !ok {
		return fmt.Errorf("cannot delete %s of %s: %w", pageNo, mf.name, ErrInvalidPage)
	}
	delete(mf.pages, pageNo)
	mf.free = append(mf.free, pageNo)
	return nil
}

// Reads returns how many times pageNo has been read.
func (mf *MemFile) Reads(pageNo PageNo) int {
	mf.mu.RLock()
	defer mf.mu.RUnlock()
	return mf.reads[pageNo]
}

// Writes returns how many times pageNo has been written.
func (mf *MemFile) Writes(pageNo PageNo) int {
	mf.mu.RLock()
	defer mf.mu.RUnlock()
	return mf.writes[pageNo]
}

// TotalWrites returns the number of page writes across all pages.
func (mf *MemFile) TotalWrites() int {
	mf.mu.RLock()
	defer mf.mu.RUnlock()

	total := 0
	for _, n := range mf.writes {
		total += n
	}
	return total
}

// Contents returns a copy of the stored bytes of pageNo, or nil if the page is not allocated.
func (mf *MemFile) Contents(pageNo PageNo) []byte {
	mf.mu.RLock()
	defer mf.mu.RUnlock()

	data, ok := mf.pages[pageNo]
	if !ok {
		return nil
	}
	return append([]byte(nil), data...)
}
