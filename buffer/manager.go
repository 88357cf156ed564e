package buffer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"bufmgr/file"

	"github.com/dustin/go-humanize"
)

// Manager caches pages of files in a fixed number of frames. Pages are pinned while in use and
// unpinned when the caller is done with them; unpinned pages are reclaimed with the clock
// (second chance) policy, writing dirty pages back to their file first.
//
// Pages returned by ReadPage and AllocPage point into the pool. They stay valid only until the
// matching UnpinPage; using a page after its last unpin is a caller error, since the frame may
// be handed to another page at any time.
//
// All methods are serialized by a single mutex.
type Manager struct {
	numFrames int
	pageSize  int
	frames    []frame
	pool      []file.Page
	table     *pageTable
	clockHand int
	scratch   *file.Page
	stats     Stats
	logger    *slog.Logger
	mu        sync.Mutex
	closed    bool
}

// NewManager creates a buffer pool of numFrames frames. All frames start out unmapped.
func NewManager(numFrames int, opts ...Option) (*Manager, error) {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if numFrames <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPoolSize, numFrames)
	}
	if config.PageSize <= 0 {
		return nil, fmt.Errorf("%w: %d", file.ErrInvalidPageSize, config.PageSize)
	}

	m := &Manager{
		numFrames: numFrames,
		pageSize:  config.PageSize,
		frames:    make([]frame, numFrames),
		pool:      make([]file.Page, numFrames),
		table:     newPageTable(numFrames),
		clockHand: numFrames - 1,
		scratch:   file.NewPage(config.PageSize),
		logger:    config.Logger,
	}

	// The pool is one contiguous allocation sliced into frames.
	backing := make([]byte, numFrames*config.PageSize)
	for i := range m.frames {
		m.frames[i].frameNo = FrameID(i)
		m.frames[i].clear()
		lo, hi := i*config.PageSize, (i+1)*config.PageSize
		m.pool[i] = *file.NewPageFromBytes(file.InvalidPageNo, backing[lo:hi:hi])
	}

	m.logger.Info("buffer pool created",
		"frames", numFrames,
		"pageSize", humanize.IBytes(uint64(config.PageSize)),
		"poolSize", humanize.IBytes(uint64(len(backing))))
	return m, nil
}

// ReadPage returns the page pageNo of f pinned in the pool, reading it from f on a miss.
// Every successful call adds exactly one pin.
func (m *Manager) ReadPage(f file.File, pageNo file.PageNo) (*file.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	if frameNo, ok := m.table.lookup(f, pageNo); ok {
		fr := &m.frames[frameNo]
		fr.pinCount++
		fr.refBit = true
		m.stats.Hits++
		return &m.pool[frameNo], nil
	}

	if err := m.checkFile(f); err != nil {
		return nil, err
	}
	m.stats.Misses++
	if err := f.ReadPage(pageNo, m.scratch); err != nil {
		return nil, fmt.Errorf("cannot read page %d of %s: %w", pageNo, f.Filename(), err)
	}
	frameNo, err := m.allocFrame()
	if err != nil {
		return nil, err
	}

	m.pool[frameNo].CopyFrom(m.scratch)
	m.pool[frameNo].SetNumber(pageNo)
	m.table.insert(f, pageNo, frameNo)
	m.frames[frameNo].set(f, pageNo)
	return &m.pool[frameNo], nil
}

// UnpinPage releases one pin on the page. If dirty is set the page is marked dirty; a dirty page
// stays dirty until it is written back. Unpinning a page that is not resident does nothing.
func (m *Manager) UnpinPage(f file.File, pageNo file.PageNo, dirty bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	frameNo, ok := m.table.lookup(f, pageNo)
	if !ok {
		return nil
	}
	fr := &m.frames[frameNo]
	if !fr.isPinned() {
		return &PageNotPinnedError{Filename: f.Filename(), PageNo: pageNo, FrameNo: frameNo}
	}
	fr.pinCount--
	if dirty {
		fr.dirty = true
	}
	return nil
}

// AllocPage allocates a new page in f and returns its number together with the page, pinned once.
// If no frame can be freed, the page is deleted from f again and ErrBufferExceeded is returned.
func (m *Manager) AllocPage(f file.File) (file.PageNo, *file.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return file.InvalidPageNo, nil, ErrClosed
	}
	if err := m.checkFile(f); err != nil {
		return file.InvalidPageNo, nil, err
	}

	pageNo, err := f.AllocatePage()
	if err != nil {
		return file.InvalidPageNo, nil, fmt.Errorf("cannot allocate page in %s: %w", f.Filename(), err)
	}
	frameNo, err := m.allocFrame()
	if err != nil {
		return file.InvalidPageNo, nil, releasePage(f, pageNo, err)
	}

	page := &m.pool[frameNo]
	if err := f.ReadPage(pageNo, page); err != nil {
		page.Clear()
		err = fmt.Errorf("cannot read new page %d of %s: %w", pageNo, f.Filename(), err)
		return file.InvalidPageNo, nil, releasePage(f, pageNo, err)
	}
	m.table.insert(f, pageNo, frameNo)
	m.frames[frameNo].set(f, pageNo)
	return pageNo, page, nil
}

// releasePage deletes a page allocated by a failed AllocPage and joins any failure to err.
func releasePage(f file.File, pageNo file.PageNo, err error) error {
	if delErr := f.DeletePage(pageNo); delErr != nil {
		err = errors.Join(err, fmt.Errorf("cannot release page %d of %s: %w", pageNo, f.Filename(), delErr))
	}
	return err
}

// DisposePage deletes the page from f. A resident copy is dropped without being written back,
// even if it is pinned or dirty.
func (m *Manager) DisposePage(f file.File, pageNo file.PageNo) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	if frameNo, ok := m.table.lookup(f, pageNo); ok {
		m.frames[frameNo].clear()
		m.pool[frameNo].Clear()
		m.table.remove(f, pageNo)
	}
	if err := f.DeletePage(pageNo); err != nil {
		return fmt.Errorf("cannot delete page %d of %s: %w", pageNo, f.Filename(), err)
	}
	return nil
}

// FlushFile writes back the dirty pages of f and drops all of f's pages from the pool.
// Every page of f must be unpinned. Frames are processed in ascending order and frames
// processed before a failure stay flushed.
func (m *Manager) FlushFile(f file.File) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	for i := range m.frames {
		fr := &m.frames[i]
		if fr.file != f {
			continue
		}
		if fr.isPinned() {
			return &PagePinnedError{Filename: f.Filename(), PageNo: fr.pageNo, FrameNo: fr.frameNo}
		}
		if !fr.valid {
			return &BadBufferError{FrameNo: fr.frameNo, Dirty: fr.dirty, Valid: fr.valid, RefBit: fr.refBit}
		}
		if fr.dirty {
			if err := m.writeBack(fr); err != nil {
				return err
			}
		}
		m.table.remove(f, fr.pageNo)
		fr.clear()
	}
	return nil
}

// FlushAll writes back every dirty page without evicting anything. Pinned pages are written too.
func (m *Manager) FlushAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	for i := range m.frames {
		fr := &m.frames[i]
		if fr.valid && fr.dirty {
			if err := m.writeBack(fr); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close writes back every dirty page, pinned or not, and releases the pool. Write-back failures
// are collected and returned together. The Manager cannot be used afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	var err error
	for i := range m.frames {
		fr := &m.frames[i]
		if !fr.dirty {
			continue
		}
		if e := m.writeBack(fr); e != nil {
			m.logger.Warn("write-back failed during close", "frame", fr.frameNo, "error", e)
			err = errors.Join(err, e)
		}
	}

	m.table.reset()
	m.frames = nil
	m.pool = nil
	m.scratch = nil
	m.closed = true
	m.logger.Info("buffer pool closed", "writeBacks", m.stats.WriteBacks)
	return err
}

// Available returns the number of unpinned frames.
func (m *Manager) Available() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	available := 0
	for i := range m.frames {
		if !m.frames[i].isPinned() {
			available++
		}
	}
	return available
}

// NumFrames returns the size of the pool in frames.
func (m *Manager) NumFrames() int {
	return m.numFrames
}

// PageSize returns the size of every frame in bytes.
func (m *Manager) PageSize() int {
	return m.pageSize
}

// allocFrame runs the clock over the pool and returns a frame that holds no page.
// The hand makes at most two sweeps: the first clears reference bits, the second then finds any
// unpinned frame. A sweep in which every frame is pinned fails with ErrBufferExceeded.
// This method is not thread-safe.
func (m *Manager) allocFrame() (FrameID, error) {
	for sweep := 0; sweep < 2; sweep++ {
		pinned := 0
		for i := 0; i < m.numFrames; i++ {
			m.advanceClock()
			fr := &m.frames[m.clockHand]

			if !fr.valid {
				return fr.frameNo, nil
			}
			if fr.isPinned() {
				pinned++
			}
			if fr.refBit {
				fr.refBit = false
				continue
			}
			if fr.isPinned() {
				continue
			}

			if err := m.evict(fr); err != nil {
				return -1, err
			}
			return fr.frameNo, nil
		}
		if pinned == m.numFrames {
			return -1, ErrBufferExceeded
		}
	}
	return -1, ErrBufferExceeded
}

func (m *Manager) advanceClock() {
	m.clockHand = (m.clockHand + 1) % m.numFrames
}

// evict writes fr back if dirty and unmaps it. On a failed write-back fr keeps its page.
func (m *Manager) evict(fr *frame) error {
	if fr.dirty {
		if err := m.writeBack(fr); err != nil {
			return err
		}
	}
	m.logger.Debug("evicting page", "frame", fr.frameNo, "file", fr.filename(), "page", fr.pageNo)
	m.table.remove(fr.file, fr.pageNo)
	fr.clear()
	m.stats.Evictions++
	return nil
}

// writeBack writes the frame's page to its file and clears the dirty flag.
// The page goes to the number the frame holds, whatever number the caller left on the pool page.
func (m *Manager) writeBack(fr *frame) error {
	page := &m.pool[fr.frameNo]
	page.SetNumber(fr.pageNo)
	if err := fr.file.WritePage(page); err != nil {
		return fmt.Errorf("cannot write back page %d of %s from frame %d: %w", fr.pageNo, fr.filename(), fr.frameNo, err)
	}
	fr.dirty = false
	m.stats.WriteBacks++
	return nil
}

func (m *Manager) checkFile(f file.File) error {
	if f.PageSize() != m.pageSize {
		return fmt.Errorf("%w: %s uses %d bytes, pool uses %d", ErrPageSizeMismatch, f.Filename(), f.PageSize(), m.pageSize)
	}
	return nil
}
