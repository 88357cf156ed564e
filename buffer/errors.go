package buffer

import (
	"errors"
	"fmt"

	"bufmgr/file"
)

var (
	// ErrBufferExceeded means every frame is pinned and none can be reclaimed.
	ErrBufferExceeded = errors.New("buffer pool exceeded: all frames are pinned")
	// ErrPageNotPinned means an unpin was requested for a page with no pins.
	ErrPageNotPinned = errors.New("page is not pinned")
	// ErrPagePinned means a file cannot be flushed while some of its pages are pinned.
	ErrPagePinned = errors.New("page is pinned")
	// ErrBadBuffer means a frame claims a file but is not valid.
	ErrBadBuffer        = errors.New("bad buffer")
	ErrClosed           = errors.New("buffer manager is closed")
	ErrInvalidPoolSize  = errors.New("invalid pool size")
	ErrPageSizeMismatch = errors.New("file page size does not match buffer pool page size")
)

// PageNotPinnedError reports an unpin of a resident page whose pin count is already zero.
type PageNotPinnedError struct {
	Filename string
	PageNo   file.PageNo
	FrameNo  FrameID
}

func (e *PageNotPinnedError) Error() string {
	return fmt.Sprintf("%v: file %s page %d frame %d", ErrPageNotPinned, e.Filename, e.PageNo, e.FrameNo)
}

func (e *PageNotPinnedError) Is(target error) bool {
	return target == ErrPageNotPinned
}

// PagePinnedError reports a pinned page found while flushing its file.
type PagePinnedError struct {
	Filename string
	PageNo   file.PageNo
	FrameNo  FrameID
}

func (e *PagePinnedError) Error() string {
	return fmt.Sprintf("%v: file %s page %d frame %d", ErrPagePinned, e.Filename, e.PageNo, e.FrameNo)
}

func (e *PagePinnedError) Is(target error) bool {
	return target == ErrPagePinned
}

// BadBufferError carries the state of a frame found inconsistent.
type BadBufferError struct {
	FrameNo FrameID
	Dirty   bool
	Valid   bool
	RefBit  bool
}

func (e *BadBufferError) Error() string {
	return fmt.Sprintf("%v: frame %d dirty:%t valid:%t refbit:%t", ErrBadBuffer, e.FrameNo, e.Dirty, e.Valid, e.RefBit)
}

func (e *BadBufferError) Is(target error) bool {
	return target == ErrBadBuffer
}
