package buffer

import (
	"fmt"

	"bufmgr/file"
)

// FrameID is the index of a frame in the buffer pool.
type FrameID int

/*
frame describes the buffer pool slot with the same index. It records which page of which file
the slot holds, how many holders have it pinned, whether its contents differ from the file and
whether the clock hand should give it a second chance.
An invalid frame is unmapped: no file, no pins, not dirty.
*/
type frame struct {
	frameNo  FrameID
	file     file.File
	pageNo   file.PageNo
	pinCount int
	dirty    bool
	valid    bool
	refBit   bool
}

// set maps the frame to pageNo of f with a single pin.
func (fr *frame) set(f file.File, pageNo file.PageNo) {
	fr.file = f
	fr.pageNo = pageNo
	fr.pinCount = 1
	fr.dirty = false
	fr.valid = true
	fr.refBit = true
}

// clear returns the frame to the unmapped state.
func (fr *frame) clear() {
	fr.file = nil
	fr.pageNo = file.InvalidPageNo
	fr.pinCount = 0
	fr.dirty = false
	fr.valid = false
	fr.refBit = false
}

func (fr *frame) isPinned() bool {
	return fr.pinCount > 0
}

func (fr *frame) filename() string {
	if fr.file == nil {
		return "<none>"
	}
	return fr.file.Filename()
}

func (fr *frame) String() string {
	return fmt.Sprintf("file:%s pageNo:%d valid:%t pinCnt:%d dirty:%t refbit:%t",
		fr.filename(), fr.pageNo, fr.valid, fr.pinCount, fr.dirty, fr.refBit)
}
