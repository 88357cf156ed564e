package buffer

import (
	"bufmgr/file"

	"github.com/puzpuzpuz/xsync/v3"
)

// pageKey identifies a page by the identity of its file and its number within that file.
type pageKey struct {
	file   file.File
	pageNo file.PageNo
}

// pageTable maps resident pages to the frames holding them.
// A lookup miss is reported through the boolean result and is an ordinary outcome.
type pageTable struct {
	entries *xsync.MapOf[pageKey, FrameID]
}

func newPageTable(numFrames int) *pageTable {
	return &pageTable{
		entries: xsync.NewMapOfPresized[pageKey, FrameID](numFrames),
	}
}

func (pt *pageTable) insert(f file.File, pageNo file.PageNo, frameNo FrameID) {
	pt.entries.Store(pageKey{file: f, pageNo: pageNo}, frameNo)
}

func (pt *pageTable) lookup(f file.File, pageNo file.PageNo) (FrameID, bool) {
	return pt.entries.Load(pageKey{file: f, pageNo: pageNo})
}

// remove deletes the entry and reports whether it existed.
func (pt *pageTable) remove(f file.File, pageNo file.PageNo) bool {
	_, existed := pt.entries.LoadAndDelete(pageKey{file: f, pageNo: pageNo})
	return existed
}

func (pt *pageTable) size() int {
	return pt.entries.Size()
}

func (pt *pageTable) reset() {
	pt.entries.Clear()
}
