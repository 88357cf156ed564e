package buffer

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
)

// Stats counts what the Manager has done since it was created.
type Stats struct {
	Hits       int
	Misses     int
	Evictions  int
	WriteBacks int
	// ValidFrames and PinnedFrames describe the pool at the time Stats was called.
	ValidFrames  int
	PinnedFrames int
}

// Stats returns a snapshot of the counters and the current frame occupancy.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.stats
	for i := range m.frames {
		if m.frames[i].valid {
			s.ValidFrames++
		}
		if m.frames[i].isPinned() {
			s.PinnedFrames++
		}
	}
	return s
}

// PrintSelf writes the state of every frame to w, followed by the number of valid frames.
func (m *Manager) PrintSelf(w io.Writer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	if _, err := fmt.Fprintf(w, "Buffer pool: %d frames of %s (%s)\n",
		m.numFrames, humanize.IBytes(uint64(m.pageSize)), humanize.IBytes(uint64(m.numFrames*m.pageSize))); err != nil {
		return err
	}
	validFrames := 0
	for i := range m.frames {
		fr := &m.frames[i]
		if _, err := fmt.Fprintf(w, "FrameNo:%d %s\n", fr.frameNo, fr); err != nil {
			return err
		}
		if fr.valid {
			validFrames++
		}
	}
	_, err := fmt.Fprintf(w, "Total Number of Valid Frames:%d\n", validFrames)
	return err
}
