package file

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"
)

// intSize is the on-page width of a length prefix or an int value.
const intSize = 4

// Page is a fixed-size block of bytes together with the number of the page it holds.
// The contents are opaque to the buffer manager; the typed accessors below are for callers
// that lay out records on the page.
// Pages are the unit of transfer between disk and main memory.
type Page struct {
	number PageNo
	buffer []byte
}

// NewPage creates a Page with a zeroed buffer of the given page size.
func NewPage(pageSize int) *Page {
	return &Page{buffer: make([]byte, pageSize)}
}

// NewPageFromBytes creates a Page by wrapping the provided byte slice. The slice is not copied.
func NewPageFromBytes(number PageNo, bytes []byte) *Page {
	return &Page{number: number, buffer: bytes}
}

// Number returns the number of the page currently held.
func (p *Page) Number() PageNo {
	return p.number
}

// SetNumber sets the number of the page held. Files use it to decide where the page is written.
func (p *Page) SetNumber(n PageNo) {
	p.number = n
}

// Size returns the length of the page buffer in bytes.
func (p *Page) Size() int {
	return len(p.buffer)
}

// Contents returns the byte buffer maintained by the Page.
func (p *Page) Contents() []byte {
	return p.buffer
}

// CopyFrom overwrites the contents of p with those of src. The page number of p is kept.
// Both pages must have the same size.
func (p *Page) CopyFrom(src *Page) {
	copy(p.buffer, src.buffer)
}

// Clear zeroes the buffer and resets the page number.
func (p *Page) Clear() {
	p.number = InvalidPageNo
	clear(p.buffer)
}

// GetInt retrieves a 32-bit integer from the buffer at the specified offset.
func (p *Page) GetInt(offset int) int32 {
	return int32(binary.BigEndian.Uint32(p.buffer[offset:]))
}

// SetInt writes a 32-bit integer to the buffer at the specified offset.
func (p *Page) SetInt(offset int, n int32) {
	binary.BigEndian.PutUint32(p.buffer[offset:], uint32(n))
}

// GetLong retrieves a 64-bit integer from the buffer at the specified offset.
func (p *Page) GetLong(offset int) int64 {
	return int64(binary.BigEndian.Uint64(p.buffer[offset:]))
}

// SetLong writes a 64-bit integer to the buffer at the specified offset.
func (p *Page) SetLong(offset int, n int64) {
	binary.BigEndian.PutUint64(p.buffer[offset:], uint64(n))
}

// GetBytes retrieves a length-prefixed byte slice starting at the specified offset.
// A length prefix that runs past the end of the page yields ErrBadLength.
func (p *Page) GetBytes(offset int) ([]byte, error) {
	length := int(p.GetInt(offset))
	start := offset + intSize
	if length < 0 || length > len(p.buffer)-start {
		return nil, fmt.Errorf("%w: %d bytes at offset %d", ErrBadLength, length, offset)
	}
	b := make([]byte, length)
	copy(b, p.buffer[start:start+length])
	return b, nil
}

// SetBytes writes a length-prefixed byte slice starting at the specified offset.
func (p *Page) SetBytes(offset int, b []byte) {
	p.SetInt(offset, int32(len(b)))
	copy(p.buffer[offset+intSize:], b)
}

// GetString retrieves a string from the buffer at the specified offset.
func (p *Page) GetString(offset int) (string, error) {
	b, err := p.GetBytes(offset)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errors.New("invalid UTF-8 encoding")
	}
	return string(b), nil
}

func (p *Page) SetString(offset int, s string) error {
	if !utf8.ValidString(s) {
		return errors.New("string contains invalid UTF-8 characters")
	}
	p.SetBytes(offset, []byte(s))
	return nil
}

// MaxLength calculates the maximum number of bytes required to store a string of a given length.
func MaxLength(strlen int) int {
	return intSize + strlen*utf8.UTFMax
}
