package fingerprint

import "fmt"

// Capo is a read-only window onto a Fingerprint. Index i of the window maps to
// index offset+i of the underlying fingerprint.
//
// Reads outside the window return false. Generated accessors rely on this to
// ask "is property k of this subclass set" without bounds checks.
type Capo struct {
	fp     *Fingerprint
	offset int
	length int
}

// NewCapo creates a window starting at offset. An offset at or past the end of
// fp yields an empty window. It panics if offset is negative.
func NewCapo(fp *Fingerprint, offset int) Capo {
	if offset < 0 {
		panic(fmt.Sprintf("fingerprint: negative capo offset %d", offset))
	}
	length := fp.Len() - offset
	if length < 0 {
		length = 0
	}
	return Capo{fp: fp, offset: offset, length: length}
}

// Len returns the number of bits visible through the window.
func (c Capo) Len() int {
	return c.length
}

// Offset returns the window's starting index in the underlying fingerprint.
func (c Capo) Offset() int {
	return c.offset
}

// Get reports whether window bit i is set. Out-of-range indices return false.
func (c Capo) Get(i int) bool {
	if i < 0 || i >= c.length {
		return false
	}
	return c.fp.Get(c.offset + i)
}
