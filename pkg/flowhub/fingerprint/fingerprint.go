package fingerprint

import (
	"errors"
	"fmt"
	"iter"
	"math/bits"
	"strconv"
	"strings"
)

// ErrShortBuffer is returned by Load when the input holds fewer than
// ceil(Len/8) bytes.
var ErrShortBuffer = errors.New("fingerprint: buffer too short")

// Fingerprint is a fixed-length bitset.
// The zero value is a valid zero-length fingerprint.
type Fingerprint struct {
	length int
	block  uint32
	blocks []uint32 // bits 32 and up
}

// New creates a fingerprint of the given length with every bit cleared.
// It panics if length is negative.
func New(length int) *Fingerprint {
	fp := &Fingerprint{}
	fp.Init(length)
	return fp
}

// Init resets fp to the given length with every bit cleared.
// It is used by cells that embed a Fingerprint by value.
func (fp *Fingerprint) Init(length int) {
	if length < 0 {
		panic(fmt.Sprintf("fingerprint: negative length %d", length))
	}
	fp.length = length
	fp.block = 0
	fp.blocks = nil
	if length > 32 {
		fp.blocks = make([]uint32, ((length-1)>>5))
	}
}

// Len returns the number of bits.
func (fp *Fingerprint) Len() int {
	return fp.length
}

// Get reports whether bit i is set.
func (fp *Fingerprint) Get(i int) bool {
	fp.check(i)
	if i < 32 {
		return fp.block&(1<<uint(i)) != 0
	}
	i -= 32
	return fp.blocks[i>>5]&(1<<uint(i&31)) != 0
}

// Touch sets bit i.
func (fp *Fingerprint) Touch(i int) {
	fp.check(i)
	if i < 32 {
		fp.block |= 1 << uint(i)
		return
	}
	i -= 32
	fp.blocks[i>>5] |= 1 << uint(i&31)
}

// Wipe clears bit i.
func (fp *Fingerprint) Wipe(i int) {
	fp.check(i)
	if i < 32 {
		fp.block &^= 1 << uint(i)
		return
	}
	i -= 32
	fp.blocks[i>>5] &^= 1 << uint(i&31)
}

// Clear clears every bit.
func (fp *Fingerprint) Clear() {
	fp.block = 0
	for i := range fp.blocks {
		fp.blocks[i] = 0
	}
}

// IsEmpty reports whether no bit is set.
func (fp *Fingerprint) IsEmpty() bool {
	if fp.block != 0 {
		return false
	}
	for _, b := range fp.blocks {
		if b != 0 {
			return false
		}
	}
	return true
}

// Count returns the number of set bits.
func (fp *Fingerprint) Count() int {
	n := bits.OnesCount32(fp.block)
	for _, b := range fp.blocks {
		n += bits.OnesCount32(b)
	}
	return n
}

func (fp *Fingerprint) check(i int) {
	if i < 0 || i >= fp.length {
		panic(fmt.Sprintf("fingerprint: index %d out of range [0, %d)", i, fp.length))
	}
}

// Compare orders fingerprints first by length, then by bit pattern starting
// from the most significant word. It returns -1, 0 or +1.
func (fp *Fingerprint) Compare(other *Fingerprint) int {
	if fp == other {
		return 0
	}
	if fp.length != other.length {
		if fp.length < other.length {
			return -1
		}
		return 1
	}
	for i := len(fp.blocks) - 1; i >= 0; i-- {
		if c := compareWord(fp.blocks[i], other.blocks[i]); c != 0 {
			return c
		}
	}
	return compareWord(fp.block, other.block)
}

func compareWord(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Equal reports whether both fingerprints have the same length and bits.
func (fp *Fingerprint) Equal(other *Fingerprint) bool {
	if other == nil {
		return false
	}
	return fp.Compare(other) == 0
}

// IsEquivalent reports whether fp is a subset mask of other: fp is no longer
// than other and every bit set in fp is also set in other.
func (fp *Fingerprint) IsEquivalent(other *Fingerprint) bool {
	if other == nil || fp.length > other.length {
		return false
	}
	if fp.block&^other.block != 0 {
		return false
	}
	for i, b := range fp.blocks {
		if b&^other.blocks[i] != 0 {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (fp *Fingerprint) Clone() *Fingerprint {
	c := &Fingerprint{length: fp.length, block: fp.block}
	if fp.blocks != nil {
		c.blocks = make([]uint32, len(fp.blocks))
		copy(c.blocks, fp.blocks)
	}
	return c
}

// Touched yields the index of every set bit in ascending order.
func (fp *Fingerprint) Touched() iter.Seq[int] {
	return func(yield func(int) bool) {
		for w := fp.block; w != 0; w &= w - 1 {
			if !yield(bits.TrailingZeros32(w)) {
				return
			}
		}
		for bi, word := range fp.blocks {
			for w := word; w != 0; w &= w - 1 {
				if !yield(32 + bi<<5 + bits.TrailingZeros32(w)) {
					return
				}
			}
		}
	}
}

// Key returns a string that is equal for two fingerprints exactly when Equal
// holds. It is used as a map key.
func (fp *Fingerprint) Key() string {
	var sb strings.Builder
	sb.Grow(4 + fp.byteLen())
	sb.WriteString(strconv.Itoa(fp.length))
	sb.WriteByte(':')
	sb.Write(fp.Dump())
	return sb.String()
}

// String renders the bits from index 0 upwards, e.g. "0110".
func (fp *Fingerprint) String() string {
	var sb strings.Builder
	sb.Grow(fp.length)
	for i := 0; i < fp.length; i++ {
		if fp.Get(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

func (fp *Fingerprint) byteLen() int {
	return (fp.length + 7) >> 3
}

// Dump serializes the bits as little-endian bytes truncated to ceil(Len/8).
func (fp *Fingerprint) Dump() []byte {
	n := fp.byteLen()
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = fp.byteAt(i)
	}
	return out
}

func (fp *Fingerprint) byteAt(i int) byte {
	word := i >> 2
	shift := uint(i&3) << 3
	if word == 0 {
		return byte(fp.block >> shift)
	}
	return byte(fp.blocks[word-1] >> shift)
}

// Load replaces the bits with the layout written by Dump.
// Bits beyond Len in the final byte are ignored.
func (fp *Fingerprint) Load(data []byte) error {
	n := fp.byteLen()
	if len(data) < n {
		return fmt.Errorf("%w: need %d bytes, got %d", ErrShortBuffer, n, len(data))
	}
	fp.Clear()
	for i := 0; i < n; i++ {
		word := i >> 2
		v := uint32(data[i]) << (uint(i&3) << 3)
		if word == 0 {
			fp.block |= v
		} else {
			fp.blocks[word-1] |= v
		}
	}
	fp.maskTail()
	return nil
}

// maskTail clears storage bits at or beyond length.
func (fp *Fingerprint) maskTail() {
	if fp.length < 32 {
		fp.block &= (1 << uint(fp.length)) - 1
		return
	}
	rem := (fp.length - 32) & 31
	if rem != 0 && len(fp.blocks) > 0 {
		fp.blocks[len(fp.blocks)-1] &= (1 << uint(rem)) - 1
	}
}
