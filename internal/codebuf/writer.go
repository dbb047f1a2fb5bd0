// Package codebuf provides a growable byte buffer for code emission that
// tracks its own overflow/index errors instead of forcing every append call
// site to check one.
package codebuf

import "github.com/pkg/errors"

// Buffer is an append-only byte buffer used by the code emitter. Once an
// out-of-range access occurs, Err is set and stays set; further writes are
// no-ops. This mirrors the "sticky error" shape of a stream writer, applied
// to an in-memory buffer instead of an io.Writer.
type Buffer struct {
	b   []byte
	Err error
}

// New returns an empty Buffer with the given initial capacity hint.
func New(capHint int) *Buffer {
	return &Buffer{b: make([]byte, 0, capHint)}
}

// Len returns the number of bytes written so far.
func (c *Buffer) Len() int { return len(c.b) }

// Bytes returns the underlying byte slice. It is invalidated by the next
// Write call.
func (c *Buffer) Bytes() []byte { return c.b }

// Write appends p to the buffer and returns the offset it was written at.
func (c *Buffer) Write(p []byte) (offset int) {
	if c.Err != nil {
		return -1
	}
	offset = len(c.b)
	c.b = append(c.b, p...)
	return offset
}

// PatchUint32 overwrites 4 bytes at offset with v, little-endian. It is used
// by the linker to back-patch relocation sites. An out-of-range offset sets
// Err to a BufferOverflow-shaped error and leaves the buffer unchanged.
func (c *Buffer) PatchUint32(offset int, v uint32) {
	if c.Err != nil {
		return
	}
	if offset < 0 || offset+4 > len(c.b) {
		c.Err = errors.Errorf("codebuf: patch offset %d out of range for buffer of length %d", offset, len(c.b))
		return
	}
	c.b[offset] = byte(v)
	c.b[offset+1] = byte(v >> 8)
	c.b[offset+2] = byte(v >> 16)
	c.b[offset+3] = byte(v >> 24)
}

// At returns the byte at i, panicking with a BufferOverflow-shaped message
// if i is out of range. Matching spec.md, out-of-range indexed access into
// the code buffer is a programmer error and panicking is acceptable.
func (c *Buffer) At(i int) byte {
	if i < 0 || i >= len(c.b) {
		panic(errors.Errorf("codebuf: index %d out of bounds for buffer of length %d", i, len(c.b)))
	}
	return c.b[i]
}
