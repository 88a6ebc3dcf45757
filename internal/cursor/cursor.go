// Copyright 2024 The stackmap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cursor provides a bounds-checked reader over a borrowed byte slice.
//
// Unlike an io.Reader-based decoder, the stack-map format is always handed
// to the decoder as a single contiguous buffer (see statepoint.Decode's raw
// argument), so a Cursor never copies or blocks: every read is a bounds check
// plus a slice of the backing array.
package cursor

import (
	"encoding/binary"
	"io"
)

// Cursor reads fixed-width little-endian fields from a byte slice it does
// not own, tracking the current read position.
type Cursor struct {
	buf []byte
	pos int
}

// New returns a Cursor positioned at the start of buf.
func New(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Pos returns the current byte offset into the underlying buffer.
func (c *Cursor) Pos() int { return c.pos }

// Len returns the number of unread bytes remaining.
func (c *Cursor) Len() int { return len(c.buf) - c.pos }

// Seek moves the cursor to an absolute byte offset. It is used by the
// decoder's callsite-advancement arithmetic, which computes the address of
// the next CallsiteHeader rather than reading to it.
func (c *Cursor) Seek(offset int) error {
	if offset < 0 || offset > len(c.buf) {
		return io.ErrUnexpectedEOF
	}
	c.pos = offset
	return nil
}

// Skip advances the cursor by n bytes without interpreting them.
func (c *Cursor) Skip(n int) error {
	return c.Seek(c.pos + n)
}

func (c *Cursor) require(n int) error {
	if n < 0 || c.pos+n > len(c.buf) {
		return io.ErrUnexpectedEOF
	}
	return nil
}

// U16 reads a little-endian uint16 and advances the cursor.
func (c *Cursor) U16() (uint16, error) {
	if err := c.require(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(c.buf[c.pos:])
	c.pos += 2
	return v, nil
}

// U32 reads a little-endian uint32 and advances the cursor.
func (c *Cursor) U32() (uint32, error) {
	if err := c.require(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, nil
}

// U64 reads a little-endian uint64 and advances the cursor.
func (c *Cursor) U64() (uint64, error) {
	if err := c.require(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(c.buf[c.pos:])
	c.pos += 8
	return v, nil
}

// I32 reads a little-endian int32 and advances the cursor.
func (c *Cursor) I32() (int32, error) {
	v, err := c.U32()
	return int32(v), err
}
