// Copyright 2024 The stackmap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package statepoint decodes a compiler-emitted statepoint stack-map — the
// binary record, keyed by callsite, that a precise garbage collector
// consults to find live pointers on the stack at a safepoint — into
// in-memory FrameInfo records.
//
// The format is described in full in the package's decode.go; callers
// normally reach it through the higher-level frametable package rather than
// calling Decode directly.
package statepoint

import "fmt"

// BasePointer marks a PointerSlot as a base (object-start) pointer rather
// than a derived (interior) one.
const BasePointer int32 = -1

// PointerSlot describes one live pointer at a callsite.
//
// Kind is BasePointer (-1) for a base pointer, or the index within the same
// FrameInfo's slot slice of the base pointer this slot was derived from.
// Offset is the byte offset of the slot relative to the stack frame base, in
// the compiler's own sign and origin convention (negative offsets denote
// locations above the recorded base).
type PointerSlot struct {
	Kind   int32
	Offset int32
}

// IsBase reports whether s is a base pointer rather than a derived one.
func (s PointerSlot) IsBase() bool { return s.Kind == BasePointer }

// FrameInfo describes the live pointer slots of one callsite.
//
// Slots is laid out base pointers first, then derived pointers, so that
// every derived slot's Kind can be resolved by indexing back into the
// prefix of Slots that precedes it (see decode.go's two-pass emission).
type FrameInfo struct {
	RetAddr   uint64
	FrameSize uint64
	Slots     []PointerSlot
}

// NumBases returns the count of leading base-pointer slots. Every slot at
// index >= NumBases() is a derived pointer whose Kind indexes a slot
// before it.
func (f FrameInfo) NumBases() int {
	n := 0
	for _, s := range f.Slots {
		if !s.IsBase() {
			break
		}
		n++
	}
	return n
}

// ByteSize returns the size in bytes of f's on-the-wire encoding:
// retAddr(8) + frameSize(8) + numSlots(2) + numSlots*8. Used only for the
// Bucket.SizeOfEntries diagnostic dump; Go's in-memory representation of
// FrameInfo does not use this layout.
func (f FrameInfo) ByteSize() uint64 {
	const header = 8 + 8 + 2
	const slotSize = 4 + 4
	return header + uint64(len(f.Slots))*slotSize
}

// Equal reports whether f and g describe the same callsite field-for-field.
func (f FrameInfo) Equal(g FrameInfo) bool {
	if f.RetAddr != g.RetAddr || f.FrameSize != g.FrameSize {
		return false
	}
	if len(f.Slots) != len(g.Slots) {
		return false
	}
	for i := range f.Slots {
		if f.Slots[i] != g.Slots[i] {
			return false
		}
	}
	return true
}

func (s PointerSlot) String() string {
	if s.IsBase() {
		return fmt.Sprintf("kind: base ptr, frame offset: %d", s.Offset)
	}
	return fmt.Sprintf("kind: ptr derived from slot #%d, frame offset: %d", s.Kind, s.Offset)
}
