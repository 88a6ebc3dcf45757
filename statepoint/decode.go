// Copyright 2024 The stackmap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package statepoint

import (
	"github.com/rootwalk/stackmap/internal/cursor"
)

// Binary layout (little-endian, matching the host architecture the
// stack-map was emitted on — all currently supported targets are little-
// endian):
//
//   StackMapHeader   { numFunctions u32, numConstants u32, numRecords u64 }
//   FunctionInfo[numFunctions] { address u64, stackSize u64, callsiteCount u64 }
//   Constant[numConstants] { u64 }
//   Callsite[numRecords]:
//     CallsiteHeader { codeOffset u32, flags u16, numLocations u16 }
//     Location[numLocations]
//     LiveoutHeader  { padding u16, numLiveouts u16 }
//     Liveout[numLiveouts]
//     <padding to 8-byte alignment>
//
// Location and Liveout widths are the statepoint convention's fixed-width
// records: a Location is 12 bytes (kind u16, size u16, dwarf reg u16,
// reserved u16, offset i32); a Liveout is 4 bytes (dwarf reg, flags,
// size-in-bytes). Only Location.Kind, Location.Size and Location.Offset
// are ever inspected.

const (
	liveoutSize  = 2 + 1 + 1 // dwarf reg, flags, size-in-bytes
	constantSize = 8
)

type locationKind uint8

const (
	locationKindRegister locationKind = 1
	locationKindDirect   locationKind = 2
	locationKindIndirect locationKind = 3
	locationKindConstant locationKind = 4
)

// location is one decoded Location record. Only the fields the decoder
// actually consults are kept; the dwarf register number and the reserved
// field are read (to stay honest about the record's width) but discarded.
type location struct {
	kind   locationKind
	size   uint16
	offset int32
}

func readLocation(c *cursor.Cursor, off int) (location, error) {
	kindField, err := c.U16()
	if err != nil {
		return location{}, &DecodeError{Kind: ErrTruncatedInput, Offset: off}
	}
	size, err := c.U16()
	if err != nil {
		return location{}, &DecodeError{Kind: ErrTruncatedInput, Offset: off}
	}
	if _, err := c.U16(); err != nil { // dwarf reg num, unused
		return location{}, &DecodeError{Kind: ErrTruncatedInput, Offset: off}
	}
	if _, err := c.U16(); err != nil { // reserved
		return location{}, &DecodeError{Kind: ErrTruncatedInput, Offset: off}
	}
	offset, err := c.I32()
	if err != nil {
		return location{}, &DecodeError{Kind: ErrTruncatedInput, Offset: off}
	}
	return location{kind: locationKind(kindField), size: size, offset: offset}, nil
}

type functionInfo struct {
	address       uint64
	stackSize     uint64
	callsiteCount uint64
}

// funcCursor walks FunctionInfo entries in lockstep with callsites: it
// attributes each callsite to a function purely by counting, since
// callsite records carry no function back-reference.
type funcCursor struct {
	fns     []functionInfo
	idx     int
	visited uint64
}

func (f *funcCursor) current() functionInfo {
	return f.fns[f.idx]
}

func (f *funcCursor) advance() {
	f.visited++
	for f.idx < len(f.fns)-1 && f.visited >= f.fns[f.idx].callsiteCount {
		f.idx++
		f.visited = 0
	}
}

// MustDecode decodes raw into the FrameInfo records it describes. It panics
// with a *DecodeError on any malformed-input violation; there is no
// partial-success mode. Callers wanting a recoverable error should use
// Decode instead.
func MustDecode(raw []byte) []FrameInfo {
	c := cursor.New(raw)

	numFunctions, err := c.U32()
	if err != nil {
		panic(&DecodeError{Kind: ErrTruncatedInput, Offset: c.Pos(), Detail: "reading numFunctions"})
	}
	numConstants, err := c.U32()
	if err != nil {
		panic(&DecodeError{Kind: ErrTruncatedInput, Offset: c.Pos(), Detail: "reading numConstants"})
	}
	numRecords, err := c.U64()
	if err != nil {
		panic(&DecodeError{Kind: ErrTruncatedInput, Offset: c.Pos(), Detail: "reading numRecords"})
	}
	logger.Printf("stack-map header: %d functions, %d constants, %d records", numFunctions, numConstants, numRecords)

	fns := make([]functionInfo, numFunctions)
	for i := range fns {
		addr, err := c.U64()
		if err != nil {
			panic(&DecodeError{Kind: ErrTruncatedInput, Offset: c.Pos(), Detail: "reading function address"})
		}
		size, err := c.U64()
		if err != nil {
			panic(&DecodeError{Kind: ErrTruncatedInput, Offset: c.Pos(), Detail: "reading function stack size"})
		}
		count, err := c.U64()
		if err != nil {
			panic(&DecodeError{Kind: ErrTruncatedInput, Offset: c.Pos(), Detail: "reading function callsite count"})
		}
		fns[i] = functionInfo{address: addr, stackSize: size, callsiteCount: count}
	}

	if err := c.Skip(int(numConstants) * constantSize); err != nil {
		panic(&DecodeError{Kind: ErrTruncatedInput, Offset: c.Pos(), Detail: "skipping constants table"})
	}

	if numRecords == 0 {
		return nil
	}
	if len(fns) == 0 {
		panic(&DecodeError{Kind: ErrTruncatedInput, Offset: c.Pos(), Detail: "records present with no functions to attribute them to"})
	}

	fc := &funcCursor{fns: fns}
	frames := make([]FrameInfo, 0, numRecords)
	for i := uint64(0); i < numRecords; i++ {
		frame, next := decodeCallsite(c, fc.current())
		frames = append(frames, frame)
		if err := c.Seek(next); err != nil {
			panic(&DecodeError{Kind: ErrTruncatedInput, Offset: c.Pos(), Detail: "advancing past callsite"})
		}
		fc.advance()
	}
	return frames
}

// Decode is the recoverable counterpart to MustDecode: it converts a
// *DecodeError panic into a returned error, for callers that need to
// surface a structured error rather than aborting. Any other panic (a
// programming error, not a malformed-input condition) still propagates.
func Decode(raw []byte) (frames []FrameInfo, err error) {
	defer func() {
		if r := recover(); r != nil {
			de, ok := r.(*DecodeError)
			if !ok {
				panic(r)
			}
			frames, err = nil, de
		}
	}()
	return MustDecode(raw), nil
}

// decodeCallsite implements the Callsite → FrameInfo algorithm for one
// callsite starting at c's current position, and returns the frame plus
// the absolute byte offset of the next CallsiteHeader.
func decodeCallsite(c *cursor.Cursor, fn functionInfo) (FrameInfo, int) {
	start := c.Pos()

	codeOffset, err := c.U32()
	if err != nil {
		panic(&DecodeError{Kind: ErrTruncatedInput, Offset: c.Pos(), Detail: "reading callsite code offset"})
	}
	if _, err := c.U16(); err != nil { // flags, unused
		panic(&DecodeError{Kind: ErrTruncatedInput, Offset: c.Pos(), Detail: "reading callsite flags"})
	}
	numLocations, err := c.U16()
	if err != nil {
		panic(&DecodeError{Kind: ErrTruncatedInput, Offset: c.Pos(), Detail: "reading callsite numLocations"})
	}

	locs := make([]location, numLocations)
	for i := range locs {
		loc, err := readLocation(c, c.Pos())
		if err != nil {
			panic(err)
		}
		locs[i] = loc
	}

	if _, err := c.U16(); err != nil { // LiveoutHeader.padding
		panic(&DecodeError{Kind: ErrTruncatedInput, Offset: c.Pos(), Detail: "reading liveout header padding"})
	}
	numLiveouts, err := c.U16()
	if err != nil {
		panic(&DecodeError{Kind: ErrTruncatedInput, Offset: c.Pos(), Detail: "reading numLiveouts"})
	}
	if err := c.Skip(int(numLiveouts) * liveoutSize); err != nil {
		panic(&DecodeError{Kind: ErrTruncatedInput, Offset: c.Pos(), Detail: "skipping liveouts"})
	}

	// Alignment: round the offset reached so far up to the next multiple of
	// 8. Load-bearing — without it, the next CallsiteHeader is read from the
	// wrong offset.
	next := (c.Pos() + 7) &^ 7

	frame := buildFrame(fn, codeOffset, locs, start)
	return frame, next
}

// buildFrame implements the per-callsite slot-emission algorithm: skip the
// three leading constants and the deopt parameters they describe, then pair
// up the remaining locations into (base, derived) pairs and emit bases
// before derivations.
func buildFrame(fn functionInfo, codeOffset uint32, locs []location, errOffset int) FrameInfo {
	if len(locs) < 3 {
		panic(&DecodeError{Kind: ErrMissingLeadingConstants, Offset: errOffset, Detail: "fewer than 3 locations"})
	}
	for i := 0; i < 2; i++ {
		if locs[i].kind != locationKindConstant {
			panic(&DecodeError{Kind: ErrMissingLeadingConstants, Offset: errOffset})
		}
	}
	if locs[2].kind != locationKindConstant {
		panic(&DecodeError{Kind: ErrMissingLeadingConstants, Offset: errOffset, Detail: "third location is not the deopt-count constant"})
	}
	numDeopt := int(uint32(locs[2].offset))
	rest := locs[3:]
	if numDeopt > len(rest) {
		panic(&DecodeError{Kind: ErrTruncatedInput, Offset: errOffset, Detail: "deopt count exceeds remaining locations"})
	}
	rest = rest[numDeopt:]

	if len(rest)%2 != 0 {
		panic(&DecodeError{Kind: ErrOddPointerLocationCount, Offset: errOffset})
	}

	type pair struct{ base, derived location }
	pairs := make([]pair, 0, len(rest)/2)
	for i := 0; i < len(rest); i += 2 {
		base, derived := rest[i], rest[i+1]
		for _, l := range []location{base, derived} {
			if l.kind != locationKindIndirect {
				panic(&DecodeError{Kind: ErrNonIndirectPointerLocation, Offset: errOffset})
			}
			if l.size != 0 && l.size != 8 {
				panic(&DecodeError{Kind: ErrUnsupportedLocationWidth, Offset: errOffset, Detail: "location is not single-pointer-sized"})
			}
		}
		pairs = append(pairs, pair{base: base, derived: derived})
	}

	slots := make([]PointerSlot, 0, len(pairs))

	// Pass 1: emit base slots, in input order, for pairs whose base and
	// derived locations are identical (kind and offset).
	for _, p := range pairs {
		if p.base.offset == p.derived.offset {
			slots = append(slots, PointerSlot{Kind: BasePointer, Offset: p.base.offset})
		}
	}
	numBases := len(slots)

	// Pass 2: emit derived slots, resolving each against the first base
	// slot (smallest index) with a matching offset, the tie-break rule for
	// duplicate base offsets.
	for _, p := range pairs {
		if p.base.offset == p.derived.offset {
			continue
		}
		baseIdx := -1
		for i := 0; i < numBases; i++ {
			if slots[i].Offset == p.base.offset {
				baseIdx = i
				break
			}
		}
		if baseIdx < 0 {
			panic(&DecodeError{Kind: ErrUnresolvedBaseOffset, Offset: errOffset, Detail: "no base slot for derived pointer"})
		}
		slots = append(slots, PointerSlot{Kind: int32(baseIdx), Offset: p.derived.offset})
	}

	return FrameInfo{
		RetAddr:   fn.address + uint64(codeOffset),
		FrameSize: fn.stackSize,
		Slots:     slots,
	}
}
