// Copyright 2024 The stackmap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package statepoint

import (
	"bytes"
	"encoding/binary"
)

// The tests in this package build raw stack-map byte buffers by hand,
// field by field, rather than decoding fixture files — there is no
// external corpus of compiler-emitted stack-maps to test against, so the
// buffers are the test data.

type fnFixture struct {
	address       uint64
	stackSize     uint64
	callsiteCount uint64
}

type locFixture struct {
	kind   locationKind
	size   uint16
	offset int32
}

func constLoc(value int32) locFixture {
	return locFixture{kind: locationKindConstant, offset: value}
}

func indirectLoc(offset int32) locFixture {
	return locFixture{kind: locationKindIndirect, size: 8, offset: offset}
}

type callsiteFixture struct {
	codeOffset uint32
	locs       []locFixture
	numLiveout uint16
}

func writeU16(buf *bytes.Buffer, v uint16) { binary.Write(buf, binary.LittleEndian, v) }
func writeU32(buf *bytes.Buffer, v uint32) { binary.Write(buf, binary.LittleEndian, v) }
func writeU64(buf *bytes.Buffer, v uint64) { binary.Write(buf, binary.LittleEndian, v) }
func writeI32(buf *bytes.Buffer, v int32)  { binary.Write(buf, binary.LittleEndian, v) }

func buildStackMap(fns []fnFixture, callsites []callsiteFixture) []byte {
	buf := new(bytes.Buffer)
	writeU32(buf, uint32(len(fns)))
	writeU32(buf, 0) // numConstants
	writeU64(buf, uint64(len(callsites)))

	for _, fn := range fns {
		writeU64(buf, fn.address)
		writeU64(buf, fn.stackSize)
		writeU64(buf, fn.callsiteCount)
	}

	for _, cs := range callsites {
		writeU32(buf, cs.codeOffset)
		writeU16(buf, 0) // flags
		writeU16(buf, uint16(len(cs.locs)))
		for _, l := range cs.locs {
			writeU16(buf, uint16(l.kind))
			writeU16(buf, l.size)
			writeU16(buf, 0) // dwarf reg
			writeU16(buf, 0) // reserved
			writeI32(buf, l.offset)
		}
		writeU16(buf, 0) // liveout header padding
		writeU16(buf, cs.numLiveout)
		for i := uint16(0); i < cs.numLiveout; i++ {
			writeU16(buf, 0) // dwarf reg
			buf.WriteByte(0) // flags
			buf.WriteByte(0) // size in bytes
		}
		for buf.Len()%8 != 0 {
			buf.WriteByte(0)
		}
	}

	return buf.Bytes()
}

// basePair is shorthand for the common case: a base/derived pair sharing the
// same offset emits a single base slot.
func basePair(offset int32) []locFixture {
	return []locFixture{indirectLoc(offset), indirectLoc(offset)}
}

// derivedPair builds a (base, derived) pair with distinct offsets.
func derivedPair(baseOffset, derivedOffset int32) []locFixture {
	return []locFixture{indirectLoc(baseOffset), indirectLoc(derivedOffset)}
}

func concatLocs(groups ...[]locFixture) []locFixture {
	var out []locFixture
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// withPreamble prepends the mandatory 3-constant preamble (two discarded
// constants, then a deopt-count constant) ahead of the pointer-pair
// locations.
func withPreamble(numDeopt int32, deoptLocs []locFixture, pairs ...[]locFixture) []locFixture {
	out := []locFixture{constLoc(0), constLoc(0), constLoc(numDeopt)}
	out = append(out, deoptLocs...)
	for _, p := range pairs {
		out = append(out, p...)
	}
	return out
}
