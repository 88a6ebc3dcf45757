// Copyright 2024 The stackmap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frametable

import (
	"bytes"
	"encoding/binary"
)

// buildTestStackMap returns a minimal raw stack-map: one function at
// 0x1000 with a 64-byte frame, one callsite at code offset 0x20 with a
// single base pointer at offset -8. This package tests Build/TryBuild
// end-to-end against frametable.Table; statepoint's own test suite covers
// the decode algorithm exhaustively, so this fixture is deliberately small.
func buildTestStackMap() []byte {
	buf := new(bytes.Buffer)
	w16 := func(v uint16) { binary.Write(buf, binary.LittleEndian, v) }
	w32 := func(v uint32) { binary.Write(buf, binary.LittleEndian, v) }
	w64 := func(v uint64) { binary.Write(buf, binary.LittleEndian, v) }
	wi32 := func(v int32) { binary.Write(buf, binary.LittleEndian, v) }

	w32(1) // numFunctions
	w32(0) // numConstants
	w64(1) // numRecords

	w64(0x1000) // function address
	w64(64)     // stack size
	w64(1)      // callsite count

	writeLoc := func(kind uint16, offset int32) {
		w16(kind)
		w16(8) // size
		w16(0) // dwarf reg
		w16(0) // reserved
		wi32(offset)
	}

	w32(0x20) // code offset
	w16(0)    // flags
	w16(5)    // numLocations: 2 discarded consts + deopt-count const + base pair
	writeLoc(4, 0)  // Constant
	writeLoc(4, 0)  // Constant
	writeLoc(4, 0)  // Constant(numDeopt=0)
	writeLoc(3, -8) // Indirect (base)
	writeLoc(3, -8) // Indirect (derived == base)

	w16(0) // liveout header padding
	w16(0) // numLiveouts
	for buf.Len()%8 != 0 {
		buf.WriteByte(0)
	}

	return buf.Bytes()
}
