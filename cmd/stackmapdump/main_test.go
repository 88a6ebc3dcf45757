// Copyright 2024 The stackmap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/binary"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestStackMap writes a minimal raw stack-map to a temp file and
// returns its path. mmap.Map requires a real file descriptor, so unlike
// the library tests this package can't build its fixtures purely in
// memory.
func writeTestStackMap(t *testing.T) string {
	t.Helper()
	buf := new(bytes.Buffer)
	w16 := func(v uint16) { binary.Write(buf, binary.LittleEndian, v) }
	w32 := func(v uint32) { binary.Write(buf, binary.LittleEndian, v) }
	w64 := func(v uint64) { binary.Write(buf, binary.LittleEndian, v) }
	wi32 := func(v int32) { binary.Write(buf, binary.LittleEndian, v) }

	w32(1)
	w32(0)
	w64(1)

	w64(0x4000)
	w64(48)
	w64(1)

	writeLoc := func(kind uint16, offset int32) {
		w16(kind)
		w16(8)
		w16(0)
		w16(0)
		wi32(offset)
	}

	w32(0x8)
	w16(0)
	w16(5)
	writeLoc(4, 0)
	writeLoc(4, 0)
	writeLoc(4, 0)
	writeLoc(3, -8)
	writeLoc(3, -8)

	w16(0)
	w16(0)
	for buf.Len()%8 != 0 {
		buf.WriteByte(0)
	}

	path := filepath.Join(t.TempDir(), "fixture.map")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProcessDump(t *testing.T) {
	if err := flag.CommandLine.Parse(nil); err != nil {
		t.Fatal(err)
	}
	path := writeTestStackMap(t)

	var out bytes.Buffer
	process(&out, path)

	got := out.String()
	for _, want := range []string{"retAddr: 0x4008", "frameSize: 48", "kind: base ptr, frame offset: -8"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestProcessStats(t *testing.T) {
	if err := flag.CommandLine.Parse([]string{"-s"}); err != nil {
		t.Fatal(err)
	}
	path := writeTestStackMap(t)

	var out bytes.Buffer
	process(&out, path)

	got := out.String()
	if !strings.Contains(got, "total frames: 1") {
		t.Errorf("output missing frame count:\n%s", got)
	}
}
