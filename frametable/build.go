// Copyright 2024 The stackmap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frametable

import "github.com/rootwalk/stackmap/statepoint"

// Build decodes raw and inserts every resulting frame into a fresh Table
// sized for len(frames) elements (at least one) at loadFactor. A malformed stack-map is a
// fatal condition, so Build panics with a *statepoint.DecodeError rather
// than returning one, letting the panic propagate uncaught rather than
// recovering it internally.
func Build(raw []byte, loadFactor float64) *Table {
	frames := statepoint.MustDecode(raw)
	return insertAll(frames, loadFactor)
}

// TryBuild is the recoverable counterpart to Build, for embeddings that
// need orderly teardown on a decode failure. It never returns a partial
// table: either every frame decoded successfully and was inserted, or nil
// and an error are returned.
func TryBuild(raw []byte, loadFactor float64) (*Table, error) {
	frames, err := statepoint.Decode(raw)
	if err != nil {
		return nil, err
	}
	return insertAll(frames, loadFactor), nil
}

func insertAll(frames []statepoint.FrameInfo, loadFactor float64) *Table {
	expected := len(frames)
	if expected == 0 {
		expected = 1
	}
	t := New(expected, loadFactor)
	for _, f := range frames {
		t.Insert(f.RetAddr, f)
	}
	return t
}
