// Copyright 2024 The stackmap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package statepoint

import (
	"fmt"
	"io"
)

// Fprint writes a human-readable dump of f to w: retAddr, frameSize,
// numSlots, then one line per slot.
func (f FrameInfo) Fprint(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "retAddr: 0x%x, frameSize: %d, numSlots: %d\n", f.RetAddr, f.FrameSize, len(f.Slots)); err != nil {
		return err
	}
	for _, s := range f.Slots {
		if _, err := fmt.Fprintf(w, "  %s\n", s); err != nil {
			return err
		}
	}
	return nil
}
