// Copyright 2024 The stackmap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frametable

import (
	"fmt"
	"io"
)

// Fprint writes a human-readable dump of t to w: per bucket, the bucket
// index, entry count, and total byte size, followed by each frame it
// holds.
func (t *Table) Fprint(w io.Writer) error {
	for i := range t.buckets {
		b := &t.buckets[i]
		if b.NumEntries() == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "bucket %d: entries=%d, size=%d\n", i, b.NumEntries(), b.SizeOfEntries()); err != nil {
			return err
		}
		for _, f := range b.entries {
			if err := f.Fprint(w); err != nil {
				return err
			}
		}
	}
	return nil
}
