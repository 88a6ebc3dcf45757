// Copyright 2024 The stackmap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package frametable implements a closed-address hash table keyed by return
// address, storing a statepoint.FrameInfo per entry. It is populated once at
// startup by decoding a stack-map (see Build), then used read-only by a
// garbage collector walking the stack at every subsequent safepoint.
package frametable

import (
	"math"

	"github.com/rootwalk/stackmap/statepoint"
)

// Bucket holds the FrameInfo records that hashed to one slot, concatenated
// in insertion order. A Go slice of value structs is the idiomatic
// rendition of a contiguous buffer holding records back-to-back, giving
// the same observable contract as an inline byte buffer without the
// decode/encode overhead.
type Bucket struct {
	entries []statepoint.FrameInfo
}

// NumEntries returns the number of records stored in the bucket.
func (b *Bucket) NumEntries() int { return len(b.entries) }

// SizeOfEntries returns the total on-the-wire byte size of the bucket's
// records, for the Fprint diagnostic dump.
func (b *Bucket) SizeOfEntries() uint64 {
	var total uint64
	for _, f := range b.entries {
		total += f.ByteSize()
	}
	return total
}

func (b *Bucket) lookup(retAddr uint64) (statepoint.FrameInfo, bool) {
	for _, f := range b.entries {
		if f.RetAddr == retAddr {
			return f, true
		}
	}
	return statepoint.FrameInfo{}, false
}

func (b *Bucket) insert(f statepoint.FrameInfo) {
	b.entries = append(b.entries, f)
}

// Table is a fixed-size array of buckets, sized at construction and never
// resized or rehashed afterward.
type Table struct {
	buckets []Bucket
}

// numBuckets computes ⌈E/α⌉ + 1 buckets for an expected element count E and
// load factor α.
func numBuckets(expected int, loadFactor float64) uint64 {
	if expected <= 0 || loadFactor <= 0 {
		panic("frametable: expected element count and load factor must both be positive")
	}
	n := uint64(math.Ceil(float64(expected)/loadFactor)) + 1
	return n
}

// New allocates an empty Table sized for expected elements at the given
// load factor. All buckets start empty; the table is never resized.
func New(expected int, loadFactor float64) *Table {
	size := numBuckets(expected, loadFactor)
	logger.Printf("allocating frame table with %d buckets (expected=%d, loadFactor=%.3f)", size, expected, loadFactor)
	return &Table{buckets: make([]Bucket, size)}
}

// Size returns the number of buckets in the table.
func (t *Table) Size() uint64 { return uint64(len(t.buckets)) }

// hash mixes key with one round of xorshift64* before modulo-reducing by
// the bucket count. The multiplier is the well-known xorshift64* constant
// and must stay fixed for reproducible bucket assignment across builds.
func hash(key uint64, size uint64) uint64 {
	x := key
	x ^= x >> 12
	x ^= x << 25
	x ^= x >> 27
	x *= 2685821657736338717
	return x % size
}

// Insert stores frame under key, which must equal frame.RetAddr. On
// collision the frame is appended to the existing bucket's records,
// preserving the concatenated-records layout. The caller relinquishes
// ownership of frame's slot slice; do not mutate it afterward.
func (t *Table) Insert(key uint64, frame statepoint.FrameInfo) {
	if key != frame.RetAddr {
		panic("frametable: insert key must equal frame.RetAddr")
	}
	idx := hash(key, t.Size())
	t.buckets[idx].insert(frame)
}

// Lookup returns the frame whose RetAddr matches retAddr, scanning the
// target bucket's concatenated records in insertion order. The returned
// FrameInfo remains valid as long as the table is not destroyed and no
// further insertions occur.
func (t *Table) Lookup(retAddr uint64) (statepoint.FrameInfo, bool) {
	idx := hash(retAddr, t.Size())
	return t.buckets[idx].lookup(retAddr)
}

// Bucket returns a pointer to the bucket at index i, for diagnostics and
// tests. It does not hash; callers that want the bucket a key lands in
// should go through Lookup.
func (t *Table) Bucket(i uint64) *Bucket {
	return &t.buckets[i]
}

// Destroy drops every bucket's backing storage so the garbage collector can
// reclaim it immediately, rather than waiting for the Table itself to
// become unreachable. Go has no manual free, so this is the closest
// faithful rendition of an explicit release-on-destroy lifecycle.
func (t *Table) Destroy() {
	for i := range t.buckets {
		t.buckets[i].entries = nil
	}
	t.buckets = nil
}

// Stats summarizes a built table's bucket occupancy, useful for a runtime
// author tuning loadFactor.
type Stats struct {
	Buckets          uint64
	PopulatedBuckets uint64
	MaxBucketDepth   int
	TotalFrames      int
}

// Stats computes occupancy statistics for t.
func (t *Table) Stats() Stats {
	s := Stats{Buckets: t.Size()}
	for i := range t.buckets {
		n := t.buckets[i].NumEntries()
		if n == 0 {
			continue
		}
		s.PopulatedBuckets++
		s.TotalFrames += n
		if n > s.MaxBucketDepth {
			s.MaxBucketDepth = n
		}
	}
	return s
}
