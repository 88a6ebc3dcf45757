// Copyright 2024 The stackmap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command stackmapdump decodes a compiler-emitted stack-map file, builds a
// frame table from it, and prints a human-readable dump, for tests and
// human inspection. Acquiring the raw bytes is the embedding runtime's job
// in production; this tool exists for diagnostics, not production loading.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/rootwalk/stackmap/frametable"
	"github.com/rootwalk/stackmap/statepoint"
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: stackmapdump [options] file1.map [file2.map [...]]

ex:
 $> stackmapdump -a 0.75 ./file1.map

options:
`,
		)
		flag.PrintDefaults()
		os.Exit(1)
	}
}

var (
	flagVerbose    = flag.Bool("v", false, "enable/disable verbose decoding traces")
	flagLoadFactor = flag.Float64("a", 0.75, "target load factor for the built frame table")
	flagStats      = flag.Bool("s", false, "print bucket-occupancy statistics instead of a full dump")
)

func main() {
	log.SetPrefix("stackmapdump: ")
	log.SetFlags(0)

	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
	}

	statepoint.PrintDebugInfo = *flagVerbose
	frametable.PrintDebugInfo = *flagVerbose

	for i, fname := range flag.Args() {
		if i > 0 {
			fmt.Println()
		}
		process(os.Stdout, fname)
	}
}

func process(out io.Writer, fname string) {
	f, err := os.Open(fname)
	if err != nil {
		log.Fatalf("could not open %q: %v", fname, err)
	}
	defer f.Close()

	// mmap the file rather than reading it into a heap buffer: the decoded
	// FrameInfo records only need the bytes to be valid for the duration of
	// Build, but mapping means a multi-gigabyte stack-map from a large
	// binary never needs a matching heap allocation just to hold the input.
	raw, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		log.Fatalf("could not mmap %q: %v", fname, err)
	}
	defer raw.Unmap()

	table, err := frametable.TryBuild([]byte(raw), *flagLoadFactor)
	if err != nil {
		log.Fatalf("%q: decode failed: %v", fname, err)
	}

	fmt.Fprintf(out, "%s:\n", fname)
	if *flagStats {
		printStats(out, table)
		return
	}
	if err := table.Fprint(out); err != nil {
		log.Fatalf("%q: print failed: %v", fname, err)
	}
}

func printStats(out io.Writer, table *frametable.Table) {
	s := table.Stats()
	fmt.Fprintf(out, "buckets: %d\n", s.Buckets)
	fmt.Fprintf(out, "populated buckets: %d\n", s.PopulatedBuckets)
	fmt.Fprintf(out, "max bucket depth: %d\n", s.MaxBucketDepth)
	fmt.Fprintf(out, "total frames: %d\n", s.TotalFrames)
}
