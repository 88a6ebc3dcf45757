// Copyright 2024 The stackmap Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package statepoint

import (
	"log"
	"os"
)

// PrintDebugInfo enables verbose decoding traces to stderr. It is false by
// default; embedding runtimes doing a stop-the-world stack walk do not want
// log traffic on the happy path.
var PrintDebugInfo = false

var logger *log.Logger

// debugWriter forwards to stderr only while PrintDebugInfo is set, so the
// switch takes effect whenever it is changed, not only at package init.
type debugWriter struct{}

func (debugWriter) Write(p []byte) (int, error) {
	if !PrintDebugInfo {
		return len(p), nil
	}
	return os.Stderr.Write(p)
}

func init() {
	logger = log.New(debugWriter{}, "", log.Lshortfile)
}
