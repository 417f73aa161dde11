// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package teewriter

import (
	"bytes"
	"io"
	"strings"
	"sync"
)

// LineWriter is safe for concurrent use.
type LineWriter struct {
	dst     io.Writer
	onLine  func(string)
	partial bytes.Buffer
	mu      sync.Mutex
}

// New returns a LineWriter writing to dst (io.Discard when nil) and calling
// onLine, which may be nil, with every complete line without its newline.
func New(dst io.Writer, onLine func(string)) *LineWriter {
	if dst == nil {
		dst = io.Discard
	}

	return &LineWriter{dst: dst, onLine: onLine}
}

// Write implements io.Writer. The destination sees the bytes unchanged.
func (lw *LineWriter) Write(p []byte) (int, error) {
	n, err := lw.dst.Write(p)

	lw.mu.Lock()
	defer lw.mu.Unlock()

	lw.partial.Write(p[:n])

	for {
		idx := bytes.IndexByte(lw.partial.Bytes(), '\n')
		if idx < 0 {
			break
		}

		line := strings.TrimRight(string(lw.partial.Next(idx+1)), "\r\n")
		lw.emit(line)
	}

	return n, err //nolint:wrapcheck
}

// Flush reports any trailing text that was not terminated by a newline.
func (lw *LineWriter) Flush() {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	if lw.partial.Len() == 0 {
		return
	}

	line := strings.TrimRight(lw.partial.String(), "\r")
	lw.partial.Reset()
	lw.emit(line)
}

// must be called with mu held.
func (lw *LineWriter) emit(line string) {
	if lw.onLine != nil {
		lw.onLine(line)
	}
}
