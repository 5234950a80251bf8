// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"io"
	"sync"
)

// PipeEnd is one side of an in-memory link created by Pipe
type PipeEnd struct {
	r *io.PipeReader
	w *io.PipeWriter

	closeOnce sync.Once
}

// Pipe returns two connected in-memory transports. Bytes written to one end
// are read from the other. Closing either end fails pending and future I/O
// on both with an *IoError, the same way a hangup does on a real port.
func Pipe() (*PipeEnd, *PipeEnd) {
	ar, bw := io.Pipe()
	br, aw := io.Pipe()
	return &PipeEnd{r: ar, w: aw}, &PipeEnd{r: br, w: bw}
}

func (p *PipeEnd) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if err != nil {
		return n, &IoError{Op: "read", Err: err}
	}
	return n, nil
}

func (p *PipeEnd) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	if err != nil {
		return n, &IoError{Op: "write", Err: err}
	}
	return n, nil
}

// Close shuts both directions
func (p *PipeEnd) Close() error {
	p.closeOnce.Do(func() {
		p.w.CloseWithError(io.EOF)
		p.r.CloseWithError(ErrClosed)
	})
	return nil
}

// Hangup closes the end with a specific error, as seen by the peer's reads
func (p *PipeEnd) Hangup(err error) {
	p.closeOnce.Do(func() {
		p.w.CloseWithError(err)
		p.r.CloseWithError(err)
	})
}
