// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package transport provides the byte links a Blot session runs over:
// a local serial port, a WebSocket serial bridge, and an in-memory pipe.
//
// A Transport never retries or reconnects. Any read or write failure is
// returned as an *IoError and should be treated as fatal for the session.
package transport

import (
	"errors"
	"fmt"
	"io"
)

// Transport is an open byte link to the device
type Transport interface {
	io.Reader
	io.Writer
	io.Closer
}

// ErrClosed is returned by operations on a transport that was closed locally
var ErrClosed = errors.New("transport closed")

// ConnectionError reports a link that could not be opened
type ConnectionError struct {
	Target string // Port name or URL
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to open %s: %v", e.Target, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IoError reports a read or write failure on an open link
type IoError struct {
	Op  string // "read" or "write"
	Err error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *IoError) Unwrap() error {
	return e.Err
}

// Disconnected reports whether err means the far end of the link went away
func Disconnected(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}
