// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"
)

// DefaultBaudRate is the rate the Blot firmware configures its USB serial at
const DefaultBaudRate = 9600

// Serial wraps an open serial port
type Serial struct {
	port serial.Port
	name string

	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
}

// OpenSerial opens portName at baudRate with 8N1 framing.
// Returns a *ConnectionError if the port cannot be opened.
func OpenSerial(portName string, baudRate int) (*Serial, error) {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}

	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, &ConnectionError{Target: portName, Err: describePortError(err)}
	}

	return &Serial{
		port:   port,
		name:   portName,
		closed: make(chan struct{}),
	}, nil
}

// Name returns the port the link was opened on
func (s *Serial) Name() string {
	return s.name
}

func (s *Serial) Read(p []byte) (int, error) {
	n, err := s.port.Read(p)
	if err != nil {
		if s.isClosed() {
			return n, &IoError{Op: "read", Err: ErrClosed}
		}
		return n, &IoError{Op: "read", Err: describePortError(err)}
	}
	// Without a read timeout a zero-length read only happens on hangup
	if n == 0 && len(p) > 0 {
		return 0, &IoError{Op: "read", Err: io.EOF}
	}
	return n, nil
}

func (s *Serial) Write(p []byte) (int, error) {
	if s.isClosed() {
		return 0, &IoError{Op: "write", Err: ErrClosed}
	}
	n, err := s.port.Write(p)
	if err != nil {
		return n, &IoError{Op: "write", Err: describePortError(err)}
	}
	if n < len(p) {
		return n, &IoError{Op: "write", Err: io.ErrShortWrite}
	}
	return n, nil
}

// Close releases the port. Safe to call more than once.
func (s *Serial) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.closeErr = s.port.Close()
	})
	return s.closeErr
}

func (s *Serial) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// describePortError turns serial.PortError codes into readable causes
func describePortError(err error) error {
	var pe *serial.PortError
	if !errors.As(err, &pe) {
		return err
	}

	switch pe.Code() {
	case serial.PortBusy:
		return fmt.Errorf("port is busy: %w", err)
	case serial.PortNotFound:
		return fmt.Errorf("port not found: %w", err)
	case serial.PermissionDenied:
		return fmt.Errorf("permission denied (is your user in the dialout group?): %w", err)
	case serial.InvalidSpeed:
		return fmt.Errorf("unsupported baud rate: %w", err)
	case serial.PortClosed:
		return fmt.Errorf("%w: %w", ErrClosed, err)
	default:
		return err
	}
}
