// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package blot

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching
var (
	ErrInvalidFrame       = errors.New("invalid frame")
	ErrMalformed          = errors.New("malformed packet")
	ErrUnknownCorrelation = errors.New("unknown correlation id")
	ErrValidation         = errors.New("invalid command")
	ErrDevice             = errors.New("device error")
)

// FrameError reports a byte run that could not be decoded as a frame.
// The run is dropped and decoding continues with the next frame.
type FrameError struct {
	Reason  string
	Dropped int // Encoded bytes discarded, excluding the delimiter
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("invalid frame: %s (%d bytes dropped)", e.Reason, e.Dropped)
}

func (e *FrameError) Unwrap() error {
	return ErrInvalidFrame
}

// ProtocolErrorKind classifies a ProtocolError
type ProtocolErrorKind int

// Protocol error kinds
const (
	Malformed ProtocolErrorKind = iota
	UnknownCorrelation
)

func (k ProtocolErrorKind) String() string {
	switch k {
	case Malformed:
		return "malformed"
	case UnknownCorrelation:
		return "unknown correlation"
	default:
		return "unknown"
	}
}

// ProtocolError reports a decoded frame that is not a usable response.
// HasIndex is set when the packet layout was intact enough to recover the
// correlation index.
type ProtocolError struct {
	Kind     ProtocolErrorKind
	Reason   string
	Index    uint8
	HasIndex bool
}

func (e *ProtocolError) Error() string {
	if e.HasIndex {
		return fmt.Sprintf("protocol error (%s, index %d): %s", e.Kind, e.Index, e.Reason)
	}
	return fmt.Sprintf("protocol error (%s): %s", e.Kind, e.Reason)
}

func (e *ProtocolError) Unwrap() error {
	if e.Kind == UnknownCorrelation {
		return ErrUnknownCorrelation
	}
	return ErrMalformed
}

func malformed(format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Kind: Malformed, Reason: fmt.Sprintf(format, args...)}
}

// ValidationError is returned for commands rejected before any I/O
type ValidationError struct {
	Field   string
	Value   float64
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s=%g: %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// DeviceError is a failure reported by the firmware for a specific request
type DeviceError struct {
	Code  uint8
	Index uint8
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device error 0x%02X (index %d)", e.Code, e.Index)
}

func (e *DeviceError) Unwrap() error {
	return ErrDevice
}
