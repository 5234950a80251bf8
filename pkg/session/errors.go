// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching
var (
	ErrTimeout     = errors.New("request timed out")
	ErrTransport   = errors.New("transport failure")
	ErrProtocol    = errors.New("protocol violation")
	ErrClosed      = errors.New("session closed")
	ErrAbandoned   = errors.New("request abandoned")
	ErrNotResolved = errors.New("request not resolved yet")
)

// ErrorKind classifies a SessionError
type ErrorKind int

// Session error kinds
const (
	Timeout ErrorKind = iota
	Transport
	Protocol
	Closed
)

func (k ErrorKind) String() string {
	switch k {
	case Timeout:
		return "timeout"
	case Transport:
		return "transport"
	case Protocol:
		return "protocol"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case Timeout:
		return ErrTimeout
	case Transport:
		return ErrTransport
	case Protocol:
		return ErrProtocol
	default:
		return ErrClosed
	}
}

// SessionError is the failure of a submitted request.
// Timeout and Protocol are recoverable; Transport means the session closed.
type SessionError struct {
	Kind  ErrorKind
	ID    uint8 // Correlation index, valid when HasID
	HasID bool
	Err   error // Underlying cause, may be nil
}

func (e *SessionError) Error() string {
	msg := e.Kind.sentinel().Error()
	if e.HasID {
		msg = fmt.Sprintf("%s (index %d)", msg, e.ID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SessionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// Recoverable reports whether the caller may retry after err
func Recoverable(err error) bool {
	var se *SessionError
	if !errors.As(err, &se) {
		return false
	}
	return se.Kind == Timeout || se.Kind == Protocol
}
