// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Thermoquad/blotctl/pkg/blot"
	"github.com/Thermoquad/blotctl/pkg/trace"
)

// DefaultTimeout is how long a sent request waits for its acknowledgement
const DefaultTimeout = 3 * time.Second

// maxInFlightLimit is bounded by the one-byte correlation index
const maxInFlightLimit = 255

// Tracer receives every packet the session sends or receives
type Tracer interface {
	Record(dir trace.Direction, packet []byte) error
	RecordError(dir trace.Direction, cause error) error
}

// Config holds session settings
type Config struct {
	// Timeout applies from the moment a request is handed to the link
	Timeout time.Duration

	// MaxInFlight is the number of requests sent before earlier ones are
	// acknowledged. The Blot firmware handles one command at a time, so
	// anything above 1 relies on the device buffering its input.
	MaxInFlight int

	Limits blot.Limits
	Logger zerolog.Logger
	Tracer Tracer
}

// DefaultConfig returns the single-in-flight configuration with logging
// disabled
func DefaultConfig() Config {
	return Config{
		Timeout:     DefaultTimeout,
		MaxInFlight: 1,
		Limits:      blot.DefaultLimits(),
		Logger:      zerolog.Nop(),
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.MaxInFlight < 1 || c.MaxInFlight > maxInFlightLimit {
		return fmt.Errorf("max in flight must be between 1 and %d, got %d", maxInFlightLimit, c.MaxInFlight)
	}
	if c.Limits.MaxAbs < 0 {
		return fmt.Errorf("coordinate limit must not be negative, got %g", c.Limits.MaxAbs)
	}
	return nil
}
