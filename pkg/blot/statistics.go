// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package blot

import (
	"errors"
	"fmt"
	"time"
)

// Statistics tracks link traffic and error rates for one session
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	FramesSent          uint64
	FramesReceived      uint64
	FrameErrors         uint64
	ProtocolErrors      uint64
	UnknownCorrelations uint64
	Timeouts            uint64
	DeviceErrors        uint64
	Completed           uint64

	// Round trip of acknowledged requests
	LastRTT time.Duration
	MaxRTT  time.Duration
	totalRT time.Duration

	// Rates (calculated)
	FrameRate float64 // frames/sec received
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// RecordSent counts a frame written to the link
func (s *Statistics) RecordSent() {
	s.FramesSent++
	s.LastUpdateTime = time.Now()
}

// RecordReceived counts a frame, or a decode failure, read from the link.
// Protocol errors are classified so stale acknowledgements can be told
// apart from corrupted packets.
func (s *Statistics) RecordReceived(frameErr, protoErr error) {
	s.LastUpdateTime = time.Now()

	if frameErr != nil {
		s.FrameErrors++
		return
	}
	s.FramesReceived++

	if protoErr == nil {
		return
	}
	if errors.Is(protoErr, ErrUnknownCorrelation) {
		s.UnknownCorrelations++
		return
	}
	s.ProtocolErrors++
}

// RecordResolved counts a request that received a response
func (s *Statistics) RecordResolved(rtt time.Duration, deviceErr bool) {
	s.Completed++
	if deviceErr {
		s.DeviceErrors++
	}
	s.LastRTT = rtt
	s.totalRT += rtt
	if rtt > s.MaxRTT {
		s.MaxRTT = rtt
	}
}

// RecordTimeout counts a request that expired without a response
func (s *Statistics) RecordTimeout() {
	s.Timeouts++
}

// AverageRTT returns the mean round trip of acknowledged requests
func (s *Statistics) AverageRTT() time.Duration {
	if s.Completed == 0 {
		return 0
	}
	return s.totalRT / time.Duration(s.Completed)
}

// Errors returns the number of link-level faults seen
func (s *Statistics) Errors() uint64 {
	return s.FrameErrors + s.ProtocolErrors + s.Timeouts
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.FramesReceived) / elapsed
		s.ErrorRate = float64(s.Errors()) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Link Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Frames Sent:     %8d\n", s.FramesSent)
	result += fmt.Sprintf("Frames Received: %8d\n", s.FramesReceived)
	result += fmt.Sprintf("Completed:       %8d\n", s.Completed)

	if s.FrameErrors > 0 {
		result += fmt.Sprintf("Frame Errors:    %8d\n", s.FrameErrors)
	}
	if s.ProtocolErrors > 0 {
		result += fmt.Sprintf("Protocol Errors: %8d\n", s.ProtocolErrors)
	}
	if s.UnknownCorrelations > 0 {
		result += fmt.Sprintf("Stale Acks:      %8d\n", s.UnknownCorrelations)
	}
	if s.Timeouts > 0 {
		result += fmt.Sprintf("Timeouts:        %8d\n", s.Timeouts)
	}
	if s.DeviceErrors > 0 {
		result += fmt.Sprintf("Device Errors:   %8d\n", s.DeviceErrors)
	}
	if s.Completed > 0 {
		result += fmt.Sprintf("RTT avg/max:     %v / %v\n", s.AverageRTT().Round(time.Millisecond), s.MaxRTT.Round(time.Millisecond))
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "====================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
