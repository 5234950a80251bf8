// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package blot implements the Blot drawing machine serial protocol.
//
// Packets are COBS-framed on the wire and terminated by a single zero byte.
// Each packet carries a length-prefixed ASCII message name, a length-prefixed
// payload, and a one-byte index that the firmware echoes back in its
// acknowledgement. This package provides the frame codec, packet layout,
// command builders, response parsing, validation, and formatting.
package blot

// Framing
const (
	Delimiter = 0x00

	// maxCOBSBlock is the longest run a single COBS code byte can describe.
	maxCOBSBlock = 0xFF
)

// Packet size limits
const (
	MaxMsgSize     = 255
	MaxPayloadSize = 255
	MaxPacketSize  = 1 + MaxMsgSize + 1 + MaxPayloadSize + 1 // 513
	// MaxFrameSize is the longest encoded frame (excluding the delimiter)
	MaxFrameSize = MaxPacketSize + MaxPacketSize/254 + 1
)

// Request message names (Host → Blot)
const (
	MsgGo                = "go"
	MsgMotorsOn          = "motorsOn"
	MsgMotorsOff         = "motorsOff"
	MsgServo             = "servo"
	MsgSetOrigin         = "setOrigin"
	MsgMoveTowardsOrigin = "moveTowardsOrigin"
)

// Response message names (Blot → Host)
const (
	MsgAck   = "ack"
	MsgError = "error"
)

// Servo pulse widths for the pen lift
const (
	ServoPenUp   uint32 = 1000
	ServoPenDown uint32 = 1700
)

// Payload sizes per request
const (
	goPayloadSize    = 8
	servoPayloadSize = 4
	errorPayloadSize = 1
)

// DefaultCoordinateLimit bounds |x| and |y| in millimetres
const DefaultCoordinateLimit = 1000.0
