// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package blot

import (
	"fmt"
	"time"
)

// Packet is the frame payload exchanged with the Blot firmware:
// [len(msg)][msg][len(payload)][payload][index]
type Packet struct {
	Msg     string
	Payload []byte
	Index   uint8

	timestamp time.Time
}

// NewPacket creates a packet with the given fields
func NewPacket(msg string, payload []byte, index uint8) Packet {
	return Packet{
		Msg:       msg,
		Payload:   payload,
		Index:     index,
		timestamp: time.Now(),
	}
}

// Timestamp returns when the packet was built or decoded
func (p Packet) Timestamp() time.Time {
	return p.timestamp
}

// Marshal lays the packet out in firmware order, without framing
func (p Packet) Marshal() ([]byte, error) {
	if len(p.Msg) == 0 {
		return nil, fmt.Errorf("message name is empty")
	}
	if len(p.Msg) > MaxMsgSize {
		return nil, fmt.Errorf("message is too long (%d/%d)", len(p.Msg), MaxMsgSize)
	}
	if len(p.Payload) > MaxPayloadSize {
		return nil, fmt.Errorf("payload is too long (%d/%d)", len(p.Payload), MaxPayloadSize)
	}

	buf := make([]byte, 0, 3+len(p.Msg)+len(p.Payload))
	buf = append(buf, uint8(len(p.Msg)))
	buf = append(buf, p.Msg...)
	buf = append(buf, uint8(len(p.Payload)))
	buf = append(buf, p.Payload...)
	buf = append(buf, p.Index)
	return buf, nil
}

// EncodePacket marshals and frames p, ready for transmission
func EncodePacket(p Packet) ([]byte, error) {
	data, err := p.Marshal()
	if err != nil {
		return nil, err
	}
	return EncodeFrame(data), nil
}

// MustEncodePacket encodes p and panics on error.
// Use only for packets built by this package's command builders.
func MustEncodePacket(p Packet) []byte {
	wire, err := EncodePacket(p)
	if err != nil {
		panic(fmt.Sprintf("blot: encode error: %v", err))
	}
	return wire
}

// ParsePacket decodes a frame payload into a Packet.
// Fails with a Malformed ProtocolError if the length fields disagree with
// the payload size.
func ParsePacket(data []byte) (Packet, error) {
	if len(data) < 3 {
		return Packet{}, malformed("packet too short (%d bytes)", len(data))
	}

	msgLen := int(data[0])
	if msgLen == 0 {
		return Packet{}, malformed("empty message name")
	}
	if 1+msgLen+1 >= len(data) {
		return Packet{}, malformed("message length %d exceeds packet of %d bytes", msgLen, len(data))
	}

	payloadLen := int(data[1+msgLen])
	want := 1 + msgLen + 1 + payloadLen + 1
	if want != len(data) {
		return Packet{}, malformed("length mismatch: header describes %d bytes, got %d", want, len(data))
	}

	payloadStart := 2 + msgLen
	payload := make([]byte, payloadLen)
	copy(payload, data[payloadStart:payloadStart+payloadLen])

	return Packet{
		Msg:       string(data[1 : 1+msgLen]),
		Payload:   payload,
		Index:     data[len(data)-1],
		timestamp: time.Now(),
	}, nil
}
