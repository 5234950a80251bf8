// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package blot

import "fmt"

// Outcome is the result carried by a response
type Outcome int

// Response outcomes
const (
	OutcomeOK Outcome = iota
	OutcomeDeviceError
)

func (o Outcome) String() string {
	if o == OutcomeOK {
		return "ok"
	}
	return "device error"
}

// Response is a decoded acknowledgement from the Blot
type Response struct {
	ID      uint8 // Echoed correlation index
	Outcome Outcome
	Data    []byte // Optional data for OutcomeOK
	Code    uint8  // Error code for OutcomeDeviceError
}

// Err returns a *DeviceError for failed outcomes, nil otherwise
func (r Response) Err() error {
	if r.Outcome == OutcomeDeviceError {
		return &DeviceError{Code: r.Code, Index: r.ID}
	}
	return nil
}

// Ack builds the response packet the firmware sends after a command
func Ack(index uint8, data []byte) Packet {
	if data == nil {
		data = []byte{}
	}
	return NewPacket(MsgAck, data, index)
}

// Nack builds a device error response packet
func Nack(index uint8, code uint8) Packet {
	return NewPacket(MsgError, []byte{code}, index)
}

// ParseResponse decodes a frame payload into a Response.
// Unknown tags and bad payload sizes fail with a Malformed ProtocolError.
func ParseResponse(data []byte) (Response, error) {
	p, err := ParsePacket(data)
	if err != nil {
		return Response{}, err
	}
	return ResponseFromPacket(p)
}

// ResponseFromPacket interprets an already parsed packet as a response
func ResponseFromPacket(p Packet) (Response, error) {
	switch p.Msg {
	case MsgAck:
		return Response{ID: p.Index, Outcome: OutcomeOK, Data: p.Payload}, nil

	case MsgError:
		if len(p.Payload) != errorPayloadSize {
			return Response{}, &ProtocolError{
				Kind:     Malformed,
				Reason:   fmt.Sprintf("error payload is %d bytes, expected %d", len(p.Payload), errorPayloadSize),
				Index:    p.Index,
				HasIndex: true,
			}
		}
		return Response{ID: p.Index, Outcome: OutcomeDeviceError, Code: p.Payload[0]}, nil
	}

	return Response{}, &ProtocolError{
		Kind:     Malformed,
		Reason:   fmt.Sprintf("unknown response %q", p.Msg),
		Index:    p.Index,
		HasIndex: true,
	}
}
