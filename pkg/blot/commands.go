// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package blot

import (
	"encoding/binary"
	"fmt"
	"math"
)

// CommandKind identifies a device command
type CommandKind uint8

// Command kinds
const (
	CmdMove CommandKind = iota + 1
	CmdMotors
	CmdPen
	CmdOriginSet
	CmdOriginGoto
)

func (k CommandKind) String() string {
	switch k {
	case CmdMove:
		return "move"
	case CmdMotors:
		return "motors"
	case CmdPen:
		return "pen"
	case CmdOriginSet:
		return "origin set"
	case CmdOriginGoto:
		return "origin goto"
	default:
		return fmt.Sprintf("command(%d)", uint8(k))
	}
}

// Command is one request to the Blot. Only the fields relevant to Kind are
// meaningful: X and Y for CmdMove, Enable for CmdMotors, Down for CmdPen.
type Command struct {
	Kind   CommandKind
	X, Y   float64 // Millimetres
	Enable bool
	Down   bool
}

// Move creates a Move command to absolute coordinates in millimetres
func Move(x, y float64) Command {
	return Command{Kind: CmdMove, X: x, Y: y}
}

// Motors creates a stepper enable/disable command
func Motors(enable bool) Command {
	return Command{Kind: CmdMotors, Enable: enable}
}

// Pen creates a pen lift command. down=true lowers the pen onto the paper.
func Pen(down bool) Command {
	return Command{Kind: CmdPen, Down: down}
}

// OriginSet stores the current pen location as the origin
func OriginSet() Command {
	return Command{Kind: CmdOriginSet}
}

// OriginGoto moves the pen towards the stored origin
func OriginGoto() Command {
	return Command{Kind: CmdOriginGoto}
}

// Tag returns the firmware message name for the command
func (c Command) Tag() string {
	switch c.Kind {
	case CmdMove:
		return MsgGo
	case CmdMotors:
		if c.Enable {
			return MsgMotorsOn
		}
		return MsgMotorsOff
	case CmdPen:
		return MsgServo
	case CmdOriginSet:
		return MsgSetOrigin
	case CmdOriginGoto:
		return MsgMoveTowardsOrigin
	default:
		return ""
	}
}

// Payload returns the argument bytes for the command
func (c Command) Payload() []byte {
	switch c.Kind {
	case CmdMove:
		buf := make([]byte, goPayloadSize)
		binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(float32(c.X)))
		binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(float32(c.Y)))
		return buf
	case CmdPen:
		buf := make([]byte, servoPayloadSize)
		pulse := ServoPenUp
		if c.Down {
			pulse = ServoPenDown
		}
		binary.LittleEndian.PutUint32(buf, pulse)
		return buf
	default:
		return []byte{}
	}
}

// Packet builds the request packet carrying the given correlation index
func (c Command) Packet(index uint8) Packet {
	return NewPacket(c.Tag(), c.Payload(), index)
}

// String returns a short human-readable description
func (c Command) String() string {
	switch c.Kind {
	case CmdMove:
		return fmt.Sprintf("go (%.2f, %.2f)", c.X, c.Y)
	case CmdMotors:
		if c.Enable {
			return "motors on"
		}
		return "motors off"
	case CmdPen:
		if c.Down {
			return "pen down"
		}
		return "pen up"
	default:
		return c.Kind.String()
	}
}

// ParseCommand decodes a request packet back into a Command.
// Fails with a Malformed ProtocolError for unknown tags or payloads that do
// not match the tag's fixed size.
func ParseCommand(p Packet) (Command, error) {
	expect := func(n int) error {
		if len(p.Payload) != n {
			return &ProtocolError{
				Kind:     Malformed,
				Reason:   fmt.Sprintf("%s payload is %d bytes, expected %d", p.Msg, len(p.Payload), n),
				Index:    p.Index,
				HasIndex: true,
			}
		}
		return nil
	}

	switch p.Msg {
	case MsgGo:
		if err := expect(goPayloadSize); err != nil {
			return Command{}, err
		}
		x := math.Float32frombits(binary.LittleEndian.Uint32(p.Payload[0:4]))
		y := math.Float32frombits(binary.LittleEndian.Uint32(p.Payload[4:8]))
		return Move(float64(x), float64(y)), nil

	case MsgServo:
		if err := expect(servoPayloadSize); err != nil {
			return Command{}, err
		}
		return Pen(binary.LittleEndian.Uint32(p.Payload) == ServoPenDown), nil

	case MsgMotorsOn, MsgMotorsOff:
		if err := expect(0); err != nil {
			return Command{}, err
		}
		return Motors(p.Msg == MsgMotorsOn), nil

	case MsgSetOrigin:
		if err := expect(0); err != nil {
			return Command{}, err
		}
		return OriginSet(), nil

	case MsgMoveTowardsOrigin:
		if err := expect(0); err != nil {
			return Command{}, err
		}
		return OriginGoto(), nil
	}

	return Command{}, &ProtocolError{
		Kind:     Malformed,
		Reason:   fmt.Sprintf("unknown request %q", p.Msg),
		Index:    p.Index,
		HasIndex: true,
	}
}
