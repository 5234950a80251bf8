// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package blot

import (
	"fmt"
	"strings"
)

// FormatPacket formats a packet into a human-readable string
func FormatPacket(p Packet) string {
	timestamp := p.Timestamp().Format("15:04:05.000")
	result := fmt.Sprintf("[%s] %s (#%d) len=%d\n", timestamp, FormatMessageName(p.Msg), p.Index, len(p.Payload))
	return result + FormatPayload(p)
}

// FormatMessageName returns the display name for a message
func FormatMessageName(msg string) string {
	switch msg {
	case MsgGo:
		return "GO"
	case MsgMotorsOn:
		return "MOTORS_ON"
	case MsgMotorsOff:
		return "MOTORS_OFF"
	case MsgServo:
		return "SERVO"
	case MsgSetOrigin:
		return "SET_ORIGIN"
	case MsgMoveTowardsOrigin:
		return "MOVE_TOWARDS_ORIGIN"
	case MsgAck:
		return "ACK"
	case MsgError:
		return "ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(%q)", msg)
	}
}

// FormatPayload decodes known payloads, falling back to a hex dump
func FormatPayload(p Packet) string {
	switch p.Msg {
	case MsgGo, MsgServo:
		cmd, err := ParseCommand(p)
		if err != nil {
			break
		}
		if cmd.Kind == CmdMove {
			return fmt.Sprintf("  X: %.2f mm, Y: %.2f mm\n", cmd.X, cmd.Y)
		}
		if cmd.Down {
			return "  Pen: DOWN\n"
		}
		return "  Pen: UP\n"

	case MsgError:
		if len(p.Payload) == errorPayloadSize {
			return fmt.Sprintf("  Code: 0x%02X\n", p.Payload[0])
		}
	}

	if len(p.Payload) == 0 {
		return ""
	}
	return "  Payload: " + FormatHex(p.Payload, 16) + "\n"
}

// FormatHex renders bytes as hex, wrapping every perLine bytes
func FormatHex(data []byte, perLine int) string {
	var s strings.Builder
	for i, b := range data {
		if i > 0 {
			if perLine > 0 && i%perLine == 0 {
				s.WriteString("\n           ")
			} else {
				s.WriteByte(' ')
			}
		}
		fmt.Fprintf(&s, "%02X", b)
	}
	return s.String()
}
