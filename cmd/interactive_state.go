// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/Thermoquad/blotctl/pkg/blot"
	"github.com/Thermoquad/blotctl/pkg/session"
)

// deviceState is the last state the Blot confirmed
type deviceState struct {
	X, Y     float64
	PenDown  bool
	MotorsOn bool
	OriginX  float64
	OriginY  float64
	Known    bool // Position confirmed by at least one acknowledged move
}

// apply folds an acknowledged command into the state
func (s *deviceState) apply(c blot.Command) {
	switch c.Kind {
	case blot.CmdMove:
		s.X, s.Y = c.X, c.Y
		s.Known = true
	case blot.CmdMotors:
		s.MotorsOn = c.Enable
	case blot.CmdPen:
		s.PenDown = c.Down
	case blot.CmdOriginSet:
		s.OriginX, s.OriginY = s.X, s.Y
	case blot.CmdOriginGoto:
		s.X, s.Y = s.OriginX, s.OriginY
	}
}

// pendingOp is a submitted command waiting for completion
type pendingOp struct {
	call *session.Call
	done bool
}

// opQueue holds submitted commands in submission order. Completions are
// applied from the head only, so a response that arrives early waits for
// the commands queued before it.
type opQueue struct {
	ops []*pendingOp
}

func (q *opQueue) push(c *session.Call) *pendingOp {
	op := &pendingOp{call: c}
	q.ops = append(q.ops, op)
	return op
}

// complete marks op finished and pops every finished op at the head
func (q *opQueue) complete(op *pendingOp) []*pendingOp {
	op.done = true

	n := 0
	for n < len(q.ops) && q.ops[n].done {
		n++
	}
	ready := q.ops[:n:n]
	q.ops = q.ops[n:]
	return ready
}

func (q *opQueue) len() int {
	return len(q.ops)
}

// projected returns the state the device will reach once every queued
// command succeeds
func (q *opQueue) projected(confirmed deviceState) deviceState {
	s := confirmed
	for _, op := range q.ops {
		if op.done {
			if _, err := op.call.Result(); err != nil {
				continue
			}
		}
		s.apply(op.call.Command())
	}
	return s
}

// pendingKind reports the last queued command of a kind, if any
func (q *opQueue) pendingKind(kind blot.CommandKind) (blot.Command, bool) {
	for i := len(q.ops) - 1; i >= 0; i-- {
		if c := q.ops[i].call.Command(); c.Kind == kind {
			return c, true
		}
	}
	return blot.Command{}, false
}

// pendingPosition reports whether any queued command changes the position
func (q *opQueue) pendingPosition() bool {
	for _, op := range q.ops {
		switch op.call.Command().Kind {
		case blot.CmdMove, blot.CmdOriginGoto:
			return true
		}
	}
	return false
}
