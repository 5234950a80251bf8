// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import (
	"sync/atomic"
	"time"

	"github.com/Thermoquad/blotctl/pkg/blot"
)

// Call is the handle for one submitted command. It resolves exactly once,
// after which Done is closed and Result returns the outcome.
type Call struct {
	cmd  blot.Command
	sess *Session
	done chan struct{}

	// Correlation index, -1 until the request is sent
	id atomic.Int32

	// Set by the session before done is closed
	resp blot.Response
	err  error
	rtt  time.Duration

	// Owned by the session loop
	submitted time.Time
	sent      time.Time
	deadline  time.Time
}

func newCall(s *Session, cmd blot.Command) *Call {
	c := &Call{
		cmd:       cmd,
		sess:      s,
		done:      make(chan struct{}),
		submitted: time.Now(),
	}
	c.id.Store(-1)
	return c
}

// Command returns the submitted command
func (c *Call) Command() blot.Command {
	return c.cmd
}

// ID returns the correlation index once the request has been sent
func (c *Call) ID() (uint8, bool) {
	id := c.id.Load()
	if id < 0 {
		return 0, false
	}
	return uint8(id), true
}

// Done is closed when the call resolves
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Result returns the response and error. It must only be called after Done
// is closed; before that it returns ErrNotResolved.
func (c *Call) Result() (blot.Response, error) {
	select {
	case <-c.done:
		return c.resp, c.err
	default:
		return blot.Response{}, ErrNotResolved
	}
}

// RTT returns the time from send to acknowledgement for resolved calls
func (c *Call) RTT() time.Duration {
	select {
	case <-c.done:
		return c.rtt
	default:
		return 0
	}
}

// Abandon stops tracking the call. A request already on the wire is not
// recalled; its late acknowledgement is discarded. The call resolves with
// ErrAbandoned unless it resolved first.
func (c *Call) Abandon() {
	if c.resolved() {
		return
	}
	c.sess.abandon(c)
}

func (c *Call) resolve(resp blot.Response, err error) {
	c.resp = resp
	c.err = err
	close(c.done)
}

func (c *Call) resolved() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
