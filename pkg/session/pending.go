// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import "time"

// pendingTable tracks sent requests by correlation index and the queue of
// requests waiting for a free slot. It is owned by the session loop and is
// not safe for concurrent use.
type pendingTable struct {
	inFlight map[uint8]*Call
	queue    []*Call
	nextID   uint8
}

func newPendingTable() *pendingTable {
	return &pendingTable{
		inFlight: make(map[uint8]*Call),
	}
}

// enqueue appends c to the waiting queue
func (t *pendingTable) enqueue(c *Call) {
	t.queue = append(t.queue, c)
}

// next pops the oldest queued call if fewer than limit are in flight, and
// assigns it a correlation index unique among the in-flight set
func (t *pendingTable) next(limit int) (*Call, bool) {
	if len(t.queue) == 0 || len(t.inFlight) >= limit {
		return nil, false
	}

	id, ok := t.allocID()
	if !ok {
		return nil, false
	}

	c := t.queue[0]
	t.queue[0] = nil
	t.queue = t.queue[1:]

	c.id.Store(int32(id))
	t.inFlight[id] = c
	return c, true
}

// allocID returns the next index not in flight, counting up modulo 256
func (t *pendingTable) allocID() (uint8, bool) {
	for i := 0; i < 256; i++ {
		id := t.nextID
		t.nextID++
		if _, busy := t.inFlight[id]; !busy {
			return id, true
		}
	}
	return 0, false
}

// take removes and returns the in-flight call for id
func (t *pendingTable) take(id uint8) (*Call, bool) {
	c, ok := t.inFlight[id]
	if ok {
		delete(t.inFlight, id)
	}
	return c, ok
}

// remove drops c from tracking wherever it is
func (t *pendingTable) remove(c *Call) bool {
	if id, ok := c.ID(); ok {
		if cur, found := t.inFlight[id]; found && cur == c {
			delete(t.inFlight, id)
			return true
		}
		return false
	}

	for i, q := range t.queue {
		if q == c {
			t.queue = append(t.queue[:i], t.queue[i+1:]...)
			return true
		}
	}
	return false
}

// expired removes and returns in-flight calls whose deadline is not after now
func (t *pendingTable) expired(now time.Time) []*Call {
	var out []*Call
	for id, c := range t.inFlight {
		if !now.Before(c.deadline) {
			delete(t.inFlight, id)
			out = append(out, c)
		}
	}
	return out
}

// earliestDeadline returns the soonest in-flight deadline
func (t *pendingTable) earliestDeadline() (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, c := range t.inFlight {
		if !found || c.deadline.Before(earliest) {
			earliest = c.deadline
			found = true
		}
	}
	return earliest, found
}

// drain removes every tracked call, in-flight first, then queued in order
func (t *pendingTable) drain() []*Call {
	out := make([]*Call, 0, len(t.inFlight)+len(t.queue))
	for id, c := range t.inFlight {
		delete(t.inFlight, id)
		out = append(out, c)
	}
	out = append(out, t.queue...)
	t.queue = nil
	return out
}

// count returns the number of tracked calls
func (t *pendingTable) count() int {
	return len(t.inFlight) + len(t.queue)
}
