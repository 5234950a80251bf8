// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import (
	"testing"
	"time"

	"github.com/Thermoquad/blotctl/pkg/blot"
	"github.com/Thermoquad/blotctl/pkg/transport"
)

// fakeDevice plays the firmware side of an in-memory link. Every decoded
// request is delivered on requests; the test decides how to answer.
type fakeDevice struct {
	t        *testing.T
	end      *transport.PipeEnd
	requests chan blot.Packet
	garbage  chan error
}

func newFakeDevice(t *testing.T) (*fakeDevice, *transport.PipeEnd) {
	t.Helper()
	host, dev := transport.Pipe()

	d := &fakeDevice{
		t:        t,
		end:      dev,
		requests: make(chan blot.Packet, 64),
		garbage:  make(chan error, 64),
	}
	go d.readLoop()
	t.Cleanup(func() { dev.Close() })
	return d, host
}

func (d *fakeDevice) readLoop() {
	dec := blot.NewDecoder()
	buf := make([]byte, 256)
	for {
		n, err := d.end.Read(buf)
		for payload, ferr := range dec.Frames(buf[:n]) {
			if ferr != nil {
				d.garbage <- ferr
				continue
			}
			p, perr := blot.ParsePacket(payload)
			if perr != nil {
				d.garbage <- perr
				continue
			}
			d.requests <- p
		}
		if err != nil {
			close(d.requests)
			return
		}
	}
}

// expect waits for the next request
func (d *fakeDevice) expect() blot.Packet {
	d.t.Helper()
	select {
	case p, ok := <-d.requests:
		if !ok {
			d.t.Fatal("link closed while waiting for request")
		}
		return p
	case <-time.After(2 * time.Second):
		d.t.Fatal("timed out waiting for request")
	}
	return blot.Packet{}
}

// expectNone asserts that no request arrives within wait
func (d *fakeDevice) expectNone(wait time.Duration) {
	d.t.Helper()
	select {
	case p, ok := <-d.requests:
		if ok {
			d.t.Fatalf("unexpected request %s (#%d)", p.Msg, p.Index)
		}
	case <-time.After(wait):
	}
}

// send writes a framed packet to the host
func (d *fakeDevice) send(p blot.Packet) {
	d.t.Helper()
	d.write(blot.MustEncodePacket(p))
}

// write sends raw bytes to the host
func (d *fakeDevice) write(b []byte) {
	d.t.Helper()
	if _, err := d.end.Write(b); err != nil {
		d.t.Fatalf("device write failed: %v", err)
	}
}

// ack answers p with an empty acknowledgement
func (d *fakeDevice) ack(p blot.Packet) {
	d.t.Helper()
	d.send(blot.Ack(p.Index, nil))
}

func newTestSession(t *testing.T, mutate func(*Config)) (*Session, *fakeDevice) {
	t.Helper()
	dev, host := newFakeDevice(t)

	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	s, err := New(host, cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, dev
}

// wait blocks until c resolves
func wait(t *testing.T, c *Call) (blot.Response, error) {
	t.Helper()
	select {
	case <-c.Done():
		return c.Result()
	case <-time.After(2 * time.Second):
		t.Fatalf("%s did not resolve", c.Command())
	}
	return blot.Response{}, nil
}

// eventually polls cond until it holds
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", what)
}
