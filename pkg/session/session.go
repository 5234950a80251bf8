// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package session runs the request/response engine between callers and a
// Blot over a transport.
//
// A single loop goroutine owns the pending table. It multiplexes new
// submissions, decoded frames from the reader goroutine, write failures from
// the writer goroutine, abandonments, and one deadline timer. Requests are
// sent in submission order; at most Config.MaxInFlight are on the wire at
// once and the rest wait in a FIFO queue.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Thermoquad/blotctl/pkg/blot"
	"github.com/Thermoquad/blotctl/pkg/trace"
	"github.com/Thermoquad/blotctl/pkg/transport"
)

// outboxSize bounds frames handed to the writer but not yet written
const outboxSize = 256

// readBufferSize is the chunk size for transport reads
const readBufferSize = 512

// inbound carries one decoded frame, a frame error, or the read error that
// ended the stream. The read error travels on the same channel so frames
// read before it are handled first.
type inbound struct {
	payload []byte
	err     error
	fatal   error
}

// Session owns a transport and correlates requests with acknowledgements
type Session struct {
	cfg  Config
	link transport.Transport
	log  zerolog.Logger

	submitCh  chan *Call
	abandonCh chan *Call
	inboundCh chan inbound
	fatalCh   chan error
	closeCh   chan struct{}
	outbox    chan []byte

	quit chan struct{} // Stops reader and writer
	done chan struct{} // Closed after the loop exits

	closeOnce   sync.Once
	closeLink   sync.Once
	linkErr     error
	err         error // Fatal cause, set before done is closed
	outstanding atomic.Int64

	statsMu sync.Mutex
	stats   *blot.Statistics

	// Loop state
	table *pendingTable
	timer *time.Timer
}

// New starts a session over link. The session takes ownership of link and
// closes it when the session ends.
func New(link transport.Transport, cfg Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}

	s := &Session{
		cfg:       cfg,
		link:      link,
		log:       cfg.Logger.With().Str("component", "session").Logger(),
		submitCh:  make(chan *Call),
		abandonCh: make(chan *Call),
		inboundCh: make(chan inbound, 16),
		fatalCh:   make(chan error, 2),
		closeCh:   make(chan struct{}),
		outbox:    make(chan []byte, outboxSize),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		stats:     blot.NewStatistics(),
		table:     newPendingTable(),
		timer:     time.NewTimer(time.Hour),
	}
	s.timer.Stop()

	go s.readLoop()
	go s.writeLoop()
	go s.run()

	return s, nil
}

// Submit queues cmd for transmission and returns immediately.
// Commands rejected by validation resolve at once with a
// *blot.ValidationError and never reach the link.
func (s *Session) Submit(cmd blot.Command) *Call {
	c := newCall(s, cmd)

	if err := blot.ValidateCommand(cmd, s.cfg.Limits); err != nil {
		c.resolve(blot.Response{}, err)
		return c
	}

	select {
	case s.submitCh <- c:
	case <-s.done:
		c.resolve(blot.Response{}, s.closedError())
	}
	return c
}

// Do submits cmd and waits for it to resolve. If ctx ends first the call is
// abandoned and ctx.Err() is returned.
func (s *Session) Do(ctx context.Context, cmd blot.Command) (blot.Response, error) {
	c := s.Submit(cmd)

	select {
	case <-c.Done():
		return c.Result()
	case <-ctx.Done():
		c.Abandon()
		return blot.Response{}, ctx.Err()
	}
}

// Close resolves every outstanding request with ErrClosed, stops the loop,
// and closes the transport. Safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.closeCh)
	})
	<-s.done
	return s.linkErr
}

// Done is closed when the session has ended
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the fatal transport error that ended the session, or nil
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Outstanding returns the number of sent and queued requests
func (s *Session) Outstanding() int {
	return int(s.outstanding.Load())
}

// Stats returns a snapshot of the link statistics
func (s *Session) Stats() blot.Statistics {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.stats.CalculateRates()
	return *s.stats
}

// ResetStats clears the link statistics
func (s *Session) ResetStats() {
	s.withStats(func(st *blot.Statistics) { st.Reset() })
}

func (s *Session) withStats(fn func(*blot.Statistics)) {
	s.statsMu.Lock()
	fn(s.stats)
	s.statsMu.Unlock()
}

func (s *Session) closedError() error {
	return &SessionError{Kind: Closed, Err: s.err}
}

func (s *Session) abandon(c *Call) {
	select {
	case s.abandonCh <- c:
	case <-s.done:
	}
}

// ============================================================
// Loop
// ============================================================

func (s *Session) run() {
	defer close(s.done)

	for {
		select {
		case c := <-s.submitCh:
			s.table.enqueue(c)
			s.log.Debug().Str("cmd", c.cmd.String()).Int("queued", len(s.table.queue)).Msg("request submitted")

		case c := <-s.abandonCh:
			if s.table.remove(c) {
				id, sent := c.ID()
				s.log.Debug().Str("cmd", c.cmd.String()).Bool("sent", sent).Uint8("id", id).Msg("request abandoned")
				c.resolve(blot.Response{}, ErrAbandoned)
			}

		case in := <-s.inboundCh:
			if in.fatal != nil {
				s.log.Error().Err(in.fatal).Int("outstanding", s.table.count()).Msg("transport failed, closing session")
				s.shutdown(in.fatal)
				return
			}
			s.handleInbound(in)

		case <-s.timer.C:
			s.expire(time.Now())

		case err := <-s.fatalCh:
			s.drainInbound()
			s.log.Error().Err(err).Int("outstanding", s.table.count()).Msg("transport failed, closing session")
			s.shutdown(err)
			return

		case <-s.closeCh:
			s.log.Debug().Int("outstanding", s.table.count()).Msg("closing session")
			s.shutdown(nil)
			return
		}

		s.dispatch()
		s.armTimer()
		s.outstanding.Store(int64(s.table.count()))
	}
}

// dispatch sends queued requests while in-flight slots are free
func (s *Session) dispatch() {
	for {
		c, ok := s.table.next(s.cfg.MaxInFlight)
		if !ok {
			return
		}

		id, _ := c.ID()
		pkt := c.cmd.Packet(id)
		data, err := pkt.Marshal()
		if err != nil {
			// Validated commands always marshal; treat anything else as a caller bug
			s.table.take(id)
			c.resolve(blot.Response{}, fmt.Errorf("failed to encode %s: %w", c.cmd, err))
			continue
		}

		select {
		case s.outbox <- blot.EncodeFrame(data):
		default:
			s.table.take(id)
			c.resolve(blot.Response{}, &SessionError{Kind: Transport, ID: id, HasID: true, Err: errors.New("write queue full")})
			s.fail(errors.New("transport write stalled"))
			return
		}

		now := time.Now()
		c.sent = now
		c.deadline = now.Add(s.cfg.Timeout)

		s.trace(trace.Tx, data, nil)
		s.withStats(func(st *blot.Statistics) { st.RecordSent() })
		s.log.Debug().
			Uint8("id", id).
			Str("cmd", c.cmd.String()).
			Dur("queued_for", c.sent.Sub(c.submitted)).
			Msg("request sent")
	}
}

func (s *Session) handleInbound(in inbound) {
	if in.err != nil {
		s.trace(trace.Rx, nil, in.err)
		s.withStats(func(st *blot.Statistics) { st.RecordReceived(in.err, nil) })
		s.log.Debug().Err(in.err).Msg("dropped invalid frame")
		return
	}

	s.trace(trace.Rx, in.payload, nil)

	resp, err := blot.ParseResponse(in.payload)
	if err != nil {
		s.withStats(func(st *blot.Statistics) { st.RecordReceived(nil, err) })

		var pe *blot.ProtocolError
		if errors.As(err, &pe) && pe.HasIndex {
			if c, ok := s.table.take(pe.Index); ok {
				s.log.Warn().Err(err).Uint8("id", pe.Index).Msg("malformed response to request")
				c.resolve(blot.Response{}, &SessionError{Kind: Protocol, ID: pe.Index, HasID: true, Err: err})
				return
			}
		}
		s.log.Debug().Err(err).Msg("ignored malformed frame")
		return
	}

	c, ok := s.table.take(resp.ID)
	if !ok {
		stale := &blot.ProtocolError{
			Kind:     blot.UnknownCorrelation,
			Reason:   "no request in flight with this index",
			Index:    resp.ID,
			HasIndex: true,
		}
		s.withStats(func(st *blot.Statistics) { st.RecordReceived(nil, stale) })
		s.log.Debug().Uint8("id", resp.ID).Msg("discarded response with unknown index")
		return
	}

	rtt := time.Since(c.sent)
	c.rtt = rtt
	devErr := resp.Err()
	s.withStats(func(st *blot.Statistics) {
		st.RecordReceived(nil, nil)
		st.RecordResolved(rtt, devErr != nil)
	})

	if devErr != nil {
		s.log.Warn().Uint8("id", resp.ID).Uint8("code", resp.Code).Str("cmd", c.cmd.String()).Msg("device reported error")
	} else {
		s.log.Debug().Uint8("id", resp.ID).Dur("rtt", rtt).Msg("request acknowledged")
	}
	c.resolve(resp, devErr)
}

// drainInbound handles frames already read when the writer fails, so
// acknowledged requests are not reported as transport failures
func (s *Session) drainInbound() {
	for {
		select {
		case in := <-s.inboundCh:
			if in.fatal != nil {
				return
			}
			s.handleInbound(in)
		default:
			return
		}
	}
}

// expire resolves every in-flight request whose deadline has passed
func (s *Session) expire(now time.Time) {
	for _, c := range s.table.expired(now) {
		id, _ := c.ID()
		s.withStats(func(st *blot.Statistics) { st.RecordTimeout() })
		s.log.Warn().Uint8("id", id).Str("cmd", c.cmd.String()).Dur("timeout", s.cfg.Timeout).Msg("request timed out")
		c.resolve(blot.Response{}, &SessionError{Kind: Timeout, ID: id, HasID: true})
	}
}

// armTimer points the deadline timer at the earliest in-flight deadline
func (s *Session) armTimer() {
	deadline, ok := s.table.earliestDeadline()
	if !ok {
		s.timer.Stop()
		return
	}
	s.timer.Reset(max(time.Until(deadline), 0))
}

// fail reports a fatal error to the loop without blocking
func (s *Session) fail(err error) {
	select {
	case s.fatalCh <- err:
	default:
	}
}

// shutdown resolves everything still tracked, stops the I/O goroutines and
// releases the transport. cause is nil for a local Close.
func (s *Session) shutdown(cause error) {
	s.timer.Stop()

	if cause != nil {
		s.err = &SessionError{Kind: Transport, Err: cause}
	}

	for _, c := range s.table.drain() {
		id, sent := c.ID()
		if cause != nil {
			c.resolve(blot.Response{}, &SessionError{Kind: Transport, ID: id, HasID: sent, Err: cause})
		} else {
			c.resolve(blot.Response{}, &SessionError{Kind: Closed, ID: id, HasID: sent})
		}
	}
	s.outstanding.Store(0)

	close(s.quit)
	s.closeTransport()
}

func (s *Session) closeTransport() {
	s.closeLink.Do(func() {
		s.linkErr = s.link.Close()
	})
}

func (s *Session) trace(dir trace.Direction, packet []byte, cause error) {
	if s.cfg.Tracer == nil {
		return
	}

	var err error
	if cause != nil {
		err = s.cfg.Tracer.RecordError(dir, cause)
	} else {
		err = s.cfg.Tracer.Record(dir, packet)
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("trace write failed, tracing disabled")
		s.cfg.Tracer = nil
	}
}

// ============================================================
// I/O goroutines
// ============================================================

func (s *Session) readLoop() {
	dec := blot.NewDecoder()
	buf := make([]byte, readBufferSize)

	for {
		n, err := s.link.Read(buf)
		for payload, ferr := range dec.Frames(buf[:n]) {
			select {
			case s.inboundCh <- inbound{payload: payload, err: ferr}:
			case <-s.quit:
				return
			}
		}

		if err != nil {
			select {
			case s.inboundCh <- inbound{fatal: err}:
			case <-s.quit:
				// Local close unblocked the read
			}
			return
		}
	}
}

func (s *Session) writeLoop() {
	for {
		select {
		case frame := <-s.outbox:
			if _, err := s.link.Write(frame); err != nil {
				s.fail(err)
				return
			}
		case <-s.quit:
			return
		}
	}
}
