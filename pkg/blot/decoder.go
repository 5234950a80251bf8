// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package blot

import "iter"

// Decoder splits an incoming byte stream into frames.
// Bytes may arrive in chunks of any size; a partial frame is retained
// between calls until its delimiter arrives.
type Decoder struct {
	buffer   []byte
	overflow bool
	dropped  int
	backlog  []byte // Unconsumed input from an iteration stopped early
}

// NewDecoder creates a new frame decoder
func NewDecoder() *Decoder {
	return &Decoder{
		buffer: make([]byte, 0, MaxFrameSize),
	}
}

// Reset discards any partial frame
func (d *Decoder) Reset() {
	d.buffer = d.buffer[:0]
	d.overflow = false
	d.dropped = 0
	d.backlog = nil
}

// Buffered returns the number of bytes held for an incomplete frame
func (d *Decoder) Buffered() int {
	return len(d.buffer) + len(d.backlog)
}

// DecodeByte processes a single byte.
// Returns a non-nil payload (possibly zero-length) when a frame completes,
// nil while the frame is incomplete, or an error when the run ending at this
// delimiter could not be decoded.
func (d *Decoder) DecodeByte(b byte) ([]byte, error) {
	if b != Delimiter {
		if d.overflow {
			d.dropped++
			return nil, nil
		}
		if len(d.buffer) >= MaxFrameSize {
			// Stop buffering and discard until the next delimiter
			d.overflow = true
			d.dropped = len(d.buffer) + 1
			d.buffer = d.buffer[:0]
			return nil, nil
		}
		d.buffer = append(d.buffer, b)
		return nil, nil
	}

	if d.overflow {
		err := &FrameError{Reason: "frame exceeds maximum size", Dropped: d.dropped}
		d.overflow = false
		d.dropped = 0
		return nil, err
	}

	// Back-to-back delimiters are line idle, not a frame
	if len(d.buffer) == 0 {
		return nil, nil
	}

	payload, err := decodeCOBS(d.buffer)
	dropped := len(d.buffer)
	d.buffer = d.buffer[:0]
	if err != nil {
		return nil, &FrameError{Reason: err.Error(), Dropped: dropped}
	}
	return payload, nil
}

// Frames feeds chunk through the decoder and yields each completed frame or
// decode error in stream order. If the consumer stops early, the remaining
// bytes of chunk are kept and processed first by the next call.
func (d *Decoder) Frames(chunk []byte) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		data := chunk
		if len(d.backlog) > 0 {
			data = append(d.backlog, chunk...)
			d.backlog = nil
		}

		for i := 0; i < len(data); i++ {
			frame, err := d.DecodeByte(data[i])
			if frame == nil && err == nil {
				continue
			}
			if !yield(frame, err) {
				d.backlog = append([]byte(nil), data[i+1:]...)
				return
			}
		}
	}
}
