// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package trace records the packets crossing a Blot link to a file of
// CBOR records, one per packet, and reads them back for inspection.
package trace

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Direction tells whether a packet was sent or received
type Direction uint8

// Directions
const (
	Tx Direction = iota + 1 // Host → Blot
	Rx                      // Blot → Host
)

func (d Direction) String() string {
	switch d {
	case Tx:
		return "TX"
	case Rx:
		return "RX"
	default:
		return fmt.Sprintf("DIR(%d)", uint8(d))
	}
}

// Record is one traced packet. Packet holds the frame payload before COBS
// stuffing. Err is set instead when an inbound run failed to decode.
type Record struct {
	Time   int64     `cbor:"1,keyasint"` // Unix nanoseconds
	Dir    Direction `cbor:"2,keyasint"`
	Packet []byte    `cbor:"3,keyasint,omitempty"`
	Err    string    `cbor:"4,keyasint,omitempty"`
}

// Timestamp returns the record time
func (r Record) Timestamp() time.Time {
	return time.Unix(0, r.Time)
}

// Writer appends records to a stream. It is safe for concurrent use.
type Writer struct {
	mu  sync.Mutex
	enc *cbor.Encoder
	w   io.Writer
}

// NewWriter creates a trace writer on w
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: cbor.NewEncoder(w), w: w}
}

// Record writes a packet record stamped with the current time
func (tw *Writer) Record(dir Direction, packet []byte) error {
	return tw.Write(Record{Time: time.Now().UnixNano(), Dir: dir, Packet: packet})
}

// RecordError writes a record for an inbound run that failed to decode
func (tw *Writer) RecordError(dir Direction, cause error) error {
	return tw.Write(Record{Time: time.Now().UnixNano(), Dir: dir, Err: cause.Error()})
}

// Write appends r to the stream
func (tw *Writer) Write(r Record) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.enc.Encode(r); err != nil {
		return fmt.Errorf("failed to write trace record: %w", err)
	}
	return nil
}

// Close closes the underlying stream if it is an io.Closer
func (tw *Writer) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if c, ok := tw.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Reader decodes records from a trace stream
type Reader struct {
	dec *cbor.Decoder
}

// NewReader creates a trace reader on r
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: cbor.NewDecoder(r)}
}

// Next returns the next record, or io.EOF at the end of the stream
func (tr *Reader) Next() (Record, error) {
	var r Record
	if err := tr.dec.Decode(&r); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("failed to read trace record: %w", err)
	}
	return r, nil
}

// ReadAll returns every record in r
func ReadAll(r io.Reader) ([]Record, error) {
	tr := NewReader(r)
	var records []Record
	for {
		rec, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
}
