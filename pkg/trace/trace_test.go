// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package trace

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"
	"time"
)

func TestWriterReader(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	before := time.Now()
	if err := w.Record(Tx, []byte{0x02, 'g', 'o', 0x00, 0x01}); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if err := w.Record(Rx, []byte{0x03, 'a', 'c', 'k', 0x00, 0x01}); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if err := w.RecordError(Rx, errors.New("invalid frame")); err != nil {
		t.Fatalf("RecordError() error: %v", err)
	}

	records, err := ReadAll(&buf)
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}

	if records[0].Dir != Tx || !bytes.Equal(records[0].Packet, []byte{0x02, 'g', 'o', 0x00, 0x01}) {
		t.Errorf("record 0 = %+v", records[0])
	}
	if records[1].Dir != Rx || records[1].Err != "" {
		t.Errorf("record 1 = %+v", records[1])
	}
	if records[2].Err != "invalid frame" || records[2].Packet != nil {
		t.Errorf("record 2 = %+v", records[2])
	}
	if records[0].Timestamp().Before(before.Add(-time.Second)) {
		t.Errorf("timestamp %v too old", records[0].Timestamp())
	}
}

func TestReader_Empty(t *testing.T) {
	_, err := NewReader(&bytes.Buffer{}).Next()
	if !errors.Is(err, io.EOF) {
		t.Errorf("Next() on empty stream = %v, want io.EOF", err)
	}
}

func TestReader_Corrupt(t *testing.T) {
	// A CBOR text string where a map is expected
	_, err := ReadAll(bytes.NewReader([]byte{0x63, 'a', 'b', 'c'}))
	if err == nil {
		t.Error("expected error for non-record data")
	}
}

func TestWriter_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				w.Record(Direction(i%2+1), []byte{byte(i), byte(j)})
			}
		}(i)
	}
	wg.Wait()

	records, err := ReadAll(&buf)
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if len(records) != 400 {
		t.Errorf("got %d records, want 400", len(records))
	}
}

func TestDirection_String(t *testing.T) {
	if Tx.String() != "TX" || Rx.String() != "RX" || Direction(9).String() != "DIR(9)" {
		t.Error("unexpected Direction names")
	}
}
