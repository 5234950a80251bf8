// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package blot

import (
	"bytes"
	"errors"
	"testing"
)

// ============================================================
// COBS Encoding Tests
// ============================================================

func seq(from, to int) []byte {
	out := make([]byte, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, byte(i))
	}
	return out
}

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestEncodeFrame_KnownVectors(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    []byte
	}{
		{"empty", []byte{}, []byte{0x01, 0x00}},
		{"single zero", []byte{0x00}, []byte{0x01, 0x01, 0x00}},
		{"two zeros", []byte{0x00, 0x00}, []byte{0x01, 0x01, 0x01, 0x00}},
		{"zero data zero", []byte{0x00, 0x11, 0x00}, []byte{0x01, 0x02, 0x11, 0x01, 0x00}},
		{"embedded zero", []byte{0x11, 0x22, 0x00, 0x33}, []byte{0x03, 0x11, 0x22, 0x02, 0x33, 0x00}},
		{"no zeros", []byte{0x11, 0x22, 0x33, 0x44}, []byte{0x05, 0x11, 0x22, 0x33, 0x44, 0x00}},
		{"trailing zeros", []byte{0x11, 0x00, 0x00, 0x00}, []byte{0x02, 0x11, 0x01, 0x01, 0x01, 0x00}},
		{"254 non-zero", seq(0x01, 0xFE), cat([]byte{0xFF}, seq(0x01, 0xFE), []byte{0x00})},
		{"255 bytes with leading zero", seq(0x00, 0xFE), cat([]byte{0x01, 0xFF}, seq(0x01, 0xFE), []byte{0x00})},
		{"255 non-zero", seq(0x01, 0xFF), cat([]byte{0xFF}, seq(0x01, 0xFE), []byte{0x02, 0xFF, 0x00})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeFrame(tt.payload)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeFrame() = % X\nwant % X", got, tt.want)
			}

			decoded, err := DecodeFrame(got)
			if err != nil {
				t.Fatalf("DecodeFrame() error: %v", err)
			}
			if !bytes.Equal(decoded, tt.payload) {
				t.Errorf("DecodeFrame() = % X, want % X", decoded, tt.payload)
			}
		})
	}
}

func TestEncodeFrame_NoInteriorDelimiter(t *testing.T) {
	payload := make([]byte, MaxPacketSize)
	for i := range payload {
		payload[i] = byte(i % 3) // Many zeros
	}

	frame := EncodeFrame(payload)
	if frame[len(frame)-1] != Delimiter {
		t.Fatalf("frame must end with delimiter")
	}
	if i := bytes.IndexByte(frame[:len(frame)-1], Delimiter); i >= 0 {
		t.Errorf("delimiter found inside frame at offset %d", i)
	}
	if len(frame)-1 > MaxFrameSize {
		t.Errorf("encoded size %d exceeds MaxFrameSize %d", len(frame)-1, MaxFrameSize)
	}
}

func TestEncodeFrame_RoundTripAllLengths(t *testing.T) {
	for n := 0; n <= MaxPacketSize; n++ {
		payload := make([]byte, n)
		for i := range payload {
			payload[i] = byte((i*7 + n) % 256)
		}

		decoded, err := DecodeFrame(EncodeFrame(payload))
		if err != nil {
			t.Fatalf("length %d: DecodeFrame() error: %v", n, err)
		}
		if !bytes.Equal(decoded, payload) {
			t.Fatalf("length %d: round trip mismatch", n)
		}
	}
}

func TestDecodeFrame_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
	}{
		{"empty", []byte{}},
		{"only delimiter", []byte{0x00}},
		{"code overruns", []byte{0x05, 0x11, 0x22, 0x00}},
		{"second code overruns", []byte{0x02, 0x11, 0x09, 0x22, 0x00}},
		{"interior zero", []byte{0x03, 0x11, 0x00, 0x22, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFrame(tt.frame)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrInvalidFrame) {
				t.Errorf("error %v should match ErrInvalidFrame", err)
			}
			var fe *FrameError
			if !errors.As(err, &fe) {
				t.Errorf("error %T should be *FrameError", err)
			}
		})
	}
}
