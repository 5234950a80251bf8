// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package blot

import (
	"bytes"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// randomCommand picks a command of any kind with arbitrary in-range values
func randomCommand(rng *rand.Rand) Command {
	switch rng.Intn(5) {
	case 0:
		return Move(float64(float32(rng.Float64()*2000-1000)), float64(float32(rng.Float64()*2000-1000)))
	case 1:
		return Motors(rng.Intn(2) == 1)
	case 2:
		return Pen(rng.Intn(2) == 1)
	case 3:
		return OriginSet()
	default:
		return OriginGoto()
	}
}

// ============================================================
// Codec Fuzz Tests
// ============================================================

// TestFuzzFrame_RoundTrip encodes random payloads and checks they decode
// unchanged with no interior delimiter
func TestFuzzFrame_RoundTrip(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		payload := make([]byte, rng.Intn(MaxPacketSize+1))
		rng.Read(payload)
		// Bias towards zero bytes
		for j := range payload {
			if rng.Intn(4) == 0 {
				payload[j] = 0
			}
		}

		frame := EncodeFrame(payload)
		if bytes.IndexByte(frame[:len(frame)-1], Delimiter) >= 0 {
			t.Fatalf("Round %d: interior delimiter in % X", i, frame)
		}

		decoded, err := DecodeFrame(frame)
		if err != nil {
			t.Fatalf("Round %d: decode error: %v", i, err)
		}
		if !bytes.Equal(decoded, payload) {
			t.Fatalf("Round %d: round trip mismatch", i)
		}
	}
}

// TestFuzzDecoder_RandomBytes feeds random bytes to the decoder
// and verifies it doesn't crash or panic
func TestFuzzDecoder_RandomBytes(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		d := NewDecoder()

		length := rng.Intn(2048) + 1
		data := make([]byte, length)
		rng.Read(data)

		for frame, err := range d.Frames(data) {
			if err != nil {
				continue
			}
			// Anything decoded must still parse without panicking
			ParsePacket(frame)
			ParseResponse(frame)
		}
	}
}

// TestFuzzDecoder_RandomCommands streams many random commands with random
// chunking and verifies each one is recovered in order
func TestFuzzDecoder_RandomCommands(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		d := NewDecoder()

		count := rng.Intn(8) + 1
		cmds := make([]Command, count)
		var wire []byte
		for j := range cmds {
			cmds[j] = randomCommand(rng)
			wire = append(wire, MustEncodePacket(cmds[j].Packet(uint8(j)))...)
		}

		got := 0
		for len(wire) > 0 {
			n := min(rng.Intn(16)+1, len(wire))
			for frame, err := range d.Frames(wire[:n]) {
				if err != nil {
					t.Fatalf("Round %d: unexpected error: %v", i, err)
				}
				p, err := ParsePacket(frame)
				if err != nil {
					t.Fatalf("Round %d: parse error: %v", i, err)
				}
				cmd, err := ParseCommand(p)
				if err != nil {
					t.Fatalf("Round %d: command error: %v", i, err)
				}
				if cmd != cmds[got] {
					t.Fatalf("Round %d: command %d = %+v, want %+v", i, got, cmd, cmds[got])
				}
				if p.Index != uint8(got) {
					t.Fatalf("Round %d: index %d, want %d", i, p.Index, got)
				}
				got++
			}
			wire = wire[n:]
		}

		if got != count {
			t.Errorf("Round %d: decoded %d commands, want %d", i, got, count)
		}
	}
}

// TestFuzzDecoder_CorruptedFrames corrupts a byte inside valid frames and
// checks the following frame still decodes
func TestFuzzDecoder_CorruptedFrames(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		d := NewDecoder()

		bad := MustEncodePacket(randomCommand(rng).Packet(1))
		corruptIdx := rng.Intn(len(bad) - 1) // Never the delimiter
		bad[corruptIdx] ^= byte(rng.Intn(255) + 1)

		good := Move(12, 34)
		wire := cat(bad, MustEncodePacket(good.Packet(2)))

		var last []byte
		for frame, err := range d.Frames(wire) {
			if err == nil {
				last = frame
			}
		}

		p, err := ParsePacket(last)
		if err != nil {
			t.Fatalf("Round %d: frame after corruption did not parse: %v", i, err)
		}
		if p.Index != 2 {
			t.Errorf("Round %d: last index = %d, want 2", i, p.Index)
		}
	}
}

// TestFuzzDecoder_GarbageRuns interleaves delimiter-terminated runs of line
// noise with valid frames and checks every valid frame survives in order
func TestFuzzDecoder_GarbageRuns(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		d := NewDecoder()

		count := rng.Intn(6) + 1
		want := make([][]byte, count)
		runs := 0
		var wire []byte
		for j := range want {
			if rng.Intn(3) > 0 {
				// Noise never holds a delimiter; some runs overflow the frame limit
				run := make([]byte, rng.Intn(MaxFrameSize+64)+1)
				for k := range run {
					run[k] = byte(rng.Intn(255) + 1)
				}
				wire = append(wire, run...)
				wire = append(wire, Delimiter)
				runs++
			}

			raw, err := randomCommand(rng).Packet(uint8(j)).Marshal()
			if err != nil {
				t.Fatalf("Round %d: Marshal() error: %v", i, err)
			}
			want[j] = raw
			wire = append(wire, EncodeFrame(raw)...)
		}

		var frames [][]byte
		errs := 0
		for len(wire) > 0 {
			n := min(rng.Intn(64)+1, len(wire))
			for frame, err := range d.Frames(wire[:n]) {
				if err != nil {
					errs++
					continue
				}
				frames = append(frames, frame)
			}
			wire = wire[n:]
		}

		if errs > runs {
			t.Errorf("Round %d: %d errors for %d noise runs", i, errs, runs)
		}
		if errs+len(frames) > runs+count {
			t.Errorf("Round %d: %d results for %d runs and %d frames", i, errs+len(frames), runs, count)
		}

		// Noise may happen to decode, so the valid frames must form an
		// ordered subsequence of what came out
		next := 0
		for _, frame := range frames {
			if next < count && bytes.Equal(frame, want[next]) {
				next++
			}
		}
		if next != count {
			t.Errorf("Round %d: recovered %d of %d frames in order", i, next, count)
		}
		if d.Buffered() != 0 {
			t.Errorf("Round %d: %d bytes left buffered", i, d.Buffered())
		}
	}
}
