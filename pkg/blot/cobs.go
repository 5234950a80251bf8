// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package blot

import "fmt"

// EncodeFrame COBS-encodes payload and appends the frame delimiter.
// The result never contains a zero byte except the final delimiter.
func EncodeFrame(payload []byte) []byte {
	out := make([]byte, 1, len(payload)+len(payload)/254+2)
	codeIdx := 0
	code := byte(1)

	for i, b := range payload {
		if b == 0 {
			out[codeIdx] = code
			codeIdx = len(out)
			out = append(out, 0)
			code = 1
			continue
		}

		out = append(out, b)
		code++
		if code == maxCOBSBlock {
			out[codeIdx] = code
			// A full block at the end needs no trailing empty block
			if i+1 == len(payload) {
				return append(out, Delimiter)
			}
			codeIdx = len(out)
			out = append(out, 0)
			code = 1
		}
	}

	out[codeIdx] = code
	return append(out, Delimiter)
}

// decodeCOBS reverses the stuffing of a single delimiter-free run
func decodeCOBS(run []byte) ([]byte, error) {
	out := make([]byte, 0, len(run))

	for i := 0; i < len(run); {
		code := int(run[i])
		if code == 0 {
			return nil, fmt.Errorf("zero byte inside frame at offset %d", i)
		}

		end := i + code
		if end > len(run) {
			return nil, fmt.Errorf("code byte 0x%02X at offset %d overruns frame of %d bytes", code, i, len(run))
		}

		out = append(out, run[i+1:end]...)
		i = end

		if code != maxCOBSBlock && i < len(run) {
			out = append(out, 0)
		}
	}

	return out, nil
}

// DecodeFrame decodes one complete frame, with or without its trailing
// delimiter. It is the inverse of EncodeFrame.
func DecodeFrame(frame []byte) ([]byte, error) {
	if n := len(frame); n > 0 && frame[n-1] == Delimiter {
		frame = frame[:n-1]
	}
	if len(frame) == 0 {
		return nil, &FrameError{Reason: "empty frame"}
	}

	payload, err := decodeCOBS(frame)
	if err != nil {
		return nil, &FrameError{Reason: err.Error(), Dropped: len(frame)}
	}
	return payload, nil
}
