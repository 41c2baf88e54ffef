// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package event implements a per-caller entropy event source facade: a
// small, cheap handle that any part of the program can hold and post
// arbitrary values through, which fan out into consecutive Fortuna
// pools.
package event

import (
	"encoding/binary"
	"math"
	"sync/atomic"
)

// Accumulator is the subset of *fortuna.Fortuna a Source needs. It is
// satisfied structurally so this package does not import fortuna.
type Accumulator interface {
	AddEvent(poolIdx uint8, data []byte)
}

var nextSourceID uint32

// Source is a process-unique entropy event source. Two events posted
// through the same Source land in consecutive pools; two Sources
// advance independently, so no ordering between them is implied.
type Source struct {
	acc      Accumulator
	sourceID uint8
	nextPool uint32 // atomic, mod 32
}

// New allocates a Source bound to acc, with a process-unique source id
// truncated to 8 bits.
func New(acc Accumulator) *Source {
	id := atomic.AddUint32(&nextSourceID, 1)
	return &Source{acc: acc, sourceID: uint8(id)}
}

// SetEvent serialises value as big-endian bytes — 1, 2, 4 or 8 bytes for
// integer and floating-point types (floats by their IEEE 754 bits), or
// the raw bytes (truncated to 255) for a []byte — and posts the
// resulting frame. Values of any other type are ignored.
func (s *Source) SetEvent(value any) {
	var payload []byte
	switch v := value.(type) {
	case uint8:
		payload = []byte{v}
	case int8:
		payload = []byte{byte(v)}
	case uint16:
		payload = make([]byte, 2)
		binary.BigEndian.PutUint16(payload, v)
	case int16:
		payload = make([]byte, 2)
		binary.BigEndian.PutUint16(payload, uint16(v))
	case uint32:
		payload = make([]byte, 4)
		binary.BigEndian.PutUint32(payload, v)
	case int32:
		payload = make([]byte, 4)
		binary.BigEndian.PutUint32(payload, uint32(v))
	case uint64:
		payload = make([]byte, 8)
		binary.BigEndian.PutUint64(payload, v)
	case int64:
		payload = make([]byte, 8)
		binary.BigEndian.PutUint64(payload, uint64(v))
	case int:
		payload = make([]byte, 8)
		binary.BigEndian.PutUint64(payload, uint64(v))
	case float32:
		payload = make([]byte, 4)
		binary.BigEndian.PutUint32(payload, math.Float32bits(v))
	case float64:
		payload = make([]byte, 8)
		binary.BigEndian.PutUint64(payload, math.Float64bits(v))
	case []byte:
		if len(v) > 255 {
			v = v[:255]
		}
		payload = append([]byte(nil), v...)
	default:
		return
	}

	frame := make([]byte, 0, 2+len(payload))
	frame = append(frame, s.sourceID, byte(len(payload)))
	frame = append(frame, payload...)
	s.Post(frame)
}

// Post advances this source's pool cursor and forwards data to the
// accumulator.
func (s *Source) Post(data []byte) {
	next := atomic.AddUint32(&s.nextPool, 1) % 32
	s.acc.AddEvent(uint8(next), data)
}
