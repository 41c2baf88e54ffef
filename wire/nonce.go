// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package wire holds the small serialization utilities this module needs
// for DRBG nonces/personalization and for seed persistence: a time-based
// UUID nonce factory, and a framed binary codec using the "modified
// UTF-8" string encoding specified for the seed file format.
package wire

import (
	"encoding/binary"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// NonceFactory produces per-instantiation nonces and a stable,
// process-unique personalization string. The nonce is the 16 raw bytes
// of an RFC 4122 version-1 (time-based) UUID, via github.com/google/uuid.
type NonceFactory struct {
	personalizeOnce sync.Once
	personalization []byte
}

// Create returns a fresh 16-byte time-based nonce.
func (f *NonceFactory) Create() []byte {
	id, err := uuid.NewUUID()
	if err != nil {
		// NewUUID only fails if the host cannot supply a MAC address or
		// clock sequence; fall back to a random (version 4) UUID so a nonce
		// is still produced rather than propagating an error through every
		// DRBG construction path.
		id = uuid.New()
	}
	raw := id[:]
	out := make([]byte, len(raw))
	copy(out, raw)
	return out
}

// Personalization returns a stable derivation of hostname, PID, and the
// time of this factory's first Personalization call, suitable as a DRBG
// personalization string that differs between processes but is constant
// for the lifetime of one.
func (f *NonceFactory) Personalization() []byte {
	f.personalizeOnce.Do(func() {
		host, _ := os.Hostname()
		pid := os.Getpid()
		boot := time.Now().UnixNano()

		buf := make([]byte, 0, len(host)+8+8)
		buf = append(buf, host...)
		var pidBuf [8]byte
		binary.BigEndian.PutUint64(pidBuf[:], uint64(pid))
		buf = append(buf, pidBuf[:]...)
		var bootBuf [8]byte
		binary.BigEndian.PutUint64(bootBuf[:], uint64(boot))
		buf = append(buf, bootBuf[:]...)

		f.personalization = buf
	})
	return f.personalization
}

// DefaultNonceFactory is the package-level factory used by DRBG
// constructors that do not supply their own.
var DefaultNonceFactory = &NonceFactory{}
