// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package seed

import (
	"crypto/sha256"
	"io"
	"sync"

	"github.com/sixafter/csprng/x/crypto/isaac"
	"github.com/sixafter/csprng/x/crypto/xkdf"
)

// scrambleLabel namespaces the KDF used by Scramble/Unscramble from any
// other consumer of the same master secret.
var scrambleLabel = []byte("seed.scramble")

// Scrambler obfuscates seed bytes before they hit durable storage:
// output[i] = input[i] XOR keystream[i], where keystream is a
// deterministic SP800-108 expansion of the current master secret keyed
// on the record's name. Because the keystream depends only on
// (master secret, name, length) and never on call order, Scramble and
// Unscramble are true inverses for a given name — the record a caller
// named when scrambling is the same one it names when unscrambling —
// while a record stored under a different name (or after Upgrade
// rotates the master secret) decrypts to unrelated bytes rather than
// silently reusing another record's keystream.
type Scrambler struct {
	mu     sync.Mutex
	master []byte
}

// NewScrambler constructs a Scrambler whose master secret is the first
// 32 bytes of an ISAAC stream seeded by boot. Call Upgrade once a
// stronger source (the system PRNG aggregate) becomes available.
func NewScrambler(boot []byte) *Scrambler {
	return &Scrambler{master: drawMaster(isaac.New(boot))}
}

// Upgrade atomically replaces the master secret with the first 32 bytes
// read from source, typically swapping the ISAAC bootstrap for the
// system PRNG aggregate. Records scrambled under the previous master
// secret will not unscramble correctly afterward; callers upgrade
// before any seed is durably written, not after.
func (s *Scrambler) Upgrade(source io.Reader) {
	master := drawMaster(source)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.master = master
}

func drawMaster(r io.Reader) []byte {
	key := make([]byte, 32)
	_, _ = io.ReadFull(r, key)
	return key
}

// Scramble XORs data against the deterministic keystream derived from
// name under the current master secret.
func (s *Scrambler) Scramble(name string, data []byte) []byte { return s.xor(name, data) }

// Unscramble reverses Scramble: the same (master secret, name) pair
// regenerates the identical keystream, so XOR-ing it back against the
// stored bytes recovers the original data exactly.
func (s *Scrambler) Unscramble(name string, data []byte) []byte { return s.xor(name, data) }

func (s *Scrambler) xor(name string, data []byte) []byte {
	s.mu.Lock()
	master := s.master
	s.mu.Unlock()

	keystream := xkdf.KDFDoublePipeline(sha256.New, master, scrambleLabel, []byte(name), len(data))

	out := make([]byte, len(data))
	for i := range data {
		out[i] = data[i] ^ keystream[i]
	}
	return out
}
