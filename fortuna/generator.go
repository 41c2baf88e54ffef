// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package fortuna

import (
	"crypto/aes"
	"crypto/sha256"
)

// sha256Sum is a small wrapper so fortuna.go doesn't need its own import
// of crypto/sha256 merely for the reseed hash.
func sha256Sum(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// rekeyInterval is the number of output bytes after which the AES-CTR
// output engine rekeys itself (2^20 bytes, bulk output).
const rekeyInterval = 1 << 20

// generator is Fortuna's AES-256-ECB-as-CTR bulk output engine: it turns
// the 32-byte key K and 128-bit counter C maintained by the accumulator
// into an arbitrarily long pseudo-random byte stream, rekeying itself
// periodically and once more after every request for forward secrecy.
//
// generator is not safe for concurrent use on its own; the owning
// Fortuna's lock serializes all access.
type generator struct {
	key [32]byte
	ctr counter128
}

// block encrypts the current counter value under key using AES-256 as a
// single-block ECB operation (i.e. plain AES-256 encryption of the
// counter bytes) and advances the counter.
func (g *generator) block() [16]byte {
	c, err := aes.NewCipher(g.key[:])
	if err != nil {
		// A 32-byte key is always valid for aes.NewCipher; this would only
		// fail if the generator's invariant (len(key) == 32) were broken.
		panic("fortuna: invalid generator key size")
	}
	var out [16]byte
	c.Encrypt(out[:], g.ctr[:])
	g.ctr.incr()
	return out
}

// rekey replaces the key with two freshly generated blocks
// (K := AES_ECB_K(C) || AES_ECB_K(C+1)), consuming two counter advances.
func (g *generator) rekey() {
	b0 := g.block()
	b1 := g.block()
	copy(g.key[:16], b0[:])
	copy(g.key[16:], b1[:])
}

// generate produces n bytes of pseudo-random output, rekeying every
// rekeyInterval bytes and performing one final forward-secrecy rekey
// after the request completes.
func (g *generator) generate(n int) []byte {
	out := make([]byte, n)
	produced := 0
	sinceRekey := 0
	for produced < n {
		b := g.block()
		take := 16
		if remaining := n - produced; remaining < take {
			take = remaining
		}
		copy(out[produced:produced+take], b[:take])
		produced += take
		sinceRekey += take
		if sinceRekey >= rekeyInterval {
			g.rekey()
			sinceRekey = 0
		}
	}
	g.rekey()
	return out
}
