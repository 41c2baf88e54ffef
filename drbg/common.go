// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package drbg implements the NIST SP800-90A deterministic random bit
// generator family — Hash_DRBG, HMAC_DRBG and CTR_DRBG (AES-256) —
// sharing one common reseeding, spare-byte buffering, and deferred
// initial-material framework.
//
// Each concrete DRBG keeps its crypto state and working counter under
// the mutex of its embedded baseRandom. Instead of self-seeding from
// crypto/rand on construction and periodically thereafter, every DRBG
// here draws its material from a SeedSource (typically Fortuna) and
// reseeds on a fixed operation cadence ("resistance").
package drbg

import (
	"errors"
	"sync"
)

// ErrNilSeedSource reports a missing SeedSource. No function in this
// package returns it: the New* constructors return no error and accept a
// nil source without checking it.
var ErrNilSeedSource = errors.New("drbg: nil seed source")

// DRBG is the common interface satisfied by HashDRBG, HmacDRBG and
// CtrDRBG.
type DRBG interface {
	// NextBytes fills out with pseudo-random bytes, reseeding from the
	// configured SeedSource whenever the operation count exceeds the
	// configured resistance.
	NextBytes(out []byte) error

	// SetSeed mixes extra into the DRBG's internal state immediately,
	// independent of the resistance-based reseed schedule.
	SetSeed(extra []byte) error

	// GenerateSeed returns n pseudo-random bytes, equivalent to calling
	// NextBytes with a buffer of length n.
	GenerateSeed(n int) ([]byte, error)

	// NewSeed returns a seedlen-sized buffer of pseudo-random bytes,
	// suitable for reseeding a downstream consumer.
	NewSeed() ([]byte, error)
}

// engine is the algorithm-specific hook baseRandom delegates to. Each of
// HashDRBG, HmacDRBG, CtrDRBG implements it.
type engine interface {
	// initialise realizes freshly composed InitialMaterial into the
	// algorithm's internal state. Called exactly once, lazily, on first
	// use.
	initialise(material []byte)

	// reseed mixes additional seed material into the algorithm's state
	// (SP800-90A's "reseed"/"set_seed" operation).
	reseed(seed []byte)

	// beginGenerate resets any per-call scratch state derived from the
	// durable state (e.g. Hash_DRBG's working register W := V).
	beginGenerate()

	// fillBlock writes exactly blockSize() bytes of output, advancing
	// scratch state.
	fillBlock(dst []byte)

	// endGenerate finalizes the durable state after a generate call
	// (Hash_DRBG's V/C/op_counter update, HMAC_DRBG's final update(nil),
	// CTR_DRBG's self-reseed with an all-zero 48-byte seed).
	endGenerate()

	blockSize() int
	seedLen() int

	// sectionSize caps how many bytes are produced per begin/end
	// generate cycle within a single NextBytes call. 0 means unlimited.
	// Only Hash_DRBG uses this, with a 128 KiB section limit.
	sectionSize() int
}

// baseRandom is the common reseeding/spare-byte/deferred-init framework
// embedded by each concrete DRBG.
type baseRandom struct {
	mu          sync.Mutex
	source      SeedSource
	pending     *InitialMaterial
	resistance  int
	counter     int
	spare       []byte
	initialized bool
}

// SetPendingMaterial overrides the InitialMaterial realized on first
// use. Builder uses this to thread entropy/nonce/personalization
// parameters parsed from an algorithm string into a freshly constructed
// DRBG before its first operation.
func (b *baseRandom) SetPendingMaterial(m *InitialMaterial) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = m
}

func (b *baseRandom) ensureInit(e engine) {
	if b.initialized {
		return
	}
	material := b.pending.Realize(b.source, e.seedLen(), e.seedLen())
	e.initialise(material)
	b.pending = nil
	b.counter = 1
	b.initialized = true
}

// nextBytes implements the common NextBytes algorithm shared by every
// concrete DRBG.
func (b *baseRandom) nextBytes(e engine, out []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ensureInit(e)

	n := copy(out, b.spare)
	b.spare = b.spare[n:]
	out = out[n:]
	if len(out) == 0 {
		return nil
	}

	if b.counter > b.resistance {
		seed := b.source.GetSeed(e.seedLen())
		e.reseed(seed)
		b.counter = 1
	} else {
		b.counter++
	}

	section := e.sectionSize()
	if section <= 0 {
		section = len(out)
	}

	bs := e.blockSize()
	pos := 0
	for pos < len(out) {
		end := pos + section
		if end > len(out) {
			end = len(out)
		}
		chunk := out[pos:end]
		isLast := end == len(out)

		e.beginGenerate()
		full := len(chunk) / bs
		for i := 0; i < full; i++ {
			e.fillBlock(chunk[i*bs : (i+1)*bs])
		}
		if rem := len(chunk) - full*bs; rem > 0 {
			tmp := make([]byte, bs)
			e.fillBlock(tmp)
			copy(chunk[full*bs:], tmp[:rem])
			if isLast {
				b.spare = append(b.spare, tmp[rem:]...)
			}
		}
		e.endGenerate()
		pos = end
	}
	return nil
}

func (b *baseRandom) setSeed(e engine, extra []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ensureInit(e)
	e.reseed(extra)
	b.counter = 1
	return nil
}

func (b *baseRandom) generateSeed(e engine, n int) ([]byte, error) {
	out := make([]byte, n)
	if err := b.nextBytes(e, out); err != nil {
		return nil, err
	}
	return out, nil
}
