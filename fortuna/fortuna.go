// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package fortuna implements the Fortuna entropy accumulator as
// described by Ferguson & Schneier, with an adapted reseed schedule: 32
// pooled SHA-256 digest chains fed by independent event sources, a
// reseed schedule that extracts an increasing number of pools as the
// reseed counter advances, and an AES-256 counter-mode generator that
// turns the reseeded key into bulk pseudo-random output.
//
// The reseed schedule and pool placeholder here intentionally differ
// from the textbook Fortuna "power of two" test; see the reseedPoolCount
// doc comment below and DESIGN.md for why.
package fortuna

import (
	"crypto/rand"
	"io"
	"sync"
)

// NumPools is the number of independent entropy pools Fortuna maintains.
const NumPools = 32

// EntropySource supplies the initial bytes used to prime each pool at
// construction. It is typically crypto/rand.Reader, but tests use
// deterministic sources to reproduce KATs.
type EntropySource interface {
	io.Reader
}

// SeedStore lets Fortuna recover each pool's durable fingerprint across
// process restarts. Fortuna only reads from it (at construction); it
// never writes fresh fingerprints back itself — Snapshot returns them
// for the caller to Put. It is satisfied structurally by seed.Storage; fortuna does not import the
// seed package to avoid a dependency cycle between the two subsystems.
type SeedStore interface {
	Get(name string) ([]byte, bool)
	Put(name string, data []byte)
}

// Fulfillment reports how much entropy has been supplied to and consumed
// from the accumulator over the period since the last call to
// (*Fortuna).Fulfillment.
type Fulfillment struct {
	Provided uint64
	Used     uint64
	Excess   int64
}

// Fortuna is the entropy accumulator. The zero value is not usable; use
// New. All exported methods are safe for concurrent use.
type Fortuna struct {
	mu        sync.Mutex
	pools     [NumPools]*pool
	gen       generator
	reseedCnt uint64
	provided  uint64
	used      uint64
}

// Option configures New.
type Option func(*config)

type config struct {
	entropy EntropySource
	store   SeedStore
}

// WithEntropySource overrides the source used to prime pools at
// construction. Defaults to crypto/rand.Reader.
func WithEntropySource(r EntropySource) Option {
	return func(c *config) { c.entropy = r }
}

// WithSeedStore supplies a durable store Fortuna reads at construction
// to recover each pool's last fingerprint. Fortuna does not write to the
// store; persisting fresh fingerprints is done by passing Snapshot's
// result to the store.
func WithSeedStore(s SeedStore) Option {
	return func(c *config) { c.store = s }
}

// poolSeedName returns the persisted-state name for pool i, matching
// ("Fortuna.0"..."Fortuna.31").
func poolSeedName(i int) string {
	const digits = "0123456789"
	if i < 10 {
		return "Fortuna." + string(digits[i])
	}
	return "Fortuna." + string(digits[i/10]) + string(digits[i%10])
}

// New constructs a Fortuna accumulator. At construction, each pool is
// primed with 128 bytes from the configured entropy source, then, if a
// seed store is supplied, with any previously persisted fingerprint for
// that pool.
func New(opts ...Option) *Fortuna {
	cfg := config{entropy: rand.Reader}
	for _, opt := range opts {
		opt(&cfg)
	}

	f := &Fortuna{}
	for i := range f.pools {
		f.pools[i] = newPool()
	}

	var seedBuf [128]byte
	for i := range f.pools {
		if _, err := io.ReadFull(cfg.entropy, seedBuf[:]); err == nil {
			f.pools[i].inject(seedBuf[:])
		}
		if cfg.store != nil {
			if stored, ok := cfg.store.Get(poolSeedName(i)); ok {
				f.pools[i].inject(stored)
			}
		}
	}
	return f
}

// AddEvent injects data into pool poolIdx (reduced mod NumPools). It is
// an exclusive, serializing operation
func (f *Fortuna) AddEvent(poolIdx uint8, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pools[int(poolIdx)%NumPools].inject(data)
	f.provided += uint64(len(data))
}

// reseedPoolCount computes how many pools GetSeed consults this reseed:
// the number of pools to consult grows with the count of trailing
// one-bits in the reseed counter R, starting from an ever-widening
// low-bit mask seeded at 1 (not 0), rather than the textbook
// trailing-zero "2^k" test. This is a deliberate, preserved
// deviation — see DESIGN.md.
func reseedPoolCount(r uint64) int {
	count := 1
	mask := uint64(1)
	for count < NumPools && r&mask == mask {
		count++
		mask = (mask << 1) | 1
	}
	return count
}

// GetSeed produces n pseudo-random bytes, first running the reseed
// schedule below. It is an exclusive operation.
func (f *Fortuna) GetSeed(n int) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reseedCnt++
	if f.pools[0].hasEntropy() {
		count := reseedPoolCount(f.reseedCnt)
		seed := make([]byte, 0, 32*count)
		for i := 0; i < count; i++ {
			h := f.pools[i].fetch()
			seed = append(seed, h[:]...)
		}
		f.reseed(seed)
	}

	f.used += 32 * minPoolEntropy
	return f.gen.generate(n)
}

// reseed folds seed into the generator's key: K := SHA256(K || seed).
func (f *Fortuna) reseed(seed []byte) {
	buf := make([]byte, 0, len(f.gen.key)+len(seed))
	buf = append(buf, f.gen.key[:]...)
	buf = append(buf, seed...)
	newKey := sha256Sum(buf)
	f.gen.key = newKey
	f.gen.ctr.incr()
}

// Fulfillment returns and resets the provided/used/excess tallies.
func (f *Fortuna) Fulfillment() Fulfillment {
	f.mu.Lock()
	defer f.mu.Unlock()
	fr := Fulfillment{Provided: f.provided, Used: f.used, Excess: int64(f.provided) - int64(f.used)}
	f.provided, f.used = 0, 0
	return fr
}

// Snapshot returns the current durable fingerprint for every pool, in
// the form expected by SeedStore.Put under names poolSeedName(i). It is
// intended to be called by a deferred seed-storage flush.
func (f *Fortuna) Snapshot() map[string][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string][]byte, NumPools)
	for i, p := range f.pools {
		fp := p.seed()
		out[poolSeedName(i)] = append([]byte(nil), fp[:]...)
	}
	return out
}
