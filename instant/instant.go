// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package instant implements a degraded, last-resort entropy pool: used
// only until real entropy (the system PRNG aggregate, Fortuna) is
// available, such as the first moments after process start.
package instant

import (
	"crypto/sha512"
	"encoding/binary"
	"hash"
	"sync"
	"time"

	"github.com/sixafter/csprng/x/crypto/isaac"
)

const (
	primeWorkers    = 256
	holderCount     = 64
	holderSize      = sha512.Size
	checkpointEvery = 64

	checkpointName = "instant"
)

// candidateRemainders are the residues r such that 30k+r can be prime
// (coprime with 2, 3 and 5).
var candidateRemainders = [8]uint64{1, 7, 11, 13, 17, 19, 23, 29}

// Storage is the subset of seed.Storage the Pool needs to checkpoint and
// recover its bootstrap state. Satisfied structurally.
type Storage interface {
	Get(name string) ([]byte, bool)
	Enqueue(name string, thunk func() []byte)
}

// Pool is the instant-entropy bootstrap pool. The zero value is not
// usable; use New. Pool is safe for concurrent use.
type Pool struct {
	mu         sync.Mutex
	rng        *isaac.Rand
	transcript hash.Hash
	holders    [holderCount][holderSize]byte
	writePos   uint64
	readCursor uint64
	updates    uint64
	storage    Storage

	stop chan struct{}
	wg   sync.WaitGroup
}

// New constructs a Pool, recovering its ISAAC bootstrap material from
// storage under the name "instant" if present (so a restart bootstraps
// faster), then launches the 256 concurrent prime-search workers.
func New(storage Storage) *Pool {
	boot, ok := storage.Get(checkpointName)
	if !ok || len(boot) == 0 {
		var t [8]byte
		binary.BigEndian.PutUint64(t[:], uint64(time.Now().UnixNano()))
		boot = t[:]
	}

	p := &Pool{
		rng:        isaac.New(boot),
		transcript: sha512.New(),
		storage:    storage,
		stop:       make(chan struct{}),
	}

	p.wg.Add(primeWorkers)
	for i := 0; i < primeWorkers; i++ {
		go p.primeWorker(i)
	}
	return p
}

// Stop terminates every background prime-search worker. Safe to call
// once; Pool is not reusable afterward.
func (p *Pool) Stop() {
	close(p.stop)
	p.wg.Wait()
}

func (p *Pool) primeWorker(id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			return
		default:
		}

		start := time.Now()
		prime := p.findPrime()
		latency := time.Since(start)

		p.mu.Lock()
		p.recordFindingLocked(id, latency, prime)
		p.mu.Unlock()
	}
}

// findPrime repeatedly samples a 30k+r candidate and trial-divides it
// until a prime is found.
func (p *Pool) findPrime() uint64 {
	for {
		candidate := p.drawCandidate()
		if isPrime(candidate) {
			return candidate
		}
	}
}

func (p *Pool) drawCandidate() uint64 {
	p.mu.Lock()
	k := uint64(p.rng.Uint32())
	r := candidateRemainders[p.rng.Uint32()%8]
	p.mu.Unlock()
	return 30*k + r
}

func isPrime(n uint64) bool {
	if n < 2 {
		return false
	}
	if n%2 == 0 {
		return n == 2
	}
	for d := uint64(3); d*d <= n; d += 2 {
		if n%d == 0 {
			return false
		}
	}
	return true
}

// recordFindingLocked folds one prime-search result into the running
// transcript, refills the next ring holder from it, and checkpoints
// every 64 updates. Callers must hold p.mu.
func (p *Pool) recordFindingLocked(workerID int, latency time.Duration, prime uint64) {
	var buf [24]byte
	binary.BigEndian.PutUint64(buf[0:8], uint64(latency))
	binary.BigEndian.PutUint64(buf[8:16], uint64(workerID))
	binary.BigEndian.PutUint64(buf[16:24], prime)
	p.transcript.Write(buf[:])

	digest := p.transcript.Sum(nil)
	copy(p.holders[p.writePos%holderCount][:], digest)
	p.writePos++
	p.updates++

	if p.updates%checkpointEvery == 0 {
		snapshot := append([]byte(nil), digest...)
		p.storage.Enqueue(checkpointName, func() []byte { return snapshot })
	}
}

// Byte returns the next pseudo-random byte from the holder ring,
// synthesizing one finding synchronously on first use so Byte never
// blocks waiting on the background workers. As a degraded, last-resort
// source it is permitted to revisit bytes the background workers have
// not yet advanced past — its only contract is "not predictable enough
// to matter less than doing nothing."
func (p *Pool) Byte() byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.updates == 0 {
		p.recordFindingLocked(-1, 0, 2)
	}
	flat := p.readCursor % (holderCount * holderSize)
	b := p.holders[flat/holderSize][flat%holderSize]
	p.readCursor++
	return b
}
