// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package multiplex implements a "multiplex" concurrency strategy for
// DRBG instances: rather than hold a single DRBG behind one exclusive
// lock, a Pool hands out private instances from a sync.Pool, bypassing
// the lock entirely via per-goroutine ownership of the borrowed
// instance, generalized to hold any drbg.DRBG constructed from a
// caller-supplied template.
package multiplex

import (
	"sync"

	"github.com/sixafter/csprng/drbg"
)

// Pool lends out drbg.DRBG instances built from a template constructor.
// Reserve/Release bracket exclusive use of one instance; the instance
// itself still serializes its own state internally, but Pool never
// blocks two callers against each other, since they are never handed
// the same instance concurrently.
type Pool struct {
	new func() (drbg.DRBG, error)
	p   sync.Pool
}

// New constructs a Pool whose instances are built by calling newInstance.
// newInstance is expected to be cheap to retry; a failing call is not
// cached and the error is surfaced to the caller of Reserve.
func New(newInstance func() (drbg.DRBG, error)) *Pool {
	pool := &Pool{new: newInstance}
	pool.p.New = func() any { return nil }
	return pool
}

// Reserve borrows a DRBG instance for exclusive use by the caller, which
// must call Release when done. If the pool has no idle instance, one is
// constructed via the template.
func (p *Pool) Reserve() (drbg.DRBG, error) {
	if v := p.p.Get(); v != nil {
		return v.(drbg.DRBG), nil
	}
	return p.new()
}

// Release returns d to the pool for reuse by a future Reserve call. d
// must not be used again by the caller after Release.
func (p *Pool) Release(d drbg.DRBG) {
	p.p.Put(d)
}

// NextBytes is a convenience wrapper that reserves an instance, fills
// out, and releases the instance back to the pool.
func (p *Pool) NextBytes(out []byte) error {
	d, err := p.Reserve()
	if err != nil {
		return err
	}
	defer p.Release(d)
	return d.NextBytes(out)
}
