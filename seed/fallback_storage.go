// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package seed

// SystemPRNG is the subset of *sysprng.Multiplexer FallbackStorage
// needs. Satisfied structurally so this package does not import
// x/crypto/sysprng.
type SystemPRNG interface {
	InjectSeed(data []byte)
	GetSeed(n int) []byte
}

// FallbackStorage is used when the configured backend fails to
// instantiate. It is deliberately
// forgetful: nothing is ever actually retained, it only launders bytes
// through the System PRNG aggregate so degraded operation still has
// some seed to work with.
type FallbackStorage struct {
	sys SystemPRNG
}

// NewFallbackStorage constructs a FallbackStorage over sys.
func NewFallbackStorage(sys SystemPRNG) *FallbackStorage {
	return &FallbackStorage{sys: sys}
}

// Put feeds name||data into the System PRNG as an injection. Nothing is
// retained under name.
func (f *FallbackStorage) Put(name string, data []byte) {
	mixed := append([]byte(name), data...)
	f.sys.InjectSeed(mixed)
}

// Get feeds name into the System PRNG as an injection and returns 64
// fresh bytes drawn from it. ok is always true: this backend never
// reports an absent seed, it manufactures one.
func (f *FallbackStorage) Get(name string) ([]byte, bool) {
	f.sys.InjectSeed([]byte(name))
	return f.sys.GetSeed(64), true
}

// Enqueue materialises thunk immediately and forwards to Put; this
// backend has nothing durable to schedule a flush against.
func (f *FallbackStorage) Enqueue(name string, thunk func() []byte) {
	f.Put(name, materialise(thunk))
}

// Close is a no-op.
func (f *FallbackStorage) Close() {}
