// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package drbg

import "github.com/sixafter/csprng/wire"

// SeedSource supplies the bulk entropy a DRBG draws its seed material
// from — typically a *fortuna.Fortuna, but tests may substitute a
// deterministic or zero source to reproduce known-answer test vectors.
type SeedSource interface {
	GetSeed(n int) []byte
}

// ZeroSource is a SeedSource that always returns zero bytes. It exists
// so algorithm-string construction (builder.Parse, "source=ZERO") and
// known-answer tests can pin a DRBG's entropy input without a special
// case in the DRBG implementations themselves.
type ZeroSource struct{}

// GetSeed implements SeedSource.
func (ZeroSource) GetSeed(n int) []byte {
	return make([]byte, n)
}

// InitialMaterial lazily composes the entropy, nonce and personalization
// a DRBG needs on its first real operation. Fields set explicitly by
// the caller (e.g. for the ZERO-source KATs) are used as given; unset
// fields are drawn from source/NonceFactory on first Realize.
type InitialMaterial struct {
	Entropy         []byte
	Nonce           []byte
	Personalization []byte

	nonceFactory *wire.NonceFactory
}

// Realize composes entropy || nonce || personalization, drawing any
// unset field from source (for entropy) or the configured NonceFactory
// (for nonce/personalization), and extends entropy to minEntropy bytes,
// by appending bytes drawn from source, if it was supplied shorter than
// that. This must only ever run
// once per DRBG instance; callers (baseRandom) enforce that by calling
// Realize from a single first-use path.
func (m *InitialMaterial) Realize(source SeedSource, minEntropy, desiredEntropy int) []byte {
	entropy := m.Entropy
	if entropy == nil {
		entropy = source.GetSeed(desiredEntropy)
	}
	if len(entropy) < minEntropy {
		entropy = append(entropy, source.GetSeed(minEntropy-len(entropy))...)
	}

	nonce := m.Nonce
	factory := m.nonceFactory
	if factory == nil {
		factory = wire.DefaultNonceFactory
	}
	if nonce == nil {
		nonce = factory.Create()
	}

	personalization := m.Personalization
	if personalization == nil {
		personalization = factory.Personalization()
	}

	out := make([]byte, 0, len(entropy)+len(nonce)+len(personalization))
	out = append(out, entropy...)
	out = append(out, nonce...)
	out = append(out, personalization...)

	// Entropy and nonce are single-use material; zero them so they don't
	// linger in memory beyond this composition. Personalization is kept
	// since the caller may reuse it for copies.
	zero(entropy)
	zero(nonce)

	return out
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
