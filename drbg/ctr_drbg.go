// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package drbg

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha512"
)

// ctrSeedLen is the NIST SP800-90A CTR_DRBG seedlen for AES-256 without a
// derivation function: keylen (32) + blocklen (16).
const ctrSeedLen = 48

// CtrDRBG implements the NIST SP800-90A CTR_DRBG mechanism using AES-256,
// the standard library's AES block cipher, and a big-endian 128-bit
// counter. Rather than self-seed from crypto/rand on construction and
// periodically thereafter, it uses baseRandom's SeedSource-driven,
// resistance-scheduled reseed, and adds the explicit per-call
// self-reseed (Update with an all-zero 48-byte seed) SP800-90A requires
// after every Generate.
type CtrDRBG struct {
	baseRandom

	block cipher.Block
	key   [32]byte
	v     [16]byte
}

// NewCtrDRBG constructs an AES-256 CTR_DRBG.
func NewCtrDRBG(source SeedSource, resistance int) *CtrDRBG {
	return &CtrDRBG{
		baseRandom: baseRandom{
			source:     source,
			pending:    &InitialMaterial{},
			resistance: resistance,
		},
	}
}

func (d *CtrDRBG) NextBytes(out []byte) error         { return d.nextBytes(d, out) }
func (d *CtrDRBG) SetSeed(extra []byte) error         { return d.setSeed(d, extra) }
func (d *CtrDRBG) GenerateSeed(n int) ([]byte, error) { return d.generateSeed(d, n) }
func (d *CtrDRBG) NewSeed() ([]byte, error)           { return d.generateSeed(d, ctrSeedLen) }

func (d *CtrDRBG) blockSize() int   { return aes.BlockSize }
func (d *CtrDRBG) seedLen() int     { return ctrSeedLen }
func (d *CtrDRBG) sectionSize() int { return 0 }

// prefilter reduces material to exactly ctrSeedLen bytes. Material that
// is already the right length is used verbatim (this is how known-answer
// tests pin a seed); anything else — in particular the
// entropy||nonce||personalization composition InitialMaterial.Realize
// produces — is condensed with SHA-384, whose 48-byte digest happens to
// equal ctrSeedLen exactly.
func prefilter(material []byte) [ctrSeedLen]byte {
	var out [ctrSeedLen]byte
	if len(material) == ctrSeedLen {
		copy(out[:], material)
		return out
	}
	sum := sha512.Sum384(material)
	copy(out[:], sum[:])
	return out
}

// update is NIST SP800-90A's CTR_DRBG Update function for AES-256
// without a derivation function.
func (d *CtrDRBG) update(providedData [ctrSeedLen]byte) {
	var temp [ctrSeedLen]byte
	var block [aes.BlockSize]byte
	for off := 0; off < ctrSeedLen; off += aes.BlockSize {
		incV128(&d.v)
		d.block.Encrypt(block[:], d.v[:])
		copy(temp[off:], block[:])
	}
	for i := range temp {
		temp[i] ^= providedData[i]
	}

	var newKey [32]byte
	copy(newKey[:], temp[:32])
	copy(d.v[:], temp[32:48])

	block2, err := aes.NewCipher(newKey[:])
	if err != nil {
		// AES-256 keys are always 32 bytes; this cannot happen.
		panic(err)
	}
	d.key = newKey
	d.block = block2
}

func (d *CtrDRBG) initialise(material []byte) {
	d.key = [32]byte{}
	d.v = [16]byte{}
	d.block, _ = aes.NewCipher(d.key[:])
	d.update(prefilter(material))
}

func (d *CtrDRBG) reseed(seed []byte) {
	d.update(prefilter(seed))
}

func (d *CtrDRBG) beginGenerate() {}

func (d *CtrDRBG) fillBlock(dst []byte) {
	incV128(&d.v)
	d.block.Encrypt(dst, d.v[:])
}

// endGenerate performs CTR_DRBG's mandatory self-reseed after Generate,
// with an all-zero additional-input block.
func (d *CtrDRBG) endGenerate() {
	var zero [ctrSeedLen]byte
	d.update(zero)
}

// incV128 increments a 128-bit big-endian counter in place.
func incV128(v *[16]byte) {
	for i := 15; i >= 0; i-- {
		v[i]++
		if v[i] != 0 {
			break
		}
	}
}
