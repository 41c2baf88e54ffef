// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package drbg

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
)

// HmacDRBG implements the NIST SP800-90A HMAC_DRBG mechanism: a (K, V)
// state pair updated by repeated HMAC evaluation, no separate hash_df
// derivation step.
type HmacDRBG struct {
	baseRandom

	newHash func() hash.Hash
	outlen  int

	k []byte
	v []byte
}

// NewHmacDRBG constructs an HMAC_DRBG keyed to the given hash algorithm.
func NewHmacDRBG(algo HashAlgorithm, source SeedSource, resistance int) *HmacDRBG {
	d := &HmacDRBG{
		baseRandom: baseRandom{
			source:     source,
			pending:    &InitialMaterial{},
			resistance: resistance,
		},
	}
	switch algo {
	case HashSHA1:
		d.newHash = sha1.New
		d.outlen = sha1.Size
	case HashSHA512:
		d.newHash = sha512.New
		d.outlen = sha512.Size
	default:
		d.newHash = sha256.New
		d.outlen = sha256.Size
	}
	return d
}

func (d *HmacDRBG) NextBytes(out []byte) error         { return d.nextBytes(d, out) }
func (d *HmacDRBG) SetSeed(extra []byte) error         { return d.setSeed(d, extra) }
func (d *HmacDRBG) GenerateSeed(n int) ([]byte, error) { return d.generateSeed(d, n) }
func (d *HmacDRBG) NewSeed() ([]byte, error)           { return d.generateSeed(d, d.outlen) }

func (d *HmacDRBG) blockSize() int   { return d.outlen }
func (d *HmacDRBG) seedLen() int     { return d.outlen }
func (d *HmacDRBG) sectionSize() int { return 0 }

// update is SP800-90A §10.1.2.2's Update function.
func (d *HmacDRBG) update(providedData []byte) {
	mac := hmac.New(d.newHash, d.k)
	mac.Write(d.v)
	mac.Write([]byte{0x00})
	mac.Write(providedData)
	d.k = mac.Sum(nil)

	mac = hmac.New(d.newHash, d.k)
	mac.Write(d.v)
	d.v = mac.Sum(nil)

	if len(providedData) == 0 {
		return
	}

	mac = hmac.New(d.newHash, d.k)
	mac.Write(d.v)
	mac.Write([]byte{0x01})
	mac.Write(providedData)
	d.k = mac.Sum(nil)

	mac = hmac.New(d.newHash, d.k)
	mac.Write(d.v)
	d.v = mac.Sum(nil)
}

func (d *HmacDRBG) initialise(material []byte) {
	d.k = make([]byte, d.outlen)
	d.v = make([]byte, d.outlen)
	for i := range d.v {
		d.v[i] = 0x01
	}
	d.update(material)
}

func (d *HmacDRBG) reseed(seed []byte) {
	d.update(seed)
}

func (d *HmacDRBG) beginGenerate() {}

func (d *HmacDRBG) fillBlock(dst []byte) {
	mac := hmac.New(d.newHash, d.k)
	mac.Write(d.v)
	d.v = mac.Sum(nil)
	copy(dst, d.v)
}

func (d *HmacDRBG) endGenerate() {
	d.update(nil)
}
