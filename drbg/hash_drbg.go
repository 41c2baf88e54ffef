// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package drbg

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"math/big"
)

// HashDRBG implements the NIST SP800-90A Hash_DRBG mechanism, built on
// the hash_df derivation function and the hashgen generation function.
// The working register V and the constant C are held as seedlen-byte
// big-endian integers, matching SP800-90A's bitstring-as-integer
// convention; arithmetic is done via math/big and re-encoded after each
// step.
type HashDRBG struct {
	baseRandom

	newHash func() hash.Hash
	outlen  int // digest size in bytes
	seedlen int // internal state size in bytes: 55 for SHA-1/256, 111 for SHA-512

	v []byte // seedlen bytes
	c []byte // seedlen bytes

	opCounter *big.Int
	w         []byte // per-call working register, W := V at beginGenerate
}

// HashAlgorithm selects the underlying hash function for HashDRBG.
type HashAlgorithm int

const (
	HashSHA1 HashAlgorithm = iota
	HashSHA256
	HashSHA512
)

// NewHashDRBG constructs a Hash_DRBG keyed to the given hash algorithm.
// source supplies entropy on first use and on every resistance-driven
// reseed; resistance is the number of NextBytes calls permitted between
// forced reseeds.
func NewHashDRBG(algo HashAlgorithm, source SeedSource, resistance int) *HashDRBG {
	d := &HashDRBG{
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
		d.seedlen = 55
	case HashSHA512:
		d.newHash = sha512.New
		d.outlen = sha512.Size
		d.seedlen = 111
	default:
		d.newHash = sha256.New
		d.outlen = sha256.Size
		d.seedlen = 55
	}
	return d
}

func (d *HashDRBG) NextBytes(out []byte) error         { return d.nextBytes(d, out) }
func (d *HashDRBG) SetSeed(extra []byte) error         { return d.setSeed(d, extra) }
func (d *HashDRBG) GenerateSeed(n int) ([]byte, error) { return d.generateSeed(d, n) }
func (d *HashDRBG) NewSeed() ([]byte, error)           { return d.generateSeed(d, d.seedlen) }

func (d *HashDRBG) blockSize() int   { return d.outlen }
func (d *HashDRBG) seedLen() int     { return d.seedlen }
func (d *HashDRBG) sectionSize() int { return 128 * 1024 }

// hashDF is SP800-90A's hash_df: derive an outputLen-byte string from
// input via repeated hashing of a counter || bit-length || input,
// discarding the final partial-digest tail.
func (d *HashDRBG) hashDF(input []byte, outputLen int) []byte {
	out := make([]byte, 0, outputLen+d.outlen)
	bitLen := uint32(outputLen) * 8
	for ctr := byte(1); len(out) < outputLen; ctr++ {
		h := d.newHash()
		h.Write([]byte{ctr})
		h.Write([]byte{byte(bitLen >> 24), byte(bitLen >> 16), byte(bitLen >> 8), byte(bitLen)})
		h.Write(input)
		out = h.Sum(out)
	}
	return out[:outputLen]
}

// initialise realizes material into V and C per SP800-90A §10.1.1.2.
func (d *HashDRBG) initialise(material []byte) {
	d.v = d.hashDF(material, d.seedlen)
	seedForC := make([]byte, 0, d.seedlen+len(d.v))
	seedForC = append(seedForC, 0x00)
	seedForC = append(seedForC, d.v...)
	d.c = d.hashDF(seedForC, d.seedlen)
	d.opCounter = big.NewInt(1)
}

// reseed implements SP800-90A's Hash_DRBG reseed: V := hash_df(0x01 ||
// V || seed_material, seedlen), C rederived the same way initialise
// does.
func (d *HashDRBG) reseed(seed []byte) {
	in := make([]byte, 0, 1+len(d.v)+len(seed))
	in = append(in, 0x01)
	in = append(in, d.v...)
	in = append(in, seed...)
	d.v = d.hashDF(in, d.seedlen)

	seedForC := make([]byte, 0, 1+d.seedlen)
	seedForC = append(seedForC, 0x00)
	seedForC = append(seedForC, d.v...)
	d.c = d.hashDF(seedForC, d.seedlen)
	d.opCounter = big.NewInt(1)
}

func (d *HashDRBG) beginGenerate() {
	d.w = append([]byte(nil), d.v...)
}

// fillBlock is one hashgen step: dst := SHA(W); W := (W + 1) mod 2^(8*seedlen).
func (d *HashDRBG) fillBlock(dst []byte) {
	h := d.newHash()
	h.Write(d.w)
	h.Sum(dst[:0])

	wInt := new(big.Int).SetBytes(d.w)
	wInt.Add(wInt, big.NewInt(1))
	mod := new(big.Int).Lsh(big.NewInt(1), uint(8*d.seedlen))
	wInt.Mod(wInt, mod)
	d.w = leftPad(wInt.Bytes(), d.seedlen)
}

// endGenerate finalizes this call's state transition: H := SHA(0x03 ||
// V); V := (V + H + C + op_counter) mod 2^(8*seedlen); op_counter += 1.
func (d *HashDRBG) endGenerate() {
	h := d.newHash()
	h.Write([]byte{0x03})
	h.Write(d.v)
	hv := h.Sum(nil)

	mod := new(big.Int).Lsh(big.NewInt(1), uint(8*d.seedlen))
	sum := new(big.Int).SetBytes(d.v)
	sum.Add(sum, new(big.Int).SetBytes(hv))
	sum.Add(sum, new(big.Int).SetBytes(d.c))
	sum.Add(sum, d.opCounter)
	sum.Mod(sum, mod)
	d.v = leftPad(sum.Bytes(), d.seedlen)

	d.opCounter.Add(d.opCounter, big.NewInt(1))
}

func leftPad(b []byte, n int) []byte {
	if len(b) >= n {
		return b[len(b)-n:]
	}
	out := make([]byte, n)
	copy(out[n-len(b):], b)
	return out
}
