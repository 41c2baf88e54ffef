// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package xkdf provides hash and KDF helpers: a SHA-1/256/512 constructor
// lookup, a NIST SP800-108 double-pipeline key derivation function (used
// by the seed scrambler), and an RFC 5649 AES key-wrap-with-padding
// helper. HMAC is used internally by the KDF; no HMAC constructor is
// exported.
//
// No third-party KDF or key-wrap library appears anywhere in the retrieved
// example pack, so these are implemented directly on stdlib crypto/hmac
// and crypto/sha*; the key-wrap helpers take the block cipher constructor
// (e.g. aes.NewCipher) from the caller.
package xkdf

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"hash"
)

// ErrInvalidWrappedLength is returned by KeyUnwrap when the wrapped input
// is not a valid RFC 5649 ciphertext (too short or not a multiple of 8).
var ErrInvalidWrappedLength = errors.New("xkdf: invalid wrapped key length")

// ErrIntegrityCheckFailed is returned by KeyUnwrap when the recovered
// integrity check value does not match the expected constant.
var ErrIntegrityCheckFailed = errors.New("xkdf: key unwrap integrity check failed")

// NewHash returns a fresh hash.Hash for the given digest name
// ("sha1", "sha256", "sha512"). ok is false for unrecognized names.
func NewHash(name string) (h func() hash.Hash, ok bool) {
	switch name {
	case "sha1":
		return sha1.New, true
	case "sha256":
		return sha256.New, true
	case "sha512":
		return sha512.New, true
	default:
		return nil, false
	}
}

// KDFDoublePipeline implements the SP800-108 KDF in double-pipeline
// iteration mode (NIST SP800-108 section 5.3) using HMAC with the given
// hash constructor as the PRF.
//
// A[0] = label || 0x00 || context || L (L = requested length in bits, big
// endian 32-bit). Each round: A[i] = PRF(key, A[i-1]); K(i) = PRF(key,
// A[i] || label || 0x00 || context || L). Output is the concatenation of
// K(1), K(2), ... truncated to outLen bytes.
func KDFDoublePipeline(newHash func() hash.Hash, key, label, context []byte, outLen int) []byte {
	var lBuf [4]byte
	binary.BigEndian.PutUint32(lBuf[:], uint32(outLen)*8)

	fixed := make([]byte, 0, len(label)+1+len(context)+4)
	fixed = append(fixed, label...)
	fixed = append(fixed, 0x00)
	fixed = append(fixed, context...)
	fixed = append(fixed, lBuf[:]...)

	out := make([]byte, 0, outLen+newHash().Size())
	a := fixed
	for len(out) < outLen {
		mac := hmac.New(newHash, key)
		mac.Write(a)
		a = mac.Sum(nil)

		mac2 := hmac.New(newHash, key)
		mac2.Write(a)
		mac2.Write(fixed)
		out = append(out, mac2.Sum(nil)...)
	}
	return out[:outLen]
}

// rfc5649IV is the RFC 5649 "alternative initial value" high 4 bytes.
const rfc5649IV = 0xA65959A6

// KeyWrap wraps plaintext (of arbitrary byte length, including lengths not
// a multiple of 8) using AES key wrap with padding as defined in RFC 5649,
// using kek (16, 24 or 32 bytes) as the key-encryption key.
func KeyWrap(newBlock func([]byte) (cipherBlock, error), kek, plaintext []byte) ([]byte, error) {
	mli := len(plaintext)
	padded := make([]byte, (mli+7)/8*8)
	copy(padded, plaintext)
	if len(padded) == 0 {
		padded = make([]byte, 8)
	}

	block, err := newBlock(kek)
	if err != nil {
		return nil, err
	}

	var a [8]byte
	binary.BigEndian.PutUint32(a[0:4], rfc5649IV)
	binary.BigEndian.PutUint32(a[4:8], uint32(mli))

	n := len(padded) / 8
	if n == 1 {
		// Single 64-bit block: encrypt A || P[1] directly, one AES pass.
		var buf [16]byte
		copy(buf[0:8], a[:])
		copy(buf[8:16], padded)
		block.Encrypt(buf[:], buf[:])
		return buf[:], nil
	}

	r := make([][8]byte, n)
	for i := 0; i < n; i++ {
		copy(r[i][:], padded[i*8:i*8+8])
	}

	for j := 0; j <= 5; j++ {
		for i := 1; i <= n; i++ {
			var buf [16]byte
			copy(buf[0:8], a[:])
			copy(buf[8:16], r[i-1][:])
			block.Encrypt(buf[:], buf[:])
			copy(a[:], buf[0:8])
			t := uint64(n*j + i)
			msbXor(a[:], t)
			copy(r[i-1][:], buf[8:16])
		}
	}

	out := make([]byte, 8+n*8)
	copy(out[0:8], a[:])
	for i := 0; i < n; i++ {
		copy(out[8+i*8:8+i*8+8], r[i][:])
	}
	return out, nil
}

func msbXor(a []byte, t uint64) {
	var tb [8]byte
	binary.BigEndian.PutUint64(tb[:], t)
	for i := range a {
		a[i] ^= tb[i]
	}
}

// cipherBlock is the minimal subset of cipher.Block KeyWrap/KeyUnwrap need,
// kept local so this package does not import crypto/cipher merely for a
// type alias.
type cipherBlock interface {
	BlockSize() int
	Encrypt(dst, src []byte)
	Decrypt(dst, src []byte)
}

// KeyUnwrap reverses KeyWrap, recovering the original plaintext and
// verifying the RFC 5649 integrity check value and padding.
func KeyUnwrap(newBlock func([]byte) (cipherBlock, error), kek, wrapped []byte) ([]byte, error) {
	if len(wrapped) < 16 || len(wrapped)%8 != 0 {
		return nil, ErrInvalidWrappedLength
	}
	block, err := newBlock(kek)
	if err != nil {
		return nil, err
	}

	var a [8]byte
	copy(a[:], wrapped[0:8])

	if len(wrapped) == 16 {
		var buf [16]byte
		copy(buf[:], wrapped)
		block.Decrypt(buf[:], buf[:])
		copy(a[:], buf[0:8])
		return finishUnwrap(a, buf[8:16])
	}

	n := len(wrapped)/8 - 1
	r := make([][8]byte, n)
	for i := 0; i < n; i++ {
		copy(r[i][:], wrapped[8+i*8:8+i*8+8])
	}

	for j := 5; j >= 0; j-- {
		for i := n; i >= 1; i-- {
			t := uint64(n*j + i)
			msbXor(a[:], t)
			var buf [16]byte
			copy(buf[0:8], a[:])
			copy(buf[8:16], r[i-1][:])
			block.Decrypt(buf[:], buf[:])
			copy(a[:], buf[0:8])
			copy(r[i-1][:], buf[8:16])
		}
	}

	padded := make([]byte, 0, n*8)
	for i := 0; i < n; i++ {
		padded = append(padded, r[i][:]...)
	}
	return finishUnwrap(a, padded)
}

func finishUnwrap(a [8]byte, padded []byte) ([]byte, error) {
	if binary.BigEndian.Uint32(a[0:4]) != rfc5649IV {
		return nil, ErrIntegrityCheckFailed
	}
	mli := int(binary.BigEndian.Uint32(a[4:8]))
	if mli < 0 || mli > len(padded) || mli <= len(padded)-8 {
		return nil, ErrIntegrityCheckFailed
	}
	for _, b := range padded[mli:] {
		if b != 0 {
			return nil, ErrIntegrityCheckFailed
		}
	}
	return padded[:mli], nil
}
