// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package sysprng

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/chacha20"
)

// ChaCha20Source is a self-seeded SystemSource backed by
// golang.org/x/crypto/chacha20: a key and nonce are drawn from
// crypto/rand once at construction, then the stream cipher is run
// indefinitely over an all-zero keystream buffer to produce output.
// CanSeed reports false — like crypto/rand, a running ChaCha20 stream
// has no meaningful way to accept external seed material once started.
type ChaCha20Source struct {
	mu     sync.Mutex
	stream *chacha20.Cipher
	zero   []byte
}

// NewChaCha20Source constructs a ChaCha20Source self-seeded from
// crypto/rand.Reader.
func NewChaCha20Source() (*ChaCha20Source, error) {
	stream, err := newChaChaCipher()
	if err != nil {
		return nil, err
	}
	return &ChaCha20Source{stream: stream}, nil
}

// newChaChaCipher seeds a fresh *chacha20.Cipher from crypto/rand,
// wiping the key/nonce buffers immediately after use.
func newChaChaCipher() (*chacha20.Cipher, error) {
	key := make([]byte, chacha20.KeySize)
	nonce := make([]byte, chacha20.NonceSizeX)

	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("sysprng: chacha20 key: %w", err)
	}
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("sysprng: chacha20 nonce: %w", err)
	}

	stream, err := chacha20.NewUnauthenticatedCipher(key, nonce)

	for i := range key {
		key[i] = 0
	}
	for i := range nonce {
		nonce[i] = 0
	}
	if err != nil {
		return nil, fmt.Errorf("sysprng: chacha20 cipher: %w", err)
	}
	return stream, nil
}

// Read implements io.Reader by XOR-ing the stream cipher's keystream
// over an internal zero buffer, producing len(p) pseudo-random bytes.
func (c *ChaCha20Source) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cap(c.zero) < len(p) {
		c.zero = make([]byte, len(p))
	}
	c.zero = c.zero[:len(p)]
	for i := range c.zero {
		c.zero[i] = 0
	}
	c.stream.XORKeyStream(p, c.zero)
	return len(p), nil
}

// CanSeed implements SystemSource. Always false.
func (c *ChaCha20Source) CanSeed() bool { return false }

// Seed implements SystemSource. A no-op, since CanSeed is false.
func (c *ChaCha20Source) Seed([]byte) error { return nil }
