// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package sysprng

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChaCha20SourceProducesNonZeroStream(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	src, err := NewChaCha20Source()
	require.NoError(err)

	out := make([]byte, 256)
	n, err := src.Read(out)
	require.NoError(err)
	require.Equal(256, n)
	require.NotEqual(make([]byte, 256), out)
}

func TestChaCha20SourceNeverRepeatsConsecutiveReads(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	src, err := NewChaCha20Source()
	require.NoError(err)

	a := make([]byte, 64)
	b := make([]byte, 64)
	_, err = src.Read(a)
	require.NoError(err)
	_, err = src.Read(b)
	require.NoError(err)
	require.False(bytes.Equal(a, b), "the keystream must advance between reads")
}

func TestChaCha20SourceCannotBeSeeded(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	src, err := NewChaCha20Source()
	require.NoError(err)
	require.False(src.CanSeed())
	require.NoError(src.Seed([]byte("ignored")))
}

func TestMultiplexerWithChaCha20Source(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	src, err := NewChaCha20Source()
	require.NoError(err)

	m := New([]SystemSource{src}, nil)
	out := m.GetSeed(64)
	require.Len(out, 64)
	require.NotEqual(make([]byte, 64), out)
}
