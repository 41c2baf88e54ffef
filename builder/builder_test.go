// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sixafter/csprng/drbg"
)

func TestParseCTRAlgorithm(t *testing.T) {
	t.Parallel()
	is := assert.New(t)
	require := require.New(t)

	result, err := Parse("aes256/source=ZERO", nil, 1000)
	require.NoError(err)
	is.Equal(Strength256, result.Strength)
	is.True(result.Cacheable)

	out := make([]byte, 32)
	require.NoError(result.DRBG.NextBytes(out))
}

func TestParseHashSHA1CapsStrength(t *testing.T) {
	t.Parallel()
	is := assert.New(t)
	require := require.New(t)

	result, err := Parse("nist/sha1/source=ZERO", nil, 1000)
	require.NoError(err)
	is.Equal(Strength128, result.Strength)
}

func TestParseHmacSha512(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	result, err := Parse("hmacsha512/source=ZERO", nil, 1000)
	require.NoError(err)
	out := make([]byte, 16)
	require.NoError(result.DRBG.NextBytes(out))
}

func TestParseUnknownAlgorithmErrors(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	_, err := Parse("blowfish/source=ZERO", nil, 1000)
	require.ErrorIs(err, ErrUnknownAlgorithm)
}

func TestParseEntropyParamMakesInstanceUncacheable(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	result, err := Parse("sha256/source=ZERO&entropy=YWJjZGVmZ2hpamtsbW5vcA", nil, 1000)
	require.NoError(err)
	require.False(result.Cacheable)
}

func TestParseNamedSource(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	sources := Sources{"FORTUNA": drbg.ZeroSource{}}
	result, err := Parse("sha256", sources, 1000)
	require.NoError(err)
	out := make([]byte, 8)
	require.NoError(result.DRBG.NextBytes(out))
}

func TestParseUnknownSourceErrors(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	_, err := Parse("sha256/source=NOPE", Sources{}, 1000)
	require.ErrorIs(err, ErrUnknownSource)
}

func TestParseLazyParameterAccepted(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	result, err := Parse("sha256/source=ZERO&lazy=3", nil, 1000)
	require.NoError(err)
	h := result.DRBG.(*drbg.HashDRBG)
	out := make([]byte, 4)
	require.NoError(h.NextBytes(out))
}

func TestParseAcceptsPaddedBase64URLParameter(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	result, err := Parse("hmacsha256/laziness=3&source=ZERO&personalization=AA==", nil, 1000)
	require.NoError(err)
	out := make([]byte, 4)
	require.NoError(result.DRBG.NextBytes(out))
}

func TestDecodeBase64URLParamAcceptsPaddedAndUnpadded(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	padded, err := decodeBase64URLParam("AA==")
	require.NoError(err)
	require.Equal([]byte{0x00}, padded)

	unpadded, err := decodeBase64URLParam("AA")
	require.NoError(err)
	require.Equal([]byte{0x00}, unpadded)
}
