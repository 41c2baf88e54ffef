// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package multiplex

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sixafter/csprng/drbg"
)

func TestReserveReleaseRoundTrip(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	p := New(func() (drbg.DRBG, error) {
		return drbg.NewHashDRBG(drbg.HashSHA256, drbg.ZeroSource{}, 1000), nil
	})

	d, err := p.Reserve()
	require.NoError(err)
	out := make([]byte, 32)
	require.NoError(d.NextBytes(out))
	p.Release(d)

	d2, err := p.Reserve()
	require.NoError(err)
	require.Same(d, d2, "a released instance must be reused by the next Reserve")
}

func TestNextBytesConvenienceWrapper(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	p := New(func() (drbg.DRBG, error) {
		return drbg.NewCtrDRBG(drbg.ZeroSource{}, 1000), nil
	})

	out := make([]byte, 64)
	require.NoError(p.NextBytes(out))
}

func TestConcurrentReserveNeverSharesAnInstance(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	p := New(func() (drbg.DRBG, error) {
		return drbg.NewHmacDRBG(drbg.HashSHA256, drbg.ZeroSource{}, 1000), nil
	})

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := make([]byte, 16)
			errs <- p.NextBytes(out)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(err)
	}
}
