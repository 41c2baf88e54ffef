// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package instant

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStorage() *memStorage { return &memStorage{data: make(map[string][]byte)} }

func (m *memStorage) Get(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[name]
	return v, ok
}

func (m *memStorage) Enqueue(name string, thunk func() []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[name] = thunk()
}

func TestIsPrime(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	is.True(isPrime(2))
	is.True(isPrime(31))
	is.True(isPrime(97))
	is.False(isPrime(1))
	is.False(isPrime(0))
	is.False(isPrime(91)) // 7 * 13
}

func TestByteNeverBlocksBeforeWorkersProduce(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	p := New(newMemStorage())
	defer p.Stop()

	b := p.Byte()
	_ = b // any byte value is acceptable; the property under test is "returns promptly"
	require.GreaterOrEqual(p.updates, uint64(1))
}

func TestCheckpointsAfter64Updates(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	storage := newMemStorage()
	p := New(storage)
	defer p.Stop()

	require.Eventually(func() bool {
		_, ok := storage.Get(checkpointName)
		return ok
	}, 2*time.Second, 5*time.Millisecond)
}

func TestRestartRecoversFromCheckpoint(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	storage := newMemStorage()
	storage.data[checkpointName] = []byte("prior-checkpoint-bytes")

	p := New(storage)
	defer p.Stop()
	require.NotNil(p.rng)
}
