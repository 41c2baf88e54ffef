// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package seed

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScramblerRoundTrip(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	s := NewScrambler([]byte("boot-entropy"))
	original := []byte("seed material, 32 bytes padded!!")
	scrambled := s.Scramble("Fortuna.0", original)
	is.Len(scrambled, len(original))
	is.NotEqual(original, scrambled)

	unscrambled := s.Unscramble("Fortuna.0", scrambled)
	is.Equal(original, unscrambled)
}

func TestScramblerKeysKeystreamByName(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	s := NewScrambler([]byte("boot-entropy"))
	data := []byte("identical plaintext, two names!")
	a := s.Scramble("Fortuna.0", data)
	b := s.Scramble("Fortuna.1", data)
	is.NotEqual(a, b, "different record names must draw different keystreams")
}

func TestFileStoragePutGetRoundTrip(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "seed.dat")
	scrambler := NewScrambler([]byte("fixed-boot-seed"))

	fs := OpenFileStorage(path, scrambler)
	fs.Put("Fortuna.0", []byte{1, 2, 3, 4})

	got, ok := fs.Get("Fortuna.0")
	require.True(ok)
	require.Equal([]byte{1, 2, 3, 4}, got)
}

func TestFileStoragePersistsAcrossReopen(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "seed.dat")
	scrambler := NewScrambler([]byte("fixed-boot-seed"))

	fs := OpenFileStorage(path, scrambler)
	fs.Put("instant", []byte("checkpoint-bytes"))
	fs.Close()

	reopened := OpenFileStorage(path, scrambler)
	got, ok := reopened.Get("instant")
	require.True(ok)
	require.Equal([]byte("checkpoint-bytes"), got)
}

func TestOpenFileStorageLocksAgainstConcurrentOpen(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "seed.dat")
	scrambler := NewScrambler([]byte("fixed-boot-seed"))

	first := OpenFileStorage(path, scrambler)
	require.NotNil(first.lock, "the first opener should acquire the sidecar lock")

	_, err := acquireLock(path)
	require.Error(err, "a second exclusive lock attempt on the same path must fail while the first is held")

	first.Close()

	relocked, err := acquireLock(path)
	require.NoError(err, "the lock must be available again once Close releases it")
	relocked.release()
}

func TestEnqueueDefersUntilSaveDue(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "seed.dat")
	scrambler := NewScrambler([]byte("fixed-boot-seed"))

	fs := OpenFileStorage(path, scrambler)
	now := time.Now()
	fs.now = func() time.Time { return now }
	fs.saveDue = now.Add(time.Hour) // push the deadline out

	called := false
	fs.Enqueue("lazy", func() []byte { called = true; return []byte{9} })
	require.False(called, "thunk must not run before the scheduled flush")

	fs.now = func() time.Time { return now.Add(2 * time.Hour) }
	fs.Enqueue("lazy2", func() []byte { return []byte{8} })
	require.True(called, "enqueue past save_due must flush the whole queue")

	_, ok := fs.Get("lazy")
	require.True(ok)
}

func TestMaterialiseSubstitutesEmptyOnPanic(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	out := materialise(func() []byte { panic("boom") })
	is.Equal([]byte{}, out)
}

func TestRemoveDeletesCorruptSeed(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "seed.dat")
	scrambler := NewScrambler([]byte("fixed-boot-seed"))

	fs := OpenFileStorage(path, scrambler)
	fs.Put("bad", []byte{1})
	fs.Remove("bad")

	_, ok := fs.Get("bad")
	require.False(ok)
}

type fakeSystemPRNG struct {
	injected [][]byte
}

func (f *fakeSystemPRNG) InjectSeed(data []byte) {
	f.injected = append(f.injected, append([]byte(nil), data...))
}
func (f *fakeSystemPRNG) GetSeed(n int) []byte { return make([]byte, n) }

func TestFallbackStorageNeverRetains(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	sys := &fakeSystemPRNG{}
	fb := NewFallbackStorage(sys)
	fb.Put("Fortuna.3", []byte{1, 2})

	got, ok := fb.Get("Fortuna.3")
	require.True(ok)
	require.Len(got, 64)
	require.Len(sys.injected, 2) // one from Put, one from Get
}

func TestPrefStorageImmediateWrite(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "prefs.dat")
	scrambler := NewScrambler([]byte("fixed-boot-seed"))

	ps := OpenPrefStorage(path, scrambler)
	ps.Put("k", []byte("v"))

	reopened := OpenPrefStorage(path, scrambler)
	got, ok := reopened.Get("k")
	require.True(ok)
	require.Equal([]byte("v"), got)
}
