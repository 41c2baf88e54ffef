// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package seed

import (
	"bytes"
	"os"
	"sync"

	"github.com/sixafter/csprng/wire"
)

// PrefStorage is the preference-backend Storage: plain key/value reads
// and writes of scrambled bytes, with no deferred-save
// scheduling. This module has no real OS preference-store API to bind
// to (unlike, say, Windows registry or macOS defaults) so this is a
// small flat file using the same wire codec as FileStorage, written on
// every mutation — see DESIGN.md.
type PrefStorage struct {
	path      string
	scrambler *Scrambler

	mu    sync.Mutex
	cache map[string][]byte
}

// OpenPrefStorage loads any existing preference file at path (ignoring
// a missing file).
func OpenPrefStorage(path string, scrambler *Scrambler) *PrefStorage {
	ps := &PrefStorage{
		path:      path,
		scrambler: scrambler,
		cache:     make(map[string][]byte),
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ps
	}
	records, err := wire.Decode(bytes.NewReader(data))
	if err != nil {
		return ps
	}
	for _, rec := range records {
		ps.cache[rec.Name] = rec.Value
	}
	return ps
}

// Put implements Storage.Put, writing through immediately.
func (ps *PrefStorage) Put(name string, data []byte) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.cache[name] = ps.scrambler.Scramble(name, data)
	ps.flushLocked()
}

// Get implements Storage.Get.
func (ps *PrefStorage) Get(name string) ([]byte, bool) {
	ps.mu.Lock()
	scrambled, ok := ps.cache[name]
	ps.mu.Unlock()
	if !ok {
		return nil, false
	}
	return ps.scrambler.Unscramble(name, scrambled), true
}

// Enqueue writes through immediately: the preference backend has no
// deferred-save scheduler of its own.
func (ps *PrefStorage) Enqueue(name string, thunk func() []byte) {
	ps.Put(name, materialise(thunk))
}

// Close is a no-op: every mutation is already durable.
func (ps *PrefStorage) Close() {}

func (ps *PrefStorage) flushLocked() {
	records := make([]wire.Record, 0, len(ps.cache))
	for name, value := range ps.cache {
		records = append(records, wire.Record{Name: name, Value: value})
	}
	tmp := ps.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return
	}
	if err := wire.Encode(f, records); err != nil {
		f.Close()
		return
	}
	if err := f.Close(); err != nil {
		return
	}
	_ = os.Rename(tmp, ps.path)
}
