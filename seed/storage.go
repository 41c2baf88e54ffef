// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package seed

import (
	"bytes"
	"log"
	"os"
	"sync"
	"time"

	"github.com/sixafter/csprng/wire"
)

// Logger is the minimal ambient logging surface storage log-and-continue
// paths write through.
// log.Default() satisfies it; tests typically pass a no-op.
type Logger interface {
	Printf(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...any) {}

var _ Logger = log.Default()

// Default scheduler tuning: the save interval starts short and grows on
// each flush until it settles onto an all-day cadence. See DESIGN.md
// for how SaveMultiply/SaveAdd were chosen.
const (
	SavePeriod   = 5 * time.Second
	SaveMultiply = 10
	SaveAdd      = 0 * time.Second
	SaveMax      = 24 * time.Hour
)

// Storage is the public seed-persistence contract. *fortuna.Fortuna's
// SeedStore interface is satisfied structurally by
// any Storage implementation (Get/Put share the same signatures),
// without either package importing the other.
type Storage interface {
	// Put writes seed atomically: put_raw(name, scramble(data)).
	Put(name string, data []byte)

	// Get reads a previously stored seed, unscrambling it first. ok is
	// false if no seed is stored under name, or if it was corrupt and
	// has been removed.
	Get(name string) ([]byte, bool)

	// Enqueue defers materialising and writing seed until the next
	// scheduled flush, in the caller's own goroutine.
	Enqueue(name string, thunk func() []byte)

	// Close flushes the queue exactly once and releases any resources.
	Close()
}

type pendingEntry struct {
	name  string
	thunk func() []byte
}

// FileStorage is the file-backend Storage: records are held scrambled
// in memory and persisted via the framed wire format. Put and Remove
// rewrite the file immediately; Enqueue'd records are written no more
// than once per save_due interval, and on Close.
type FileStorage struct {
	path      string
	scrambler *Scrambler
	logger    Logger
	lock      *fileLock

	mu    sync.Mutex // at most one writer at a time
	cache map[string][]byte

	queueMu  sync.Mutex
	queue    []pendingEntry
	interval time.Duration
	saveDue  time.Time
	now      func() time.Time
}

// OpenFileStorage loads any existing seed file at path (ignoring a
// missing file) and returns a ready FileStorage. An advisory exclusive
// lock on a sidecar file guards opens and writes against other
// processes: it is best-effort acquired here, and a failure is not
// returned as an error — a second process racing to open the same seed
// path degrades to in-process-only serialization rather than refusing
// to start. The failure goes to the default no-op Logger, since
// SetLogger can only be called after Open returns. The lock is released
// by Close.
func OpenFileStorage(path string, scrambler *Scrambler) *FileStorage {
	fs := &FileStorage{
		path:      path,
		scrambler: scrambler,
		logger:    noopLogger{},
		cache:     make(map[string][]byte),
		interval:  SavePeriod,
		now:       time.Now,
	}
	fs.saveDue = fs.now().Add(fs.interval)

	if lock, err := acquireLock(path); err != nil {
		fs.logger.Printf("seed: could not lock %q, continuing unlocked: %v", path, err)
	} else {
		fs.lock = lock
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fs
	}
	records, err := wire.Decode(bytes.NewReader(data))
	if err != nil {
		return fs
	}
	for _, rec := range records {
		fs.cache[rec.Name] = rec.Value
	}
	return fs
}

// SetLogger overrides the default no-op Logger. Pass log.Default() (or
// any compatible logger) to surface the log-and-continue events below.
func (fs *FileStorage) SetLogger(l Logger) {
	if l != nil {
		fs.logger = l
	}
}

// Put implements Storage.Put.
func (fs *FileStorage) Put(name string, data []byte) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.cache[name] = fs.scrambler.Scramble(name, data)
	fs.flushLocked()
}

// Get implements Storage.Get. A seed that fails to unscramble into
// something initialise() can use never actually fails here — unscramble
// always succeeds syntactically, since it is just a length-preserving
// XOR — so corruption is limited to the wire frame itself, which Open
// already filtered out.
func (fs *FileStorage) Get(name string) ([]byte, bool) {
	fs.mu.Lock()
	scrambled, ok := fs.cache[name]
	fs.mu.Unlock()
	if !ok {
		return nil, false
	}
	return fs.scrambler.Unscramble(name, scrambled), true
}

// Remove deletes a corrupt seed record, logging and removing it rather
// than surfacing the corruption to the caller.
func (fs *FileStorage) Remove(name string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.cache, name)
	fs.logger.Printf("seed: removed corrupt record %q", name)
	fs.flushLocked()
}

// Enqueue implements Storage.Enqueue: the seed's bytes are only
// materialised (by calling thunk) when the queue is actually flushed.
func (fs *FileStorage) Enqueue(name string, thunk func() []byte) {
	fs.queueMu.Lock()
	fs.queue = append(fs.queue, pendingEntry{name: name, thunk: thunk})
	due := fs.now().After(fs.saveDue) || fs.now().Equal(fs.saveDue)
	fs.queueMu.Unlock()

	if due {
		fs.flushQueue()
	}
}

// flushQueue materialises every pending thunk and advances the save
// schedule's growing interval.
func (fs *FileStorage) flushQueue() {
	fs.queueMu.Lock()
	pending := fs.queue
	fs.queue = nil
	fs.interval = nextSaveInterval(fs.interval)
	fs.saveDue = fs.now().Add(fs.interval)
	fs.queueMu.Unlock()

	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, e := range pending {
		data := materialise(e.thunk)
		fs.cache[e.name] = fs.scrambler.Scramble(e.name, data)
	}
	fs.flushLocked()
}

// materialise calls thunk, substituting an empty slice if it panics.
func materialise(thunk func() []byte) (out []byte) {
	defer func() {
		if recover() != nil {
			out = []byte{}
		}
	}()
	return thunk()
}

func nextSaveInterval(prev time.Duration) time.Duration {
	next := time.Duration(SaveMultiply)*prev + SaveAdd
	if next > SaveMax || next <= 0 {
		return SaveMax
	}
	return next
}

// flushLocked writes the full cache to disk. Callers must hold fs.mu.
func (fs *FileStorage) flushLocked() {
	records := make([]wire.Record, 0, len(fs.cache))
	for name, value := range fs.cache {
		records = append(records, wire.Record{Name: name, Value: value})
	}

	tmp := fs.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		fs.logger.Printf("seed: open %q failed: %v", tmp, err)
		return
	}
	if err := wire.Encode(f, records); err != nil {
		fs.logger.Printf("seed: encode failed, discarding %q: %v", tmp, err)
		f.Close()
		_ = os.Remove(tmp)
		return
	}
	if err := f.Close(); err != nil {
		fs.logger.Printf("seed: close %q failed: %v", tmp, err)
		_ = os.Remove(tmp)
		return
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		fs.logger.Printf("seed: rename %q to %q failed: %v", tmp, fs.path, err)
	}
}

// Close flushes the queue exactly once and releases the storage lock
// acquired by OpenFileStorage.
func (fs *FileStorage) Close() {
	fs.flushQueue()
	fs.lock.release()
}
