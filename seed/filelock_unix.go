// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

//go:build unix

package seed

import (
	"os"

	"golang.org/x/sys/unix"
)

// fileLock guards opens and writes to the seed file: an advisory
// exclusive flock held on a sidecar lock file for the lifetime of a
// FileStorage, released by Close.
type fileLock struct {
	f *os.File
}

// acquireLock opens (creating if necessary) path+".lock" and takes an
// exclusive, non-blocking flock on it. A lock already held by another
// process in this same host is reported as an error rather than
// blocking, so that OpenFileStorage never stalls when two processes
// point at the same seed file; it continues without the lock instead.
func acquireLock(path string) (*fileLock, error) {
	f, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, err
	}
	return &fileLock{f: f}, nil
}

// release unlocks and closes the sidecar lock file.
func (l *fileLock) release() {
	if l == nil || l.f == nil {
		return
	}
	unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	l.f.Close()
}
