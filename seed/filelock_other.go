// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

//go:build !unix

package seed

import "os"

// fileLock is a no-op placeholder on platforms without flock semantics
// (this module's only non-unix build target is Windows, where
// golang.org/x/sys has no equivalent advisory-lock primitive this
// package depends on). FileStorage's in-process mutex still serializes
// writers within one process on every platform; only cross-process
// locking is unix-only.
type fileLock struct{}

func acquireLock(path string) (*fileLock, error) {
	// Touch the sidecar path so its presence is consistent across
	// platforms, even though it carries no locking semantics here.
	f, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}
	f.Close()
	return &fileLock{}, nil
}

func (l *fileLock) release() {}
