/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

//go:build linux

package daemon

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Lock is a held singleton lockfile. Closing it releases the lock and
// closes the underlying file.
type Lock struct {
	f *os.File
}

// AcquireLock takes a non-blocking exclusive flock on path, creating it if
// necessary. It fails fast if another instance already holds the lock,
// rather than blocking: a second dantesyncd on the same host is always a
// misconfiguration, never a queueing condition.
func AcquireLock(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("daemon: open lockfile %s: %w", path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, fmt.Errorf("daemon: another instance is already running (lockfile %s)", path)
		}
		return nil, fmt.Errorf("daemon: flock %s: %w", path, err)
	}
	return &Lock{f: f}, nil
}

// Close releases the lock.
func (l *Lock) Close() error {
	unix.Flock(int(l.f.Fd()), unix.LOCK_UN) //nolint:errcheck
	return l.f.Close()
}
