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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAcquireLockFailsWhenHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dantesyncd.lock")

	first, err := AcquireLock(path)
	require.NoError(t, err)
	defer first.Close()

	_, err = AcquireLock(path)
	require.Error(t, err)
}

func TestAcquireLockReleasedOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dantesyncd.lock")

	first, err := AcquireLock(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := AcquireLock(path)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}
