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

package daemon

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dantesync/dantesync/engine"
)

func TestNewStatusIsACQ(t *testing.T) {
	s := NewStatus()
	require.Equal(t, "ACQ", s.Snapshot().Mode)
}

func TestStatusUpdateAndNTPAreIndependent(t *testing.T) {
	s := NewStatus()
	s.Update(engine.Status{OffsetNS: 42, Settled: true, Mode: "LOCKED"})
	s.UpdateNTP(1234, false)

	snap := s.Snapshot()
	require.Equal(t, int64(42), snap.OffsetNS)
	require.True(t, snap.Settled)
	require.Equal(t, int64(1234), snap.NtpOffsetUS)
	require.False(t, snap.NtpFailed)
}

func TestStatusUpdatePreservesNTPFields(t *testing.T) {
	s := NewStatus()
	s.UpdateNTP(1234, false)
	s.Update(engine.Status{OffsetNS: 42, Settled: true, Mode: "LOCKED"})

	snap := s.Snapshot()
	require.Equal(t, int64(42), snap.OffsetNS)
	require.True(t, snap.Settled)
	require.Equal(t, int64(1234), snap.NtpOffsetUS)
	require.False(t, snap.NtpFailed)
}

func TestStatusConcurrentAccess(t *testing.T) {
	s := NewStatus()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			s.Update(engine.Status{OffsetNS: int64(n)})
		}(i)
		go func() {
			defer wg.Done()
			_ = s.Snapshot()
		}()
	}
	wg.Wait()
}

func TestAgeZeroForUnset(t *testing.T) {
	require.Zero(t, Age(engine.Status{}))
}
