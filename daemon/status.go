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
	"time"

	"github.com/dantesync/dantesync/engine"
)

// Status is the single-writer-many-reader publication point described by
// the concurrency model: the supervisor goroutine is the sole writer
// (via Update/UpdateNTP), and any number of readers (the status HTTP
// handler, the Prometheus collector, systemd notification) take a
// point-in-time copy via Snapshot.
type Status struct {
	mu   sync.RWMutex
	curr engine.Status
}

// NewStatus returns a Status seeded with the engine's zero-value record.
func NewStatus() *Status {
	return &Status{curr: engine.DefaultStatus()}
}

// Update installs a new engine status, as published by the controller's
// onStatus callback. The controller never populates NtpOffsetUS/NtpFailed
// itself, so those are carried over from the previous value rather than
// zeroed on every packet-driven update; UpdateNTP remains their only
// writer.
func (s *Status) Update(st engine.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.NtpOffsetUS = s.curr.NtpOffsetUS
	st.NtpFailed = s.curr.NtpFailed
	s.curr = st
}

// UpdateNTP folds the most recent NTP query outcome into the published
// status without disturbing the PTP-derived fields.
func (s *Status) UpdateNTP(offsetUS int64, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.curr.NtpOffsetUS = offsetUS
	s.curr.NtpFailed = failed
}

// Snapshot returns a value copy of the current status, safe to read
// without holding any lock.
func (s *Status) Snapshot() engine.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.curr
}

// Age reports how long it has been since the snapshot's UpdatedUnixSecs,
// or zero if the snapshot was never updated.
func Age(st engine.Status) time.Duration {
	if st.UpdatedUnixSecs == 0 {
		return 0
	}
	return time.Since(time.Unix(st.UpdatedUnixSecs, 0))
}
