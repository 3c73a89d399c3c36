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

// Package sntp implements the coarse UTC phase aligner: a single,
// on-demand SNTP query used to step the wall clock into the right epoch
// before the PTP frequency-lock loop takes over. The PTP loop only ever
// sees a grandmaster's uptime counter, never an absolute epoch, so this is
// the only source of truth for "which day it is".
package sntp

import (
	"fmt"
	"time"

	"github.com/beevik/ntp"
)

// Aligner queries a single configured SNTP server.
type Aligner struct {
	Server  string
	Timeout time.Duration
}

// NewAligner returns an Aligner for the given server address.
func NewAligner(server string) *Aligner {
	return &Aligner{Server: server, Timeout: 5 * time.Second}
}

// Offset queries the configured server once and returns the magnitude of
// the local-vs-reference offset and its sign: +1 if the local clock is
// behind the reference (needs to move forward), -1 if it is ahead.
func (a *Aligner) Offset() (time.Duration, int, error) {
	opts := ntp.QueryOptions{Timeout: a.Timeout}
	resp, err := ntp.QueryWithOptions(a.Server, opts)
	if err != nil {
		return 0, 0, fmt.Errorf("sntp: query %s: %w", a.Server, err)
	}
	if err := resp.Validate(); err != nil {
		return 0, 0, fmt.Errorf("sntp: invalid response from %s: %w", a.Server, err)
	}

	return signedOffset(resp.ClockOffset)
}

// signedOffset splits a signed clock offset into a magnitude and a sign,
// matching the reference implementation's get_offset contract: +1 means
// the local clock is behind the reference, -1 means it is ahead.
func signedOffset(offset time.Duration) (time.Duration, int, error) {
	if offset < 0 {
		return -offset, -1, nil
	}
	return offset, 1, nil
}
