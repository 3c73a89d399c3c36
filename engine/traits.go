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

package engine

import "time"

// PacketSource delivers raw packet payloads together with their arrival
// timestamp. Implementations must be non-blocking: Recv returns
// immediately with ok=false when nothing is available.
//
// This is one of the three capability sets the core depends on
// polymorphically (the others being clock.Actuator and NtpSource); test
// doubles implement the same interface, no richer extension point exists.
type PacketSource interface {
	Recv() (payload []byte, arrival time.Time, ok bool, err error)
	// Reset discards any buffered partial state in the source. Most
	// implementations can no-op; it exists for sources that maintain
	// their own reassembly state across a grandmaster change.
	Reset() error
}

// NtpSource is a single coarse UTC offset query, used once at startup by
// the NTP phase aligner.
type NtpSource interface {
	// Offset returns the magnitude of the local-vs-reference clock
	// offset and its sign (+1 local is behind, -1 local is ahead),
	// mirroring the reference implementation's get_offset contract.
	Offset() (magnitude time.Duration, sign int, err error)
}
