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

import "github.com/dantesync/dantesync/ptpv1"

// Status is the publication record described by the data model: produced
// only by the engine/supervisor, consumed by any number of observers
// behind a single-writer-many-reader lock owned by the caller (see
// daemon.Status).
type Status struct {
	OffsetNS        int64       `json:"offset_ns"`
	DriftPPM        float64     `json:"drift_ppm"`
	GMUUID          *ptpv1.UUID `json:"gm_uuid,omitempty"`
	Settled         bool        `json:"settled"`
	UpdatedUnixSecs int64       `json:"updated_unix_secs"`

	// Diagnostic fields, not required for correctness.
	IsLocked        bool    `json:"is_locked"`
	SmoothedRatePPM float64 `json:"smoothed_rate_ppm"`
	NtpOffsetUS     int64   `json:"ntp_offset_us"`
	Mode            string  `json:"mode"`
	NtpFailed       bool    `json:"ntp_failed"`

	// FilteredCount is a supplemental diagnostic: how many accepted
	// pairs have been folded into the sample window since the last
	// reset, exposed so operators can tell a quiet GM apart from a
	// stuck filter.
	FilteredCount uint64 `json:"filtered_count"`
}

// DefaultStatus returns the zero-value status record used before the first
// Sync/Follow-Up pair arrives: mode "ACQ" (acquiring), nothing settled.
func DefaultStatus() Status {
	return Status{Mode: "ACQ"}
}
