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

// Package engine implements the Sync/Follow-Up pair matcher, the phase
// filter, and the frequency/step decision logic that sits between the
// ptpv1 wire codec and the servo and clock actuator.
package engine

import (
	"time"

	"github.com/dantesync/dantesync/servo"
)

// MaxDeltaNS bounds how far apart two consecutive samples' master or slave
// timestamps may be before the pair is rejected as implausible.
const MaxDeltaNS = 2_000_000_000

// MaxPhaseOffsetForStepNS is the phase magnitude, at the moment the engine
// first settles, above which an initial step (rather than smooth frequency
// correction) is requested.
const MaxPhaseOffsetForStepNS = 10_000_000

// pendingSyncCap and pendingSyncMaxAge bound the PendingSync table under
// malformed traffic or Sync-without-Follow-Up storms.
const (
	pendingSyncCap    = 100
	pendingSyncMaxAge = 5 * time.Second
)

// FilterConfig holds the phase-filter and decision-engine tuning
// parameters. Defaults are platform-dependent: bursty, high-jitter hosts
// want a looser gate and a more aggressive servo; quiet, low-jitter hosts
// want the opposite. These are plain configuration values, not compiled-in
// per-platform branches, so one binary can run either profile.
type FilterConfig struct {
	// SampleWindowSize is how many accepted phase samples are batched
	// before one "luckiest" sample is handed to the servo.
	SampleWindowSize int `yaml:"sample_window_size"`
	// MinDeltaNS is the inter-sample gating floor.
	MinDeltaNS int64 `yaml:"min_delta_ns"`
	// MassiveDriftThresholdNS is the phase magnitude, while already
	// settled, that triggers an unconditional step-and-reset.
	MassiveDriftThresholdNS int64 `yaml:"massive_drift_threshold_ns"`
	// SettlingThreshold is how many valid pairs must be observed before
	// the engine starts actuating the clock. The reference
	// implementation hard-codes this to 1; treat any other value as
	// unproven.
	SettlingThreshold uint64 `yaml:"settling_threshold"`
	// RTCUpdateInterval is the minimum gap between two RTC refreshes. The
	// engine itself does not read it: it requests a refresh once when it
	// settles, and the supervisor performs the refresh only when this
	// interval has passed since its start or its last refresh.
	RTCUpdateInterval time.Duration `yaml:"rtc_update_interval"`
}

// DefaultFilterConfigLowJitter matches quiet, wired hosts: a tight
// min-delta gate and a conservative massive-drift threshold.
func DefaultFilterConfigLowJitter() FilterConfig {
	return FilterConfig{
		SampleWindowSize:        4,
		MinDeltaNS:              1_000_000,
		MassiveDriftThresholdNS: 500_000,
		SettlingThreshold:       1,
		RTCUpdateInterval:       10 * time.Minute,
	}
}

// DefaultFilterConfigBursty matches hosts with a coarse scheduler tick or
// heavy OS-level batching of socket reads: a slack min-delta gate (bursts
// can legitimately deliver two packets back-to-back) and a looser
// massive-drift threshold.
func DefaultFilterConfigBursty() FilterConfig {
	return FilterConfig{
		SampleWindowSize:        4,
		MinDeltaNS:              0,
		MassiveDriftThresholdNS: 10_000_000,
		SettlingThreshold:       1,
		RTCUpdateInterval:       10 * time.Minute,
	}
}

// Config bundles the servo and filter configuration the engine needs.
type Config struct {
	Servo   servo.Config
	Filters FilterConfig
}

// DefaultConfigLowJitter is the conservative, low-jitter platform profile:
// a gentle servo driven by a tight filter.
func DefaultConfigLowJitter() Config {
	return Config{
		Servo:   servo.DefaultConfig(),
		Filters: DefaultFilterConfigLowJitter(),
	}
}

// DefaultConfigBursty is the aggressive, high-jitter platform profile: a
// harder-driving servo that pushes through noise.
func DefaultConfigBursty() Config {
	return Config{
		Servo: servo.Config{
			Kp:             0.1,
			Ki:             0.001,
			MaxFreqAdjPPM:  500.0,
			MaxIntegralPPM: 100.0,
		},
		Filters: DefaultFilterConfigBursty(),
	}
}
