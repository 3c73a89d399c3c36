//go:build linux

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

package clock

import (
	"time"

	"golang.org/x/sys/unix"
)

// Linux disciplines CLOCK_REALTIME via clock_adjtime(2). Dante grandmasters
// are not PTP hardware clocks, so unlike a PHC-backed sync client we always
// target the system wall clock directly.
type Linux struct {
	origFreqPPB float64
}

// NewLinux captures the clock's current frequency offset so it can be
// restored on Close, then returns a ready-to-use Linux actuator.
func NewLinux() (*Linux, error) {
	freq, _, err := FrequencyPPB(unix.CLOCK_REALTIME)
	if err != nil {
		return nil, err
	}
	return &Linux{origFreqPPB: freq}, nil
}

// AdjFreqPPB implements Actuator.
func (l *Linux) AdjFreqPPB(freqPPB float64) error {
	_, err := AdjFreqPPB(unix.CLOCK_REALTIME, freqPPB)
	return err
}

// Step implements Actuator.
func (l *Linux) Step(step time.Duration) error {
	_, err := Step(unix.CLOCK_REALTIME, step)
	return err
}

// FrequencyPPB implements Actuator.
func (l *Linux) FrequencyPPB() (float64, error) {
	freq, _, err := FrequencyPPB(unix.CLOCK_REALTIME)
	return freq, err
}

// MaxFreqPPB implements Actuator.
func (l *Linux) MaxFreqPPB() (float64, error) {
	freq, _, err := MaxFreqPPB(unix.CLOCK_REALTIME)
	return freq, err
}

// Close restores the frequency offset observed at construction time, so a
// stopped daemon never leaves the host clock running away at its last
// commanded rate.
func (l *Linux) Close() error {
	_, err := AdjFreqPPB(unix.CLOCK_REALTIME, l.origFreqPPB)
	return err
}

// New returns the platform's native Actuator.
func New() (Actuator, error) {
	return NewLinux()
}
