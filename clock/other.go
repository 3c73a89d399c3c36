//go:build !linux

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

import "time"

// Windows is a placeholder Actuator for non-Linux hosts. The project does
// not implement Windows multimedia-timer clock discipline; wiring a real
// backend here is future work, tracked as an explicit Non-goal.
type Windows struct{}

// NewWindows always returns an Actuator that reports ErrUnsupported.
func NewWindows() (*Windows, error) {
	return &Windows{}, nil
}

// AdjFreqPPB implements Actuator.
func (w *Windows) AdjFreqPPB(freqPPB float64) error { return ErrUnsupported }

// Step implements Actuator.
func (w *Windows) Step(step time.Duration) error { return ErrUnsupported }

// FrequencyPPB implements Actuator.
func (w *Windows) FrequencyPPB() (float64, error) { return 0, ErrUnsupported }

// MaxFreqPPB implements Actuator.
func (w *Windows) MaxFreqPPB() (float64, error) { return 0, ErrUnsupported }

// Close implements Actuator.
func (w *Windows) Close() error { return nil }

// New returns the platform's native Actuator.
func New() (Actuator, error) {
	return NewWindows()
}
