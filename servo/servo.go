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

// Package servo implements the frequency-lock PI controller that turns a
// filtered PTP phase offset into a clock frequency adjustment.
package servo

import (
	log "github.com/sirupsen/logrus"
)

// Config holds the gains and clamps of a PI servo.
type Config struct {
	// Kp is the proportional gain, in ppm per nanosecond of offset.
	Kp float64
	// Ki is the integral gain, in ppm per nanosecond of offset.
	Ki float64
	// MaxFreqAdjPPM clamps the combined P+I output.
	MaxFreqAdjPPM float64
	// MaxIntegralPPM clamps the accumulated integral term on its own,
	// independently of the output clamp, so a long excursion can't leave
	// the integral so wound up that recovery overshoots once the offset
	// returns to normal range.
	MaxIntegralPPM float64
}

// DefaultConfig returns the gains used when no configuration overrides them.
func DefaultConfig() Config {
	return Config{
		Kp:             0.0005,
		Ki:             0.00005,
		MaxFreqAdjPPM:  500.0,
		MaxIntegralPPM: 100.0,
	}
}

// Servo is a two-term PI controller: output = Kp*error + integral(Ki*error).
// It has no notion of "locked" or "settled" state of its own; the decision
// engine that calls Sample owns those semantics and decides when to Reset.
type Servo struct {
	config Config

	integral        float64
	sampleCount     uint64
	integralClamped bool
	outputClamped   bool
}

// New constructs a Servo with the given configuration.
func New(config Config) *Servo {
	log.Infof("servo: initialized with kp=%v ki=%v max_freq_adj_ppm=%v max_integral_ppm=%v",
		config.Kp, config.Ki, config.MaxFreqAdjPPM, config.MaxIntegralPPM)
	return &Servo{config: config}
}

// Reset zeroes the integral term and clears both sticky clamp flags. It
// does not reset SampleCount: that counter tracks the servo's entire
// lifetime, not just the current lock interval.
func (s *Servo) Reset() {
	log.Info("servo: reset")
	s.integral = 0
	s.integralClamped = false
	s.outputClamped = false
}

// Sample feeds one filtered offset (nanoseconds, positive means the local
// clock is ahead of the grandmaster) through the PI controller and returns
// the frequency adjustment to apply, in PPM.
func (s *Servo) Sample(offsetNS float64) float64 {
	s.sampleCount++

	errTerm := -offsetNS

	integralUpdate := errTerm * s.config.Ki
	s.integral += integralUpdate

	clampedIntegral := s.integral
	wasIntegralClamped := s.integralClamped
	if s.config.MaxIntegralPPM > 0 {
		if clampedIntegral > s.config.MaxIntegralPPM {
			clampedIntegral = s.config.MaxIntegralPPM
			s.integralClamped = true
		} else if clampedIntegral < -s.config.MaxIntegralPPM {
			clampedIntegral = -s.config.MaxIntegralPPM
			s.integralClamped = true
		} else {
			s.integralClamped = false
		}
	}
	s.integral = clampedIntegral
	if s.integralClamped && !wasIntegralClamped {
		log.Warnf("servo: integral term clamped to %+.3f ppm", s.integral)
	}

	proportional := errTerm * s.config.Kp
	raw := proportional + s.integral

	final := raw
	wasOutputClamped := s.outputClamped
	if s.config.MaxFreqAdjPPM > 0 {
		if final > s.config.MaxFreqAdjPPM {
			final = s.config.MaxFreqAdjPPM
			s.outputClamped = true
		} else if final < -s.config.MaxFreqAdjPPM {
			final = -s.config.MaxFreqAdjPPM
			s.outputClamped = true
		} else {
			s.outputClamped = false
		}
	}
	if s.outputClamped && !wasOutputClamped {
		log.Warnf("servo: output clamped to %+.3f ppm", final)
	}

	log.Debugf("servo #%d: offset=%+.1fus error=%.0fns P=%+.3fppm I=%+.3fppm (was %+.3f) raw=%+.3fppm final=%+.3fppm",
		s.sampleCount, offsetNS/1000, errTerm, proportional, s.integral, s.integral-integralUpdate, raw, final)

	return final
}

// Integral reports the current integral accumulator, in PPM.
func (s *Servo) Integral() float64 {
	return s.integral
}

// SampleCount reports how many samples this servo has ever processed.
func (s *Servo) SampleCount() uint64 {
	return s.sampleCount
}

// IntegralClamped reports whether the most recent Sample call clamped the
// integral term.
func (s *Servo) IntegralClamped() bool {
	return s.integralClamped
}

// OutputClamped reports whether the most recent Sample call clamped the
// combined output.
func (s *Servo) OutputClamped() bool {
	return s.outputClamped
}
