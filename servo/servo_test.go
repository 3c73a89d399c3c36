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

package servo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestServoProportional(t *testing.T) {
	s := New(Config{Kp: 0.001, Ki: 0, MaxFreqAdjPPM: 1000, MaxIntegralPPM: 1000})
	adj := s.Sample(1000)
	require.InDelta(t, -1.0, adj, 1e-9)
}

func TestServoOutputClamping(t *testing.T) {
	s := New(Config{Kp: 1.0, Ki: 0, MaxFreqAdjPPM: 2000000, MaxIntegralPPM: 1e12})
	adj := s.Sample(1e9)
	require.InDelta(t, -2000000.0, adj, 1e-9)
	require.True(t, s.OutputClamped())
}

func TestServoIntegralAccumulation(t *testing.T) {
	s := New(Config{Kp: 0, Ki: 0.001, MaxFreqAdjPPM: 1e9, MaxIntegralPPM: 1e9})
	adj := s.Sample(1000)
	require.InDelta(t, -1.0, adj, 1e-9)
	adj = s.Sample(1000)
	require.InDelta(t, -2.0, adj, 1e-9)
}

func TestServoReset(t *testing.T) {
	s := New(Config{Kp: 0, Ki: 0.001, MaxFreqAdjPPM: 1e9, MaxIntegralPPM: 1e9})
	s.Sample(1000)
	require.NotZero(t, s.Integral())
	s.Reset()
	require.Zero(t, s.Integral())
	adj := s.Sample(0)
	require.Zero(t, adj)
}

func TestServoIntegralClamping(t *testing.T) {
	s := New(Config{Kp: 0, Ki: 1.0, MaxFreqAdjPPM: 1e9, MaxIntegralPPM: 200})
	s.Sample(-1e9)
	require.True(t, s.IntegralClamped())
	require.InDelta(t, 200.0, s.Integral(), 1e-9)

	adj := s.Sample(0)
	require.InDelta(t, 200.0, adj, 1e-9)
}

func TestServoSampleCountSurvivesReset(t *testing.T) {
	s := New(DefaultConfig())
	s.Sample(100)
	s.Sample(100)
	require.Equal(t, uint64(2), s.SampleCount())
	s.Reset()
	require.Equal(t, uint64(2), s.SampleCount())
	s.Sample(100)
	require.Equal(t, uint64(3), s.SampleCount())
}
