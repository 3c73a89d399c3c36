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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dantesync/dantesync/clock"
	"github.com/dantesync/dantesync/engine"
)

type fakeNtp struct {
	magnitude time.Duration
	sign      int
	err       error
}

func (f fakeNtp) Offset() (time.Duration, int, error) { return f.magnitude, f.sign, f.err }

type fakeSource struct{}

func (fakeSource) Recv() ([]byte, time.Time, bool, error) { return nil, time.Time{}, false, nil }
func (fakeSource) Reset() error                           { return nil }

func testConfig() *Config {
	cfg := DefaultConfig("linux")
	cfg.SkipNTP = true
	return cfg
}

func TestRunNTPSyncSkipped(t *testing.T) {
	mock := clock.NewMock(500000)
	s := New(testConfig(), mock, fakeSource{}, nil)
	s.runNTPSync(50 * time.Millisecond)
	require.Empty(t, mock.Steps())
}

func TestRunNTPSyncWithinThreshold(t *testing.T) {
	mock := clock.NewMock(500000)
	cfg := testConfig()
	cfg.SkipNTP = false
	s := New(cfg, mock, fakeSource{}, fakeNtp{magnitude: 10 * time.Millisecond, sign: 1})
	s.runNTPSync(50 * time.Millisecond)
	require.Empty(t, mock.Steps())
	require.Equal(t, int64(10000), s.Status().Snapshot().NtpOffsetUS)
}

func TestRunNTPSyncStepsForward(t *testing.T) {
	mock := clock.NewMock(500000)
	cfg := testConfig()
	cfg.SkipNTP = false
	s := New(cfg, mock, fakeSource{}, fakeNtp{magnitude: 100 * time.Millisecond, sign: 1})
	s.runNTPSync(50 * time.Millisecond)
	require.Len(t, mock.Steps(), 1)
	require.Equal(t, 100*time.Millisecond, mock.Steps()[0])
}

func TestRunNTPSyncStepsBackward(t *testing.T) {
	mock := clock.NewMock(500000)
	cfg := testConfig()
	cfg.SkipNTP = false
	s := New(cfg, mock, fakeSource{}, fakeNtp{magnitude: 100 * time.Millisecond, sign: -1})
	s.runNTPSync(50 * time.Millisecond)
	require.Len(t, mock.Steps(), 1)
	require.Equal(t, -100*time.Millisecond, mock.Steps()[0])
}

func TestRunNTPSyncQueryFailure(t *testing.T) {
	mock := clock.NewMock(500000)
	cfg := testConfig()
	cfg.SkipNTP = false
	s := New(cfg, mock, fakeSource{}, fakeNtp{err: errors.New("no route to host")})
	s.runNTPSync(50 * time.Millisecond)
	require.Empty(t, mock.Steps())
	require.True(t, s.Status().Snapshot().NtpFailed)
}

func TestRunExitsOnStop(t *testing.T) {
	mock := clock.NewMock(500000)
	cfg := testConfig()
	cfg.StatusLog = time.Hour
	s := New(cfg, mock, fakeSource{}, nil)

	done := make(chan error, 1)
	go func() { done <- s.Run(0) }()

	time.Sleep(5 * time.Millisecond)
	s.Stop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not exit after Stop")
	}
}

func TestGMChangeCallbackWiring(t *testing.T) {
	mock := clock.NewMock(500000)
	s := New(testConfig(), mock, fakeSource{}, nil)
	require.NotPanics(t, func() { s.onGMChange(nil, nil) })
}

var _ engine.PacketSource = fakeSource{}
