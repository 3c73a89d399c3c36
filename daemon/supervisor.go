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
	"os"
	"os/exec"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dantesync/dantesync/clock"
	"github.com/dantesync/dantesync/engine"
	"github.com/dantesync/dantesync/ptpv1"
	"github.com/dantesync/dantesync/rtc"
	"github.com/dantesync/dantesync/servo"
)

// Supervisor owns the process lifetime: the NTP-then-PTP startup
// sequence, the single-threaded packet poll loop, periodic status
// logging, RTC refresh requests, and signal-driven shutdown. This is the
// one goroutine that calls into engine.Controller, per the concurrency
// model's single-supervisor-thread design.
type Supervisor struct {
	cfg        *Config
	clock      clock.Actuator
	source     engine.PacketSource
	ntp        engine.NtpSource
	status     *Status
	sysstats   *SysStats
	controller *engine.Controller

	rtcDevice    string
	rtcRequested atomic.Bool
	shutdown     atomic.Bool
}

// New builds a Supervisor wired to the given collaborators. source and
// ntp are accepted as the engine.PacketSource/NtpSource interfaces so
// tests can substitute fakes for the real capture/sntp backends.
func New(cfg *Config, act clock.Actuator, source engine.PacketSource, ntp engine.NtpSource) *Supervisor {
	s := &Supervisor{
		cfg:       cfg,
		clock:     act,
		source:    source,
		ntp:       ntp,
		status:    NewStatus(),
		rtcDevice: "/dev/rtc0",
	}
	if stats, err := NewSysStats(); err == nil {
		s.sysstats = stats
	} else {
		log.Warnf("daemon: sysstats unavailable: %v", err)
	}

	s.controller = engine.New(act, servo.New(cfg.Servo), source, cfg.Filters,
		s.onStatus, s.onGMChange, s.requestRTCUpdate)
	return s
}

// Status returns the shared status record for external readers (the
// status HTTP handler, the Prometheus collector).
func (s *Supervisor) Status() *Status { return s.status }

func (s *Supervisor) onStatus(st engine.Status) {
	s.status.Update(st)
}

func (s *Supervisor) onGMChange(old, new *ptpv1.UUID) {
	log.Warnf("daemon: grandmaster changed %x -> %x", old, new)
}

// requestRTCUpdate is invoked by the engine the moment it first settles
// without needing an initial step. It only sets a flag; the actual
// ioctl happens on the supervisor's own ten-minute cadence (see Run), so
// a burst of settle/reset/settle transitions can never spam /dev/rtc0.
func (s *Supervisor) requestRTCUpdate() {
	s.rtcRequested.Store(true)
}

// stopConflictingTimeServices disables the distro's own NTP client so it
// cannot fight dantesyncd over the wall clock. Best-effort and
// deliberately non-fatal: a host without timedatectl, or one where the
// command fails, still runs the sync loop.
func stopConflictingTimeServices() {
	log.Info("daemon: disabling system NTP via timedatectl")
	if out, err := exec.Command("timedatectl", "set-ntp", "false").CombinedOutput(); err != nil {
		log.Warnf("daemon: timedatectl set-ntp false failed (ignoring): %v: %s", err, out)
	}
}

// runNTPSync performs the startup-only coarse phase alignment: a single
// SNTP query, stepped into place if beyond the step threshold. Skipped
// entirely when cfg.SkipNTP is set (Scenario "NTP unreachable" without a
// configured server, or test harnesses with no network).
func (s *Supervisor) runNTPSync(stepThreshold time.Duration) {
	if s.cfg.SkipNTP || s.ntp == nil {
		log.Info("daemon: NTP phase alignment skipped")
		return
	}
	magnitude, sign, err := s.ntp.Offset()
	if err != nil {
		log.Warnf("daemon: NTP query failed, proceeding on PTP alone: %v", err)
		s.status.UpdateNTP(0, true)
		return
	}
	offsetUS := magnitude.Microseconds()
	if sign < 0 {
		offsetUS = -offsetUS
	}
	s.status.UpdateNTP(offsetUS, false)

	if magnitude <= stepThreshold {
		log.Infof("daemon: NTP offset %s within threshold, no step needed", magnitude)
		return
	}
	step := magnitude
	if sign < 0 {
		step = -step
	}
	log.Infof("daemon: stepping clock %s to align with NTP", step)
	if err := s.clock.Step(step); err != nil {
		log.Errorf("daemon: NTP step failed: %v", err)
	}
}

// Run executes the full lifecycle: stop conflicting services, NTP
// alignment, systemd readiness notification, then the packet poll loop
// until a shutdown signal or Stop() is observed.
func (s *Supervisor) Run(stepThreshold time.Duration) error {
	stopConflictingTimeServices()
	s.runNTPSync(stepThreshold)

	if err := notifyReady(); err != nil {
		log.Debugf("daemon: systemd notify-ready: %v", err)
	}
	log.Info("daemon: starting PTP loop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Warnf("daemon: received %s, shutting down", sig)
		s.Stop()
	}()

	lastLog := time.Now()
	lastRTC := time.Now()

	for !s.shutdown.Load() {
		if time.Since(lastLog) >= s.cfg.StatusLog {
			s.logStatus()
			lastLog = time.Now()
		}

		if s.rtcRequested.Load() && time.Since(lastRTC) >= s.cfg.Filters.RTCUpdateInterval {
			s.refreshRTC()
			lastRTC = time.Now()
		}

		payload, arrival, ok, err := s.source.Recv()
		if err != nil {
			log.Warnf("daemon: packet source error: %v", err)
			continue
		}
		if !ok {
			time.Sleep(time.Millisecond)
			continue
		}
		s.controller.ProcessPacket(payload, arrival)
	}

	log.Info("daemon: sync loop exiting")
	if err := notifyStopping(); err != nil {
		log.Debugf("daemon: systemd notify-stopping: %v", err)
	}
	return nil
}

// Stop requests a graceful shutdown; safe to call from any goroutine or
// signal handler.
func (s *Supervisor) Stop() {
	s.shutdown.Store(true)
}

func (s *Supervisor) logStatus() {
	st := s.status.Snapshot()
	if s.sysstats != nil {
		s.sysstats.LogSummary()
	}
	if st.Settled {
		log.Infof("daemon: locked, offset=%dns drift=%.3fppm ntp_offset=%dus", st.OffsetNS, st.DriftPPM, st.NtpOffsetUS)
	} else {
		log.Infof("daemon: settling, offset=%dns", st.OffsetNS)
	}
	if err := notifyStatus(st); err != nil {
		log.Debugf("daemon: systemd notify-status: %v", err)
	}
}

func (s *Supervisor) refreshRTC() {
	if err := rtc.Update(s.rtcDevice, time.Now()); err != nil {
		log.Debugf("daemon: RTC refresh skipped: %v", err)
		return
	}
	s.rtcRequested.Store(false)
	log.Info("daemon: RTC refreshed from disciplined clock")
}
