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
	"time"

	"github.com/shirou/gopsutil/process"
	log "github.com/sirupsen/logrus"
)

var procStartTime = time.Now()

// SysStats reports this process's own resource usage, logged alongside
// the PTP/NTP status line so an operator debugging a stalled lock can
// rule out the daemon itself being starved of CPU or descriptors.
type SysStats struct {
	proc *process.Process
}

// NewSysStats looks up the current process.
func NewSysStats() (*SysStats, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &SysStats{proc: p}, nil
}

// LogSummary emits one log line with uptime, CPU percent, RSS, and open
// file descriptor count. Each gopsutil call is best-effort: a failure to
// read one field must never block the sync loop it's reporting on.
func (s *SysStats) LogSummary() {
	uptime := time.Since(procStartTime).Round(time.Second)

	fields := log.Fields{"uptime": uptime}
	if cpu, err := s.proc.Percent(0); err == nil {
		fields["cpu_pct"] = cpu
	}
	if mem, err := s.proc.MemoryInfo(); err == nil {
		fields["rss"] = mem.RSS
	}
	if fds, err := s.proc.NumFDs(); err == nil {
		fields["num_fds"] = fds
	}
	log.WithFields(fields).Debug("daemon: process stats")
}
