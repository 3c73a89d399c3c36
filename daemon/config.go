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

// Package daemon wires the engine, servo, capture, and sntp packages into
// a long-running process: configuration loading, the supervisor loop,
// status publication, and the ambient operational concerns (systemd
// notification, a singleton lockfile, Prometheus metrics) a production
// time-sync daemon needs around its core control loop.
package daemon

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"

	"github.com/dantesync/dantesync/engine"
	"github.com/dantesync/dantesync/servo"
)

// Config specifies dantesyncd run options. Fields match the reference
// implementation's SystemConfig one for one, plus the daemon-level
// settings (interface, NTP server, lockfile, ports) the reference left to
// CLI args.
type Config struct {
	Iface       string        `yaml:"iface"`
	NTPServer   string        `yaml:"ntp_server"`
	SkipNTP     bool          `yaml:"skip_ntp"`
	LogLevel    string        `yaml:"log_level"`
	LockFile    string        `yaml:"lock_file"`
	StatusAddr  string        `yaml:"status_addr"`
	MetricsAddr string        `yaml:"metrics_addr"`
	StatusLog   time.Duration `yaml:"status_log_interval"`

	Servo   servo.Config       `yaml:"servo"`
	Filters engine.FilterConfig `yaml:"filters"`
}

// DefaultConfig returns the platform-appropriate default configuration.
// goos selects between the low-jitter and bursty engine profiles (see
// PlatformDefaults); it is threaded through explicitly rather than read
// from runtime.GOOS so tests can exercise both branches.
func DefaultConfig(goos string) *Config {
	ec := PlatformDefaults(goos)
	return &Config{
		Iface:       "eth0",
		NTPServer:   "10.77.8.2",
		LogLevel:    "info",
		LockFile:    "/var/run/dantesyncd.lock",
		StatusAddr:  "",
		MetricsAddr: "",
		StatusLog:   10 * time.Second,
		Servo:       ec.Servo,
		Filters:     ec.Filters,
	}
}

// ReadConfig loads a YAML config file over the platform defaults.
func ReadConfig(path, goos string) (*Config, error) {
	c := DefaultConfig(goos)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("daemon: read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("daemon: parse config %s: %w", path, err)
	}
	return c, nil
}

// Validate reports whether the config is sane enough to run with.
func (c *Config) Validate() error {
	if c.Iface == "" {
		return fmt.Errorf("iface must be specified")
	}
	if !c.SkipNTP && c.NTPServer == "" {
		return fmt.Errorf("ntp_server must be specified unless skip_ntp is set")
	}
	if c.Filters.SampleWindowSize <= 0 {
		return fmt.Errorf("filters.sample_window_size must be positive")
	}
	if c.Filters.SettlingThreshold == 0 {
		return fmt.Errorf("filters.settling_threshold must be positive")
	}
	if c.StatusLog <= 0 {
		return fmt.Errorf("status_log_interval must be positive")
	}
	return nil
}

// EngineConfig assembles the engine.Config this daemon config implies.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{Servo: c.Servo, Filters: c.Filters}
}
