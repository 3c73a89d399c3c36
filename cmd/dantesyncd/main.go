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

// Command dantesyncd disciplines the host wall clock against a Dante
// PTPv1 grandmaster, using an SNTP query for startup coarse phase
// alignment. See the engine, servo, ptpv1, capture, and sntp packages for
// the control loop itself; this command only wires them together.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dantesync/dantesync/capture"
	"github.com/dantesync/dantesync/clock"
	"github.com/dantesync/dantesync/daemon"
	"github.com/dantesync/dantesync/sntp"
)

// version is stamped by release tooling; "dev" is the unreleased default.
var version = "dev"

// ntpStepThreshold is the startup-only coarse-phase-alignment step
// threshold: an SNTP offset at or below this is ignored as noise rather
// than stepped, matching the reference implementation's first-step
// gating.
const ntpStepThreshold = 50 * time.Millisecond

var (
	flagConfig      string
	flagIface       string
	flagNTPServer   string
	flagSkipNTP     bool
	flagVerbose     bool
	flagLockFile    string
	flagStatusAddr  string
	flagMetricsAddr string
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dantesyncd",
		Short: "Discipline the host clock against a Dante PTPv1 grandmaster",
	}
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose logging")
	root.AddCommand(runCmd(), statusCmd(), versionCmd())
	return root
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the synchronization daemon in the foreground",
		RunE:  runRun,
	}
	cmd.Flags().StringVar(&flagConfig, "config", "", "path to a YAML config file, overriding platform defaults")
	cmd.Flags().StringVar(&flagIface, "iface", "eth0", "network interface to join the Dante PTP multicast groups on")
	cmd.Flags().StringVar(&flagNTPServer, "ntp-server", "10.77.8.2", "SNTP server for startup coarse phase alignment")
	cmd.Flags().BoolVar(&flagSkipNTP, "skip-ntp", false, "skip the startup NTP phase alignment")
	cmd.Flags().StringVar(&flagLockFile, "lock-file", "/var/run/dantesyncd.lock", "singleton lockfile path")
	cmd.Flags().StringVar(&flagStatusAddr, "status-http", "", "host:port to serve a JSON status snapshot on (empty disables)")
	cmd.Flags().StringVar(&flagMetricsAddr, "metrics-http", "", "host:port to serve Prometheus metrics on (empty disables)")
	return cmd
}

func statusCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query a running dantesyncd's status endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printStatus(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "status-http", "http://127.0.0.1:8980/status", "status endpoint to query")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the dantesyncd version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("dantesyncd %s (%s)\n", version, runtime.Version())
			return nil
		},
	}
}

func configureVerbosity() {
	log.SetLevel(log.InfoLevel)
	if flagVerbose {
		log.SetLevel(log.DebugLevel)
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	configureVerbosity()

	var cfg *daemon.Config
	var err error
	if flagConfig != "" {
		cfg, err = daemon.ReadConfig(flagConfig, runtime.GOOS)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = daemon.DefaultConfig(runtime.GOOS)
	}
	cfg.Iface = flagIface
	cfg.NTPServer = flagNTPServer
	cfg.SkipNTP = flagSkipNTP
	cfg.LockFile = flagLockFile
	cfg.StatusAddr = flagStatusAddr
	cfg.MetricsAddr = flagMetricsAddr
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	lock, err := daemon.AcquireLock(cfg.LockFile)
	if err != nil {
		return err
	}
	defer lock.Close()

	act, err := clock.New()
	if err != nil {
		return fmt.Errorf("clock actuator: %w", err)
	}
	defer act.Close()

	source, err := capture.NewSource(cfg.Iface)
	if err != nil {
		return fmt.Errorf("packet source: %w", err)
	}
	defer source.Close()

	var aligner *sntp.Aligner
	if !cfg.SkipNTP {
		aligner = sntp.NewAligner(cfg.NTPServer)
	}

	sup := daemon.New(cfg, act, source, aligner)

	if cfg.MetricsAddr != "" {
		go daemon.ServeMetrics(cfg.MetricsAddr, sup.Status())
	}
	if cfg.StatusAddr != "" {
		go daemon.ServeStatus(cfg.StatusAddr, sup.Status())
	}

	return sup.Run(ntpStepThreshold)
}

type statusPayload struct {
	OffsetNS        int64   `json:"offset_ns"`
	DriftPPM        float64 `json:"drift_ppm"`
	Settled         bool    `json:"settled"`
	Mode            string  `json:"mode"`
	NtpOffsetUS     int64   `json:"ntp_offset_us"`
	NtpFailed       bool    `json:"ntp_failed"`
	FilteredCount   uint64  `json:"filtered_count"`
	UpdatedUnixSecs int64   `json:"updated_unix_secs"`
}

func printStatus(addr string) error {
	resp, err := http.Get(addr) //nolint:gosec
	if err != nil {
		return fmt.Errorf("query %s: %w", addr, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var st statusPayload
	if err := json.Unmarshal(body, &st); err != nil {
		return fmt.Errorf("decode status: %w", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetColWidth(20)
	table.SetHeader([]string{"field", "value"})
	rows := [][]string{
		{"mode", st.Mode},
		{"settled", fmt.Sprintf("%t", st.Settled)},
		{"offset_ns", fmt.Sprintf("%d", st.OffsetNS)},
		{"drift_ppm", fmt.Sprintf("%.3f", st.DriftPPM)},
		{"ntp_offset_us", fmt.Sprintf("%d", st.NtpOffsetUS)},
		{"ntp_failed", fmt.Sprintf("%t", st.NtpFailed)},
		{"filtered_count", fmt.Sprintf("%d", st.FilteredCount)},
		{"updated", time.Unix(st.UpdatedUnixSecs, 0).Format(time.RFC3339)},
	}
	for _, row := range rows {
		table.Append(row)
	}
	table.Render()
	return nil
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
