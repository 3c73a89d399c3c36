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
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// metricsCollector implements prometheus.Collector directly against the
// live Status, rather than polling an HTTP endpoint the way the
// reference sptp exporter does: dantesyncd has no separate metrics
// process to scrape, so it registers itself.
type metricsCollector struct {
	status *Status

	offsetNS      *prometheus.Desc
	driftPPM      *prometheus.Desc
	settled       *prometheus.Desc
	filteredTotal *prometheus.Desc
	ntpOffsetUS   *prometheus.Desc
}

func newMetricsCollector(status *Status) *metricsCollector {
	return &metricsCollector{
		status:        status,
		offsetNS:      prometheus.NewDesc("dantesync_offset_ns", "Last computed PTP phase offset in nanoseconds.", nil, nil),
		driftPPM:      prometheus.NewDesc("dantesync_drift_ppm", "Last applied frequency adjustment in PPM.", nil, nil),
		settled:       prometheus.NewDesc("dantesync_settled", "1 if the PTP frequency-lock loop is settled.", nil, nil),
		filteredTotal: prometheus.NewDesc("dantesync_filtered_total", "Count of accepted PTP phase samples since the last filter reset.", nil, nil),
		ntpOffsetUS:   prometheus.NewDesc("dantesync_ntp_offset_us", "Most recent SNTP offset in microseconds.", nil, nil),
	}
}

func (c *metricsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.offsetNS
	ch <- c.driftPPM
	ch <- c.settled
	ch <- c.filteredTotal
	ch <- c.ntpOffsetUS
}

func (c *metricsCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.status.Snapshot()
	settledVal := 0.0
	if st.Settled {
		settledVal = 1.0
	}
	ch <- prometheus.MustNewConstMetric(c.offsetNS, prometheus.GaugeValue, float64(st.OffsetNS))
	ch <- prometheus.MustNewConstMetric(c.driftPPM, prometheus.GaugeValue, st.DriftPPM)
	ch <- prometheus.MustNewConstMetric(c.settled, prometheus.GaugeValue, settledVal)
	ch <- prometheus.MustNewConstMetric(c.filteredTotal, prometheus.GaugeValue, float64(st.FilteredCount))
	ch <- prometheus.MustNewConstMetric(c.ntpOffsetUS, prometheus.GaugeValue, float64(st.NtpOffsetUS))
}

// ServeMetrics registers the collector and serves /metrics on addr until
// the process exits. Meant to run in its own goroutine, mirroring the
// reference sptp Prometheus exporter's Start method.
func ServeMetrics(addr string, status *Status) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(newMetricsCollector(status))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))

	log.Infof("daemon: metrics listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil { //nolint:gosec
		log.Errorf("daemon: metrics server stopped: %v", err)
	}
}

// statusHandler serves the current Status snapshot as JSON, grounded in
// the reference implementation's IPC status channel and the teacher's
// DebugAddr/pprof pattern for exposing an operational side-channel.
func statusHandler(status *Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := status.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"offset_ns":%d,"drift_ppm":%f,"settled":%t,"mode":%q,"ntp_offset_us":%d,"ntp_failed":%t,"filtered_count":%d,"updated_unix_secs":%d}`,
			st.OffsetNS, st.DriftPPM, st.Settled, st.Mode, st.NtpOffsetUS, st.NtpFailed, st.FilteredCount, st.UpdatedUnixSecs)
	}
}

// ServeStatus serves the status JSON handler on addr until the process
// exits. Meant to run in its own goroutine.
func ServeStatus(addr string, status *Status) {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", statusHandler(status))

	log.Infof("daemon: status endpoint listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil { //nolint:gosec
		log.Errorf("daemon: status server stopped: %v", err)
	}
}
