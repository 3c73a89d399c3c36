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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	require.NoError(t, DefaultConfig("linux").Validate())
	require.NoError(t, DefaultConfig("windows").Validate())
}

func TestPlatformDefaultsDiffer(t *testing.T) {
	linux := DefaultConfig("linux")
	windows := DefaultConfig("windows")
	require.NotEqual(t, linux.Servo.Kp, windows.Servo.Kp)
	require.NotEqual(t, linux.Filters.MinDeltaNS, windows.Filters.MinDeltaNS)
}

func TestValidateRejectsMissingIface(t *testing.T) {
	cfg := DefaultConfig("linux")
	cfg.Iface = ""
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsMissingNTPServerUnlessSkipped(t *testing.T) {
	cfg := DefaultConfig("linux")
	cfg.NTPServer = ""
	require.Error(t, cfg.Validate())

	cfg.SkipNTP = true
	require.NoError(t, cfg.Validate())
}

func TestReadConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dantesyncd.yaml")
	contents := "iface: eth1\nntp_server: 192.0.2.1\nskip_ntp: true\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := ReadConfig(path, "linux")
	require.NoError(t, err)
	require.Equal(t, "eth1", cfg.Iface)
	require.Equal(t, "192.0.2.1", cfg.NTPServer)
	require.True(t, cfg.SkipNTP)
	require.NoError(t, cfg.Validate())
}

func TestReadConfigMissingFile(t *testing.T) {
	_, err := ReadConfig("/nonexistent/dantesyncd.yaml", "linux")
	require.Error(t, err)
}
