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

	"github.com/coreos/go-systemd/daemon"

	"github.com/dantesync/dantesync/engine"
)

// notifyReady tells systemd the service finished starting. A no-op,
// non-error return when NOTIFY_SOCKET is unset (not running under
// systemd).
func notifyReady() error {
	supported, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if !supported && err != nil {
		return err
	}
	return nil
}

// notifyStopping tells systemd the service is shutting down.
func notifyStopping() error {
	supported, err := daemon.SdNotify(false, daemon.SdNotifyStopping)
	if !supported && err != nil {
		return err
	}
	return nil
}

// notifyStatus pushes a one-line status string, surfaced by
// `systemctl status`.
func notifyStatus(st engine.Status) error {
	var line string
	if st.Settled {
		line = fmt.Sprintf("locked | offset %.3f us", float64(st.OffsetNS)/1000.0)
	} else {
		line = "settling..."
	}
	supported, err := daemon.SdNotify(false, daemon.SdNotifyStatus+line)
	if !supported && err != nil {
		return err
	}
	return nil
}
