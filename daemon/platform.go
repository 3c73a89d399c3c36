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

import "github.com/dantesync/dantesync/engine"

// PlatformDefaults picks the low-jitter or bursty engine profile for the
// given GOOS. This is a plain config-value switch, not a build tag: one
// binary serves both platforms, matching the reference implementation's
// choice to keep servo/filter tuning as ordinary data rather than
// compiled-in per-OS branches.
func PlatformDefaults(goos string) engine.Config {
	if goos == "windows" {
		return engine.DefaultConfigBursty()
	}
	return engine.DefaultConfigLowJitter()
}
