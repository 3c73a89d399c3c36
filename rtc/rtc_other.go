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

//go:build !linux

package rtc

import (
	"errors"
	"time"
)

// ErrUnsupported is returned on platforms with no wired RTC backend. The
// reference implementation only updates the hardware RTC on Unix; on
// Windows the OS-level wall clock write performed by the step/frequency
// actuator is the only persistence dantesyncd provides.
var ErrUnsupported = errors.New("rtc: not supported on this platform")

// Update always fails on non-Linux builds.
func Update(device string, t time.Time) error {
	return ErrUnsupported
}
