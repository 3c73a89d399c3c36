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

//go:build linux

// Package rtc writes the disciplined wall clock back to the battery-backed
// hardware real-time clock, so the host boots with a sane time even before
// PTP/NTP have re-locked. This is the RTC_SET_TIME side of the Linux rtc
// subsystem, requested at most once per RTCUpdateInterval by the
// supervisor once the engine settles.
package rtc

import (
	"fmt"
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// linuxRTCTime mirrors struct rtc_time from linux/rtc.h.
type linuxRTCTime struct {
	Sec   int32
	Min   int32
	Hour  int32
	Mday  int32
	Mon   int32
	Year  int32
	Wday  int32
	Yday  int32
	Isdst int32
}

const (
	rtcMagic      = 'p'
	rtcSetTimeCmd = 0x0a
	// ioctlRTCSetTime is _IOW('p', 0x0a, struct rtc_time), computed the
	// same way phc.Device.ioctl's callers compute their PTP ioctl
	// numbers: direction|size in the high bits, magic/cmd in the low.
	ioctlRTCSetTime = 0x40000000 | (uintptr(unsafe.Sizeof(linuxRTCTime{})) << 16) | (uintptr(rtcMagic) << 8) | rtcSetTimeCmd
)

// Update writes t to the named RTC device (typically /dev/rtc0).
func Update(device string, t time.Time) error {
	f, err := os.OpenFile(device, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("rtc: open %s: %w", device, err)
	}
	defer f.Close()

	local := t.Local()
	val := linuxRTCTime{
		Sec:  int32(local.Second()),
		Min:  int32(local.Minute()),
		Hour: int32(local.Hour()),
		Mday: int32(local.Day()),
		Mon:  int32(local.Month()) - 1,
		Year: int32(local.Year()) - 1900,
	}

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), ioctlRTCSetTime, uintptr(unsafe.Pointer(&val)))
	if errno != 0 {
		return fmt.Errorf("rtc: RTC_SET_TIME on %s: %w", device, errno)
	}
	return nil
}
