//go:build linux

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

// Package capture implements the standard-UDP PacketSource backend: two
// multicast sockets (PTP event and general) joined on a chosen interface,
// software RX timestamped at the kernel. The packet-capture backend
// choice itself (this vs. a userland capture driver) is an out-of-scope
// collaborator decision; this is the one backend the core ships with.
package capture

import (
	"errors"
	"fmt"
	"net"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"

	"github.com/dantesync/dantesync/ptpv1"
	"github.com/dantesync/dantesync/timestamp"
)

// pollDeadline equals the supervisor's 1ms idle sleep and is the polling
// step the package tests use. Recv itself never waits on it: reads go
// through the raw non-blocking fd (see recv) and return at once when no
// packet is queued.
const pollDeadline = time.Millisecond

// socket pairs one UDP connection with the raw fd timestamp reads need.
type socket struct {
	conn *net.UDPConn
	fd   int
}

func newSocket(ifaceName string, port int) (*socket, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, fmt.Errorf("capture: listen on port %d: %w", port, err)
	}

	pc := ipv4.NewPacketConn(conn)
	iface, err := net.InterfaceByName(ifaceName)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("capture: interface %q: %w", ifaceName, err)
	}
	group := &net.UDPAddr{IP: net.ParseIP(ptpv1.MulticastGroup)}
	if err := pc.JoinGroup(iface, group); err != nil {
		conn.Close()
		return nil, fmt.Errorf("capture: join group %s on %s: %w", ptpv1.MulticastGroup, ifaceName, err)
	}

	fd, err := timestamp.ConnFd(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("capture: fd: %w", err)
	}
	if err := timestamp.EnableSWTimestampsRx(fd); err != nil {
		conn.Close()
		return nil, fmt.Errorf("capture: enable SW RX timestamps: %w", err)
	}

	log.Infof("capture: joined %s:%d on %s", ptpv1.MulticastGroup, port, ifaceName)
	return &socket{conn: conn, fd: fd}, nil
}

// recv reads through the raw fd timestamp path, which bypasses the Go
// runtime poller entirely: conn's read deadline has no effect on a direct
// unix.Recvmsg, and the underlying fd is already in non-blocking mode, so
// an idle socket surfaces as EAGAIN/EWOULDBLOCK rather than a net.Error
// timeout. That is the normal no-packet signal, not a failure.
func (s *socket) recv(buf, oob []byte) ([]byte, time.Time, bool, error) {
	n, _, ts, err := timestamp.ReadPacketWithRXTimestampBuf(s.fd, buf, oob)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
			return nil, time.Time{}, false, nil
		}
		return nil, time.Time{}, false, err
	}
	if ts.IsZero() {
		ts = time.Now()
	}
	return buf[:n], ts, true, nil
}

func (s *socket) close() error { return s.conn.Close() }

// Source is a PacketSource backed by the PTP event (319) and general (320)
// multicast sockets. Each Recv call polls the event socket then the
// general socket, mirroring the reference implementation's priority
// order.
type Source struct {
	event, general *socket
	buf, oob       []byte
}

// NewSource joins both PTP multicast ports on the named interface.
func NewSource(ifaceName string) (*Source, error) {
	event, err := newSocket(ifaceName, ptpv1.EventPort)
	if err != nil {
		return nil, err
	}
	general, err := newSocket(ifaceName, ptpv1.GeneralPort)
	if err != nil {
		event.close()
		return nil, err
	}
	return &Source{
		event:   event,
		general: general,
		buf:     make([]byte, timestamp.PayloadSizeBytes),
		oob:     make([]byte, timestamp.ControlSizeBytes),
	}, nil
}

// Recv implements engine.PacketSource: non-blocking, polls the event
// socket before the general socket, returns ok=false at once if neither
// had a packet queued.
func (s *Source) Recv() ([]byte, time.Time, bool, error) {
	payload, ts, ok, err := s.event.recv(s.buf, s.oob)
	if err != nil {
		return nil, time.Time{}, false, err
	}
	if ok {
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, ts, true, nil
	}

	payload, ts, ok, err = s.general.recv(s.buf, s.oob)
	if err != nil {
		return nil, time.Time{}, false, err
	}
	if ok {
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, ts, true, nil
	}
	return nil, time.Time{}, false, nil
}

// Reset is a no-op: this backend keeps no reassembly state across a
// grandmaster change.
func (s *Source) Reset() error { return nil }

// Close releases both sockets.
func (s *Source) Close() error {
	err1 := s.event.close()
	err2 := s.general.close()
	if err1 != nil {
		return err1
	}
	return err2
}
