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

// Package ptpv1 parses the PTPv1 (IEEE 1588-2002) Sync and Follow-Up
// messages broadcast by a Dante grandmaster. It is a fixed 40-byte header
// layout, unrelated to (and not decodable by) the PTPv2 types elsewhere in
// this module.
package ptpv1

import (
	"encoding/binary"
	"fmt"
)

// Wire layout offsets, per the PTPv1 header and bodies consumed here.
const (
	headerLen = 40

	offsetVersion    = 0
	offsetSourceUUID = 22
	offsetSequenceID = 30
	offsetControl    = 32
	offsetBody       = 36

	// Sync body: grandmaster UUID at body offset 13, absolute 49.
	offsetSyncGMUUID = 49

	// Follow-Up body: associated sequence id at body offset 6 (absolute
	// 42), precise origin timestamp at body offset 8 (absolute 44).
	offsetFollowUpSeqID  = 42
	offsetFollowUpOrigin = 44
)

// Control byte values identifying the message type.
const (
	ControlSync     byte = 0x00
	ControlFollowUp byte = 0x02
)

// Version is the only version this parser accepts (the high nibble of the
// version byte).
const Version = 1

// MulticastGroup and the two ports Dante's PTPv1 grandmaster broadcasts on.
const (
	MulticastGroup = "224.0.1.129"
	EventPort      = 319 // Sync
	GeneralPort    = 320 // Follow_Up
)

// UUID is a 6-byte PTPv1 clock identifier.
type UUID [6]byte

// MessageType identifies which of the two in-scope message kinds a header
// describes.
type MessageType int

// The two message kinds this parser understands; anything else is Other.
const (
	Other MessageType = iota
	Sync
	FollowUp
)

// Header is the fixed 40-byte PTPv1 header.
type Header struct {
	Version     byte
	Type        MessageType
	SourceUUID  UUID
	SequenceID  uint16
}

// ErrMalformed indicates a packet too short or carrying an unsupported
// version.
type ErrMalformed struct {
	Reason string
}

func (e *ErrMalformed) Error() string {
	return fmt.Sprintf("ptpv1: malformed packet: %s", e.Reason)
}

// ParseHeader parses the fixed header. It rejects anything shorter than 40
// bytes or whose version's high nibble is not 1.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < headerLen {
		return Header{}, &ErrMalformed{Reason: fmt.Sprintf("length %d < %d", len(b), headerLen)}
	}
	version := b[offsetVersion] >> 4
	if version != Version {
		return Header{}, &ErrMalformed{Reason: fmt.Sprintf("version %d != %d", version, Version)}
	}
	var h Header
	h.Version = version
	copy(h.SourceUUID[:], b[offsetSourceUUID:offsetSourceUUID+6])
	h.SequenceID = binary.BigEndian.Uint16(b[offsetSequenceID : offsetSequenceID+2])
	switch b[offsetControl] {
	case ControlSync:
		h.Type = Sync
	case ControlFollowUp:
		h.Type = FollowUp
	default:
		h.Type = Other
	}
	return h, nil
}

// ParseSyncBody extracts the grandmaster UUID from a full Sync packet (the
// whole payload including the 40-byte header). The caller must already have
// validated the header via ParseHeader.
func ParseSyncBody(b []byte) (UUID, error) {
	if len(b) < offsetSyncGMUUID+6 {
		return UUID{}, &ErrMalformed{Reason: fmt.Sprintf("sync body too short: %d bytes", len(b))}
	}
	var u UUID
	copy(u[:], b[offsetSyncGMUUID:offsetSyncGMUUID+6])
	return u, nil
}

// FollowUpBody is the parsed payload of a Follow-Up message.
type FollowUpBody struct {
	AssociatedSequenceID uint16
	// OriginNS is precise_origin_timestamp converted to nanoseconds
	// (seconds*1e9 + nanoseconds), as a signed 64-bit integer. That is
	// good for more than 290 years, far beyond any uptime counter.
	OriginNS int64
}

// ParseFollowUpBody extracts the associated sequence id and precise origin
// timestamp from a full Follow-Up packet (the whole payload including the
// 40-byte header).
func ParseFollowUpBody(b []byte) (FollowUpBody, error) {
	if len(b) < offsetFollowUpOrigin+8 {
		return FollowUpBody{}, &ErrMalformed{Reason: fmt.Sprintf("follow-up body too short: %d bytes", len(b))}
	}
	seq := binary.BigEndian.Uint16(b[offsetFollowUpSeqID : offsetFollowUpSeqID+2])
	seconds := binary.BigEndian.Uint32(b[offsetFollowUpOrigin : offsetFollowUpOrigin+4])
	nanos := binary.BigEndian.Uint32(b[offsetFollowUpOrigin+4 : offsetFollowUpOrigin+8])
	return FollowUpBody{
		AssociatedSequenceID: seq,
		OriginNS:             int64(seconds)*1_000_000_000 + int64(nanos),
	}, nil
}
