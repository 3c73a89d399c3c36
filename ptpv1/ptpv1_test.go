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

package ptpv1

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func makeSync(seq uint16, gm UUID) []byte {
	b := make([]byte, 55)
	b[offsetVersion] = Version << 4
	copy(b[offsetSourceUUID:], []byte{1, 2, 3, 4, 5, 6})
	binary.BigEndian.PutUint16(b[offsetSequenceID:], seq)
	b[offsetControl] = ControlSync
	copy(b[offsetSyncGMUUID:], gm[:])
	return b
}

func makeFollowUp(seq uint16, srcUUID UUID, originNS int64) []byte {
	b := make([]byte, 52)
	b[offsetVersion] = Version << 4
	copy(b[offsetSourceUUID:], srcUUID[:])
	binary.BigEndian.PutUint16(b[offsetSequenceID:], seq)
	b[offsetControl] = ControlFollowUp
	binary.BigEndian.PutUint16(b[offsetFollowUpSeqID:], seq)
	binary.BigEndian.PutUint32(b[offsetFollowUpOrigin:], uint32(originNS/1_000_000_000))
	binary.BigEndian.PutUint32(b[offsetFollowUpOrigin+4:], uint32(originNS%1_000_000_000))
	return b
}

func TestParseHeaderSync(t *testing.T) {
	gm := UUID{9, 9, 9, 9, 9, 9}
	b := makeSync(42, gm)
	h, err := ParseHeader(b)
	require.NoError(t, err)
	require.Equal(t, Sync, h.Type)
	require.Equal(t, uint16(42), h.SequenceID)
	require.Equal(t, UUID{1, 2, 3, 4, 5, 6}, h.SourceUUID)

	body, err := ParseSyncBody(b)
	require.NoError(t, err)
	require.Equal(t, gm, body)
}

func TestParseHeaderFollowUp(t *testing.T) {
	src := UUID{1, 2, 3, 4, 5, 6}
	b := makeFollowUp(7, src, 1_000_000_001)
	h, err := ParseHeader(b)
	require.NoError(t, err)
	require.Equal(t, FollowUp, h.Type)
	require.Equal(t, src, h.SourceUUID)

	fu, err := ParseFollowUpBody(b)
	require.NoError(t, err)
	require.Equal(t, uint16(7), fu.AssociatedSequenceID)
	require.Equal(t, int64(1_000_000_001), fu.OriginNS)
}

func TestParseHeaderTooShort(t *testing.T) {
	_, err := ParseHeader(make([]byte, 10))
	require.Error(t, err)
}

func TestParseHeaderBadVersion(t *testing.T) {
	b := makeSync(1, UUID{})
	b[offsetVersion] = 2 << 4
	_, err := ParseHeader(b)
	require.Error(t, err)
}
