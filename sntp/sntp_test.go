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

package sntp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedOffsetPositive(t *testing.T) {
	d, sign, err := signedOffset(100 * time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, 100*time.Millisecond, d)
	require.Equal(t, 1, sign)
}

func TestSignedOffsetNegative(t *testing.T) {
	d, sign, err := signedOffset(-100 * time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, 100*time.Millisecond, d)
	require.Equal(t, -1, sign)
}

func TestSignedOffsetZero(t *testing.T) {
	d, sign, err := signedOffset(0)
	require.NoError(t, err)
	require.Zero(t, d)
	require.Equal(t, 1, sign)
}
