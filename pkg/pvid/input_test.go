// Copyright 2024 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package pvid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/PVIDConfigurator/pkg/pmbus"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		input string
		want  uint8
	}{
		{input: "0x40", want: 0x40},
		{input: "0X4f", want: 0x4F},
		{input: " 0x50 ", want: 0x50},
		{input: "40", want: 0x40},
		{input: "64", want: 0x64},
		{input: "4f", want: 0x4F},
		{input: "0x7F", want: 0x7F},
	}
	for _, tt := range tests {
		got, err := ParseAddress(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}

	_, err := ParseAddress("0xZZ")
	assert.True(t, IsInvalidInput(err))
	_, err = ParseAddress("")
	assert.True(t, IsInvalidInput(err))
	_, err = ParseAddress("0x80")
	assert.True(t, pmbus.IsOutOfRange(err))
	_, err = ParseAddress("80")
	assert.True(t, pmbus.IsOutOfRange(err))
}

func TestParseGPIOIndex(t *testing.T) {
	for i := 0; i <= 8; i++ {
		got, err := ParseGPIOIndex(string(rune('0'+i)), ADM1266)
		require.NoError(t, err)
		assert.Equal(t, uint8(i), got)
	}

	_, err := ParseGPIOIndex("9", ADM1266)
	assert.True(t, pmbus.IsOutOfRange(err))
	_, err = ParseGPIOIndex("-1", ADM1266)
	assert.True(t, pmbus.IsOutOfRange(err))
	_, err = ParseGPIOIndex("x", ADM1266)
	assert.True(t, IsInvalidInput(err))
	_, err = ParseGPIOIndex("1.5", ADM1266)
	assert.True(t, IsInvalidInput(err))
}

func TestParseResolution(t *testing.T) {
	got, err := ParseResolution("0.001", ADM1266)
	require.NoError(t, err)
	assert.Equal(t, 0.001, got)

	got, err = ParseResolution(" 0.005", ADM1266)
	require.NoError(t, err)
	assert.Equal(t, 0.005, got)

	_, err = ParseResolution("0.0009", ADM1266)
	assert.True(t, pmbus.IsOutOfRange(err))
	_, err = ParseResolution("abc", ADM1266)
	assert.True(t, IsInvalidInput(err))
	_, err = ParseResolution("NaN", ADM1266)
	assert.True(t, IsInvalidInput(err))
}

func TestParseYesNo(t *testing.T) {
	for _, s := range []string{"yes", "YES", "y", " Yes "} {
		v, err := ParseYesNo(s)
		require.NoError(t, err, s)
		assert.True(t, v, s)
	}
	for _, s := range []string{"no", "NO", "n"} {
		v, err := ParseYesNo(s)
		require.NoError(t, err, s)
		assert.False(t, v, s)
	}
	_, err := ParseYesNo("maybe")
	assert.True(t, IsInvalidInput(err))
}
