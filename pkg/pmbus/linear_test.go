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

package pmbus

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeLinearMantissa(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		exponent int
		want     uint16
	}{
		{name: "1mV at -10", value: 0.001, exponent: -10, want: 1},
		{name: "1mV at -12", value: 0.001, exponent: -12, want: 4},
		{name: "5mV at -12", value: 0.005, exponent: -12, want: 20},
		{name: "1V at -10", value: 1, exponent: -10, want: 1024},
		{name: "positive exponent", value: 8, exponent: 2, want: 2},
		{name: "max", value: 65535, exponent: 0, want: 65535},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeLinearMantissa(tt.value, tt.exponent)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeLinearMantissaOutOfRange(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		exponent int
	}{
		{name: "rounds to zero", value: 0.0001, exponent: -10},
		{name: "too large", value: 100, exponent: -10},
		{name: "negative", value: -0.001, exponent: -10},
		{name: "NaN", value: math.NaN(), exponent: -10},
		{name: "infinite", value: math.Inf(1), exponent: -10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeLinearMantissa(tt.value, tt.exponent)
			require.Error(t, err)
			assert.True(t, IsOutOfRange(err))
		})
	}
}

func TestLinearValue(t *testing.T) {
	assert.InDelta(t, 0.0009765625, LinearValue(1, -10), 1e-12)
	assert.InDelta(t, 1.0, LinearValue(1024, -10), 1e-12)
	assert.InDelta(t, 0.005, LinearValue(20, -12), 0.0001)
}
