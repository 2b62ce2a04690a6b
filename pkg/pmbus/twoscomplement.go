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

import "github.com/pkg/errors"

const (
	// ExponentWidth is the number of bits of a VOUT_MODE / LINEAR11 exponent.
	ExponentWidth uint = 5
)

// DecodeTwosComplement interprets the low width bits of raw as
// a signed two's complement value.
func DecodeTwosComplement(raw uint8, width uint) int {
	mask := uint8(1<<width - 1)
	value := int(raw & mask)
	if value&(1<<(width-1)) != 0 {
		value -= 1 << width
	}
	return value
}

// EncodeTwosComplement returns the low width bits of the two's complement
// representation of value.
// Returns an OutOfRangeError when value does not fit in width signed bits.
func EncodeTwosComplement(value int, width uint) (uint8, error) {
	if width == 0 || width > 8 {
		return 0, errors.Wrapf(OutOfRangeError, "width must be between 1 and 8, got %d", width)
	}
	lo := -(1 << (width - 1))
	hi := 1<<(width-1) - 1
	if value < lo || value > hi {
		return 0, errors.Wrapf(OutOfRangeError, "%d does not fit in %d signed bits [%d..%d]", value, width, lo, hi)
	}
	mask := uint8(1<<width - 1)
	return uint8(value) & mask, nil
}

