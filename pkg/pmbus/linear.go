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

	"github.com/pkg/errors"
)

// EncodeLinearMantissa returns the unsigned 16-bit mantissa m such that
// m * 2^exponent is closest to value.
// A value that rounds to 0 or does not fit in 16 bits results in an OutOfRangeError.
func EncodeLinearMantissa(value float64, exponent int) (uint16, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return 0, errors.Wrapf(OutOfRangeError, "cannot encode %v", value)
	}
	m := math.Round(value / math.Exp2(float64(exponent)))
	if m < 1 {
		return 0, errors.Wrapf(OutOfRangeError, "%v is below the resolution of exponent %d", value, exponent)
	}
	if m > math.MaxUint16 {
		return 0, errors.Wrapf(OutOfRangeError, "%v exceeds the range of exponent %d", value, exponent)
	}
	return uint16(m), nil
}

// LinearValue returns mantissa * 2^exponent.
func LinearValue(mantissa uint16, exponent int) float64 {
	return float64(mantissa) * math.Exp2(float64(exponent))
}
