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
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/binkynet/PVIDConfigurator/pkg/pmbus"
)

// ParseAddress parses a string containing a hexadecimal (7-bit) device address.
// The 0x prefix is optional, so "40" and "0x40" are the same address.
func ParseAddress(addr string) (uint8, error) {
	addr = strings.TrimSpace(addr)
	addr = strings.TrimPrefix(strings.TrimPrefix(addr, "0x"), "0X")
	result, err := strconv.ParseUint(addr, 16, 8)
	if err != nil {
		return 0, errors.Wrapf(InvalidInputError, "'%s' is not a valid address", addr)
	}
	if result > 0x7F {
		return 0, errors.Wrapf(pmbus.OutOfRangeError, "address 0x%02X is not a 7-bit address", result)
	}
	return uint8(result), nil
}

// ParseGPIOIndex parses a GPIO index (0 = GPIO1) and checks its range.
func ParseGPIOIndex(s string, p Protocol) (uint8, error) {
	value, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.Wrapf(InvalidInputError, "please enter a valid number between 0 and %d", p.MaxGPIOIndex)
	}
	if value < 0 || value > int(p.MaxGPIOIndex) {
		return 0, errors.Wrapf(pmbus.OutOfRangeError, "GPIO index must be between 0 and %d", p.MaxGPIOIndex)
	}
	return uint8(value), nil
}

// ParseResolution parses a resolution (V/LSB) and checks its lower bound.
func ParseResolution(s string, p Protocol) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, errors.Wrap(InvalidInputError, "please enter a valid float number")
	}
	if value < p.MinResolution {
		return 0, errors.Wrapf(pmbus.OutOfRangeError, "resolution must be greater than or equal to %v", p.MinResolution)
	}
	return value, nil
}

// ParseYesNo parses a yes/no answer.
func ParseYesNo(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	default:
		return false, errors.Wrapf(InvalidInputError, "please answer yes or no, got '%s'", s)
	}
}
