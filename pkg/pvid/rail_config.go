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
	"github.com/pkg/errors"

	"github.com/binkynet/PVIDConfigurator/pkg/pmbus"
)

// RailConfig holds the settings of a single PVID configuration attempt.
type RailConfig struct {
	// Name of the PVID channel being configured
	Channel string
	// GPIO index that supplies bit i of the voltage ID pattern.
	// Exactly Protocol.PinCount entries.
	GPIOs []uint8
	// Volts per least significant bit
	Resolution float64
	// Exponent of the resolution, as read from VOUT_MODE
	ResolutionExponent int
	// Arm the rail after configuration
	Enable bool
}

// Validate the given configuration against the given protocol,
// returning nil on ok, or an OutOfRangeError upon range issues.
func (rc RailConfig) Validate(p Protocol) error {
	if len(rc.GPIOs) != p.PinCount {
		return errors.Wrapf(pmbus.OutOfRangeError, "expected %d GPIO assignments, got %d", p.PinCount, len(rc.GPIOs))
	}
	for bit, gpio := range rc.GPIOs {
		if gpio > p.MaxGPIOIndex {
			return errors.Wrapf(pmbus.OutOfRangeError, "GPIO index of bit %d must be between 0 and %d, got %d", bit, p.MaxGPIOIndex, gpio)
		}
	}
	if !(rc.Resolution >= p.MinResolution) {
		return errors.Wrapf(pmbus.OutOfRangeError, "resolution must be greater than or equal to %v, got %v", p.MinResolution, rc.Resolution)
	}
	if _, err := pmbus.EncodeTwosComplement(rc.ResolutionExponent, p.ExponentWidth); err != nil {
		return err
	}
	return nil
}
