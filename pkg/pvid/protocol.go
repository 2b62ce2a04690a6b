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
	"time"

	"github.com/pkg/errors"

	"github.com/binkynet/PVIDConfigurator/pkg/pmbus"
)

// Protocol holds all device specific constants of the PVID commands.
// Supporting another device variant only requires another Protocol value.
type Protocol struct {
	// Name of the device family
	Name string
	// Opcode of the PVID configure command
	ConfigOpcode uint8
	// Opcode of the PVID mode (enable/disable) command
	ModeOpcode uint8
	// Number of GPIO pins that form the voltage ID pattern
	PinCount int
	// Highest valid GPIO index (0 = GPIO1)
	MaxGPIOIndex uint8
	// Bit width of the resolution exponent
	ExponentWidth uint
	// Smallest accepted resolution (V/LSB)
	MinResolution float64
	// Wait after each disable write before new configuration is accepted
	SettleDelay time.Duration
	// Number of physical PVID channels on a device
	ChannelCount int
	// Length of the mode command response
	ModeResponseLength int
	// Offset of the channel 1 status in the mode response
	Channel1StatusOffset int
	// Offset of the channel 2 status in the mode response
	Channel2StatusOffset int
}

// ADM1266 is the protocol of the Analog Devices ADM1266 sequencer.
var ADM1266 = Protocol{
	Name:                 "ADM1266",
	ConfigOpcode:         0xF2,
	ModeOpcode:           0xF3,
	PinCount:             4,
	MaxGPIOIndex:         8,
	ExponentWidth:        pmbus.ExponentWidth,
	MinResolution:        0.001,
	SettleDelay:          600 * time.Millisecond,
	ChannelCount:         2,
	ModeResponseLength:   3,
	Channel1StatusOffset: 1,
	Channel2StatusOffset: 2,
}

// Validate the given protocol, returning nil on ok,
// or an error upon validation issues.
func (p Protocol) Validate() error {
	if p.PinCount <= 0 {
		return errors.Wrapf(ValidationError, "PinCount must be positive, got %d", p.PinCount)
	}
	if p.ExponentWidth == 0 || p.ExponentWidth > 8 {
		return errors.Wrapf(ValidationError, "ExponentWidth must be 1..8, got %d", p.ExponentWidth)
	}
	if p.MinResolution <= 0 {
		return errors.Wrapf(ValidationError, "MinResolution must be positive, got %v", p.MinResolution)
	}
	if p.ChannelCount != 2 {
		return errors.Wrapf(ValidationError, "ChannelCount must be 2, got %d", p.ChannelCount)
	}
	if p.ModeResponseLength <= 0 {
		return errors.Wrapf(ValidationError, "ModeResponseLength must be positive, got %d", p.ModeResponseLength)
	}
	if p.Channel1StatusOffset < 0 || p.Channel2StatusOffset < 0 {
		return errors.Wrapf(ValidationError, "status offsets must not be negative, got %d and %d", p.Channel1StatusOffset, p.Channel2StatusOffset)
	}
	if p.Channel1StatusOffset >= p.ModeResponseLength || p.Channel2StatusOffset >= p.ModeResponseLength {
		return errors.Wrapf(ValidationError, "status offsets must be inside the %d byte response", p.ModeResponseLength)
	}
	return nil
}
