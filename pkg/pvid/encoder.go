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
	"github.com/binkynet/PVIDConfigurator/pkg/pmbus"
)

const (
	// Offset of the pin count in a configure command
	ConfigFramePinCountOffset = 3
	// Offset of the first GPIO index in a configure command
	ConfigFrameGPIOOffset = 4
)

// ConfigFrame builds the PVID configure command for the given channel (1...).
//
// Layout (PMBus block write):
//
//	[0] opcode
//	[1] number of bytes that follow
//	[2] channel
//	[3] pin count
//	[4..4+pins) GPIO index per bit, bit 0 first
//	[4+pins]   resolution exponent (two's complement, ExponentWidth bits)
//	[5+pins]   resolution mantissa LSB
//	[6+pins]   resolution mantissa MSB
func (p Protocol) ConfigFrame(channel uint8, rc RailConfig) ([]byte, error) {
	if err := rc.Validate(p); err != nil {
		return nil, err
	}
	exponent, err := pmbus.EncodeTwosComplement(rc.ResolutionExponent, p.ExponentWidth)
	if err != nil {
		return nil, err
	}
	mantissa, err := pmbus.EncodeLinearMantissa(rc.Resolution, rc.ResolutionExponent)
	if err != nil {
		return nil, err
	}

	frame := make([]byte, 0, p.ConfigFrameLength())
	frame = append(frame, p.ConfigOpcode, uint8(p.ConfigFrameLength()-2), channel, uint8(p.PinCount))
	frame = append(frame, rc.GPIOs...)
	frame = append(frame, exponent, uint8(mantissa&0xFF), uint8(mantissa>>8))
	return frame, nil
}

// ConfigFrameLength returns the total length of a configure command.
func (p Protocol) ConfigFrameLength() int {
	return 4 + p.PinCount + 3
}

