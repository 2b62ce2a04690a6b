//    Copyright 2017 Ewout Prangsma
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package bridge

import (
	"time"
)

const (
	// TypeRaspberryPi selects the Raspberry PI bridge (/dev/i2c-1 + status leds)
	TypeRaspberryPi = "rpi"
	// TypeI2C selects a plain Linux i2c-dev bus without status leds
	TypeI2C = "i2c"
	// TypeSimulated selects an in-memory simulated sequencer
	TypeSimulated = "sim"
)

// API of the bridge, the hardware used to reach the PMBus segment that
// the power sequencers are connected to.
type API interface {
	// Turn Green status led on/off
	SetGreenLED(on bool) error
	// Turn Red status led on/off
	SetRedLED(on bool) error
	// Blink Green status led with given duration between on/off
	BlinkGreenLED(delay time.Duration) error
	// Blink Red status led with given duration between on/off
	BlinkRedLED(delay time.Duration) error

	// Open the I2C bus
	I2CBus() (I2CBus, error)

	Close() error
}
