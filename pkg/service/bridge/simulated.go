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
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Commands understood by the simulated sequencer.
const (
	simCmdPage       = 0x00
	simCmdVoutMode   = 0x20
	simCmdPVIDConfig = 0xF2
	simCmdPVIDMode   = 0xF3

	simPVIDChannels = 2
	simPVIDPinCount = 4
	simMaxGPIOIndex = 8
	simPageCount    = 17
)

// PVID channel states reported by the simulated sequencer.
const (
	simStatusDisabled uint8 = iota
	simStatusConfigurationFault
	simStatusDanglingConfiguration
	simStatusReady
	simStatusEnabled
)

// SimulatedDevice describes a sequencer served by the simulated bridge.
type SimulatedDevice struct {
	// PMBus address of the device
	Address uint8
	// VOUT_MODE value per page.
	// Pages without an entry read 0 (rail not configured).
	VoutModes map[uint8]uint8
}

// DefaultSimulatedDevice returns a sequencer with VH1-VH4 (pages 0-3)
// using exponent -12 and VP1-VP9 (pages 4-12) using exponent -10.
// VP10-VP13 are left unconfigured.
func DefaultSimulatedDevice(address uint8) SimulatedDevice {
	modes := make(map[uint8]uint8)
	for page := uint8(0); page < 4; page++ {
		modes[page] = 0x14
	}
	for page := uint8(4); page < 13; page++ {
		modes[page] = 0x16
	}
	return SimulatedDevice{
		Address:   address,
		VoutModes: modes,
	}
}

// SimulatedBridge implements the bridge with an in-memory set of
// simulated power sequencers.
type SimulatedBridge struct {
	mutex    sync.Mutex
	devices  map[uint8]*simulatedSequencer
	greenLed SimulatedLED
	redLed   SimulatedLED
}

// SimulatedLED is the state of a simulated status led.
type SimulatedLED struct {
	On       bool
	Blinking bool
}

var (
	_ API    = &SimulatedBridge{}
	_ I2CBus = &SimulatedBridge{}
)

// NewSimulatedBridge implements the bridge for the given simulated devices.
func NewSimulatedBridge(devices ...SimulatedDevice) *SimulatedBridge {
	b := &SimulatedBridge{
		devices: make(map[uint8]*simulatedSequencer),
	}
	for _, d := range devices {
		modes := make(map[uint8]uint8, len(d.VoutModes))
		for page, mode := range d.VoutModes {
			modes[page] = mode
		}
		b.devices[d.Address] = &simulatedSequencer{
			address:   d.Address,
			voutModes: modes,
			pending:   -1,
		}
	}
	return b
}

// Turn Green status led on/off
func (b *SimulatedBridge) SetGreenLED(on bool) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.greenLed = SimulatedLED{On: on}
	return nil
}

// Turn Red status led on/off
func (b *SimulatedBridge) SetRedLED(on bool) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.redLed = SimulatedLED{On: on}
	return nil
}

// Blink Green status led with given duration between on/off
func (b *SimulatedBridge) BlinkGreenLED(delay time.Duration) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.greenLed = SimulatedLED{Blinking: true}
	return nil
}

// Blink Red status led with given duration between on/off
func (b *SimulatedBridge) BlinkRedLED(delay time.Duration) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.redLed = SimulatedLED{Blinking: true}
	return nil
}

// LEDs returns the current state of the green & red status leds.
func (b *SimulatedBridge) LEDs() (green, red SimulatedLED) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.greenLed, b.redLed
}

// Open the I2C bus
func (b *SimulatedBridge) I2CBus() (I2CBus, error) {
	return b, nil
}

func (b *SimulatedBridge) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.greenLed = SimulatedLED{}
	b.redLed = SimulatedLED{}
	return nil
}

// Execute an option on the bus.
func (b *SimulatedBridge) Execute(ctx context.Context, address uint8, op func(ctx context.Context, dev I2CDevice) error) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	dev, found := b.devices[address]
	if !found {
		return fmt.Errorf("device 0x%0x not found", address)
	}
	return op(ctx, dev)
}

// DetectSlaveAddresses scans the bus to detect available addresses.
func (b *SimulatedBridge) DetectSlaveAddresses() []byte {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	result := make([]byte, 0, len(b.devices))
	for addr := range b.devices {
		result = append(result, addr)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// PVIDStatus returns the current state code of the given PVID channel (1...)
// of the device at given address.
func (b *SimulatedBridge) PVIDStatus(address uint8, channel uint8) (uint8, bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	dev, found := b.devices[address]
	if !found || channel < 1 || channel > simPVIDChannels {
		return 0, false
	}
	return dev.pvid[channel-1], true
}

// Frames returns a copy of all block frames written to the device at given address.
func (b *SimulatedBridge) Frames(address uint8) [][]byte {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	dev, found := b.devices[address]
	if !found {
		return nil
	}
	result := make([][]byte, 0, len(dev.frames))
	for _, f := range dev.frames {
		result = append(result, append([]byte(nil), f...))
	}
	return result
}

type simulatedSequencer struct {
	address   uint8
	page      uint8
	voutModes map[uint8]uint8
	pvid      [simPVIDChannels]uint8
	pending   int // Command selected for the next ReadDevice, -1 if none
	frames    [][]byte
}

// Read a byte from given register
func (s *simulatedSequencer) ReadByteReg(reg uint8) (uint8, error) {
	switch reg {
	case simCmdPage:
		return s.page, nil
	case simCmdVoutMode:
		return s.voutModes[s.page], nil
	default:
		return 0, fmt.Errorf("read of unsupported register 0x%0x", reg)
	}
}

// Write a byte to given register
func (s *simulatedSequencer) WriteByteReg(reg uint8, val uint8) error {
	switch reg {
	case simCmdPage:
		if val >= simPageCount && val != 0xFF {
			return fmt.Errorf("page %d out of range", val)
		}
		s.page = val
		return nil
	default:
		return fmt.Errorf("write of unsupported register 0x%0x", reg)
	}
}

// Read a block of data directly from the device
func (s *simulatedSequencer) ReadDevice(data []byte) error {
	var response []byte
	switch s.pending {
	case simCmdVoutMode:
		response = []byte{s.voutModes[s.page]}
	case simCmdPVIDMode:
		response = []byte{simPVIDChannels, s.pvid[0], s.pvid[1]}
	case simCmdPage:
		response = []byte{s.page}
	default:
		return fmt.Errorf("no readable command selected")
	}
	s.pending = -1
	copy(data, response)
	return nil
}

// Write a block of data directly to the device
func (s *simulatedSequencer) WriteDevice(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty write")
	}
	if len(data) == 1 {
		// Command selection for a subsequent read
		s.pending = int(data[0])
		return nil
	}
	s.frames = append(s.frames, append([]byte(nil), data...))
	switch data[0] {
	case simCmdPage:
		simulatedFramesTotal.WithLabelValues("page").Inc()
		return s.WriteByteReg(simCmdPage, data[1])
	case simCmdPVIDMode:
		simulatedFramesTotal.WithLabelValues("pvid_mode").Inc()
		return s.handleMode(data)
	case simCmdPVIDConfig:
		simulatedFramesTotal.WithLabelValues("pvid_config").Inc()
		return s.handleConfig(data)
	default:
		simulatedFramesTotal.WithLabelValues("unsupported").Inc()
		return fmt.Errorf("unsupported command 0x%0x", data[0])
	}
}

// handleMode applies a [cmd, count, channel, enable] frame.
// Enabling only succeeds on a channel that is ready; any other state is
// left as is and reported through the status response.
func (s *simulatedSequencer) handleMode(data []byte) error {
	if len(data) != 4 || data[1] != 2 {
		return fmt.Errorf("malformed mode frame")
	}
	channel := data[2]
	if channel < 1 || channel > simPVIDChannels {
		return fmt.Errorf("invalid PVID channel %d", channel)
	}
	idx := channel - 1
	if data[3] != 0 {
		if s.pvid[idx] == simStatusReady {
			s.pvid[idx] = simStatusEnabled
		}
	} else if s.pvid[idx] == simStatusEnabled {
		s.pvid[idx] = simStatusReady
	}
	s.pending = simCmdPVIDMode
	return nil
}

// handleConfig applies a [cmd, count, channel, pins, gpio..., exp, mLSB, mMSB] frame.
func (s *simulatedSequencer) handleConfig(data []byte) error {
	if len(data) < 3 {
		return fmt.Errorf("malformed config frame")
	}
	channel := data[2]
	if channel < 1 || channel > simPVIDChannels {
		return fmt.Errorf("invalid PVID channel %d", channel)
	}
	idx := channel - 1
	count := int(data[1])
	if len(data)-2 < count || len(data) < 4 {
		s.pvid[idx] = simStatusDanglingConfiguration
		return nil
	}
	pins := int(data[3])
	if pins != simPVIDPinCount || count != 2+pins+3 {
		s.pvid[idx] = simStatusConfigurationFault
		return nil
	}
	seen := make(map[uint8]bool)
	for _, gpio := range data[4 : 4+pins] {
		if gpio > simMaxGPIOIndex || seen[gpio] {
			s.pvid[idx] = simStatusConfigurationFault
			return nil
		}
		seen[gpio] = true
	}
	tail := data[4+pins:]
	exponent := tail[0] & 0x1F
	mantissa := uint16(tail[1]) | uint16(tail[2])<<8
	if mantissa == 0 || exponent != s.voutModes[s.page]&0x1F {
		s.pvid[idx] = simStatusConfigurationFault
		return nil
	}
	s.pvid[idx] = simStatusReady
	return nil
}
