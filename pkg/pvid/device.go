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
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/PVIDConfigurator/pkg/pmbus"
)

// Device configures the PVID channels of a single sequencer.
// A Device is not safe for concurrent use; it owns the link for the
// duration of a configuration session.
type Device struct {
	log      zerolog.Logger
	link     pmbus.Link
	protocol Protocol
	catalog  Catalog
	address  uint8
}

// Dependencies of a Device.
type Dependencies struct {
	Log  zerolog.Logger
	Link pmbus.Link
}

// NewDevice creates a Device for the sequencer at given address.
// The address must be part of the given catalog.
func NewDevice(address uint8, catalog Catalog, protocol Protocol, deps Dependencies) (*Device, error) {
	if err := protocol.Validate(); err != nil {
		return nil, err
	}
	if !catalog.HasAddress(address) {
		return nil, errors.Wrapf(ValidationError, "device 0x%02X is not in the catalog", address)
	}
	if deps.Link == nil {
		return nil, errors.Wrap(ValidationError, "link is required")
	}
	return &Device{
		log:      deps.Log.With().Str("component", "pvid").Str("address", fmt.Sprintf("0x%02X", address)).Logger(),
		link:     deps.Link,
		protocol: protocol,
		catalog:  catalog,
		address:  address,
	}, nil
}

// Address returns the PMBus address of the device.
func (d *Device) Address() uint8 {
	return d.address
}

// Protocol returns the protocol used by the device.
func (d *Device) Protocol() Protocol {
	return d.protocol
}

// SelectChannel selects the page of the rail with given name and verifies
// that the rail is configured (VOUT_MODE not zero).
// Returns UnknownChannelError for an unknown name and ChannelNotConfiguredError
// for an unconfigured rail; both are recoverable by asking for another rail.
func (d *Device) SelectChannel(ctx context.Context, railName string) (uint8, error) {
	page, err := d.catalog.PageIndex(railName)
	if err != nil {
		return 0, err
	}
	if err := d.link.SelectPage(ctx, d.address, page); err != nil {
		return 0, err
	}
	mode, err := d.readVoutMode(ctx)
	if err != nil {
		return 0, err
	}
	if mode == 0 {
		return 0, errors.Wrapf(ChannelNotConfiguredError, "rail '%s' (page %d) is not set", railName, page)
	}
	d.log.Debug().Str("rail", railName).Uint8("page", page).Uint8("vout_mode", mode).Msg("Selected channel")
	return page, nil
}

// ReadResolutionExponent reads the resolution exponent from VOUT_MODE
// of the currently selected page.
func (d *Device) ReadResolutionExponent(ctx context.Context) (int, error) {
	mode, err := d.readVoutMode(ctx)
	if err != nil {
		return 0, err
	}
	raw, err := pmbus.EncodeTwosComplement(pmbus.DecodeTwosComplement(mode, d.protocol.ExponentWidth), d.protocol.ExponentWidth)
	if err != nil {
		return 0, err
	}
	return pmbus.DecodeTwosComplement(raw, d.protocol.ExponentWidth), nil
}

func (d *Device) readVoutMode(ctx context.Context) (uint8, error) {
	data, err := d.link.ReadRegister(ctx, d.address, pmbus.CmdVoutMode, 1)
	if err != nil {
		return 0, err
	}
	if len(data) < 1 {
		return 0, errors.Wrap(pmbus.MalformedResponseError, "empty VOUT_MODE response")
	}
	return data[0], nil
}

// ConfigureRail disables all PVID channels of the device, then writes
// the configuration of the given rail in a single frame.
// Transport errors are returned unchanged; nothing is retried.
func (d *Device) ConfigureRail(ctx context.Context, rc RailConfig) error {
	channel, err := d.catalog.PVIDChannel(rc.Channel)
	if err != nil {
		return err
	}
	frame, err := d.protocol.ConfigFrame(channel, rc)
	if err != nil {
		return err
	}
	log := d.log.With().Str("pvid_channel", rc.Channel).Logger()

	// Disable all channels; the device needs to settle after each
	for ch := 1; ch <= d.protocol.ChannelCount; ch++ {
		if err := d.link.WriteRegister(ctx, d.address, d.protocol.DisableFrame(uint8(ch))); err != nil {
			framesErrorsTotal.WithLabelValues(frameDisable).Inc()
			return err
		}
		framesTotal.WithLabelValues(frameDisable).Inc()
		d.link.SettleDelay(d.protocol.SettleDelay)
	}

	// Write configuration
	if err := d.link.WriteRegister(ctx, d.address, frame); err != nil {
		framesErrorsTotal.WithLabelValues(frameConfig).Inc()
		return err
	}
	framesTotal.WithLabelValues(frameConfig).Inc()
	log.Info().
		Ints("gpios", gpiosAsInts(rc.GPIOs)).
		Float64("resolution", rc.Resolution).
		Int("exponent", rc.ResolutionExponent).
		Msg("Configured PVID rail")
	return nil
}

// ModeCommand sends the mode command for the PVID channel with given name
// and returns the raw response.
func (d *Device) ModeCommand(ctx context.Context, channelName string, enable bool) ([]byte, error) {
	channel, err := d.catalog.PVIDChannel(channelName)
	if err != nil {
		return nil, err
	}
	if err := d.link.WriteRegister(ctx, d.address, d.protocol.ModeFrame(channel, enable)); err != nil {
		framesErrorsTotal.WithLabelValues(frameMode).Inc()
		return nil, err
	}
	framesTotal.WithLabelValues(frameMode).Inc()
	response, err := d.link.ReadRegister(ctx, d.address, d.protocol.ModeOpcode, d.protocol.ModeResponseLength)
	if err != nil {
		return nil, err
	}
	return response, nil
}

// SetMode enables or disables the PVID channel with given name and
// returns the resulting status of both channels.
// A channel that cannot be enabled is reported through its status,
// not through an error.
func (d *Device) SetMode(ctx context.Context, channelName string, enable bool) (StatusResult, error) {
	response, err := d.ModeCommand(ctx, channelName, enable)
	if err != nil {
		return StatusResult{}, err
	}
	result, err := d.protocol.DecodeStatus(response)
	if err != nil {
		return StatusResult{}, err
	}
	addr := fmt.Sprintf("0x%02X", d.address)
	statusGauge.WithLabelValues(addr, "1").Set(float64(result.Channel1))
	statusGauge.WithLabelValues(addr, "2").Set(float64(result.Channel2))
	d.log.Info().
		Str("pvid_channel", channelName).
		Bool("enable", enable).
		Str("channel1", result.Channel1.String()).
		Str("channel2", result.Channel2.String()).
		Msg("PVID mode set")
	return result, nil
}

func gpiosAsInts(gpios []uint8) []int {
	result := make([]int, len(gpios))
	for i, g := range gpios {
		result[i] = int(g)
	}
	return result
}
