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
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/PVIDConfigurator/pkg/pmbus"
	"github.com/binkynet/PVIDConfigurator/pkg/service/bridge"
)

// recordingLink is a pmbus.Link that records all exchanges.
type recordingLink struct {
	events   []string
	voutMode map[uint8]uint8
	page     uint8
	response []byte
	writeErr error
	readErr  error
	delays   []time.Duration
}

func newRecordingLink() *recordingLink {
	return &recordingLink{voutMode: map[uint8]uint8{}}
}

func (l *recordingLink) WriteRegister(ctx context.Context, address uint8, payload []byte) error {
	l.events = append(l.events, fmt.Sprintf("write %x", payload))
	return l.writeErr
}

func (l *recordingLink) ReadRegister(ctx context.Context, address uint8, command uint8, length int) ([]byte, error) {
	l.events = append(l.events, fmt.Sprintf("read %02x/%d", command, length))
	if l.readErr != nil {
		return nil, l.readErr
	}
	if command == pmbus.CmdVoutMode {
		return []byte{l.voutMode[l.page]}, nil
	}
	return l.response, nil
}

func (l *recordingLink) SelectPage(ctx context.Context, address uint8, page uint8) error {
	l.events = append(l.events, fmt.Sprintf("page %d", page))
	l.page = page
	return nil
}

func (l *recordingLink) SettleDelay(d time.Duration) {
	l.events = append(l.events, "settle")
	l.delays = append(l.delays, d)
}

func (l *recordingLink) DevicePresent(ctx context.Context, addresses []uint8) error {
	return nil
}

func newTestDevice(t *testing.T, link pmbus.Link) *Device {
	dev, err := NewDevice(0x40, DefaultCatalog(), ADM1266, Dependencies{
		Log:  zerolog.Nop(),
		Link: link,
	})
	require.NoError(t, err)
	return dev
}

func TestNewDeviceValidation(t *testing.T) {
	_, err := NewDevice(0x42, DefaultCatalog(), ADM1266, Dependencies{Link: newRecordingLink()})
	assert.True(t, IsValidation(err))

	_, err = NewDevice(0x40, DefaultCatalog(), ADM1266, Dependencies{})
	assert.True(t, IsValidation(err))

	p := ADM1266
	p.PinCount = 0
	_, err = NewDevice(0x40, DefaultCatalog(), p, Dependencies{Link: newRecordingLink()})
	assert.True(t, IsValidation(err))
}

func TestSelectChannel(t *testing.T) {
	ctx := context.Background()
	link := newRecordingLink()
	link.voutMode[4] = 0x16
	dev := newTestDevice(t, link)

	page, err := dev.SelectChannel(ctx, "VP1")
	require.NoError(t, err)
	assert.Equal(t, uint8(4), page)
	assert.Equal(t, []string{"page 4", "read 20/1"}, link.events)
}

func TestSelectChannelNotConfigured(t *testing.T) {
	ctx := context.Background()
	dev := newTestDevice(t, newRecordingLink())

	_, err := dev.SelectChannel(ctx, "VH2")
	require.Error(t, err)
	assert.True(t, IsChannelNotConfigured(err))
	assert.False(t, pmbus.IsTransport(err))
}

func TestSelectChannelUnknown(t *testing.T) {
	ctx := context.Background()
	link := newRecordingLink()
	dev := newTestDevice(t, link)

	_, err := dev.SelectChannel(ctx, "VX9")
	require.Error(t, err)
	assert.True(t, IsUnknownChannel(err))
	assert.Empty(t, link.events)
}

func TestSelectChannelTransportError(t *testing.T) {
	ctx := context.Background()
	link := newRecordingLink()
	link.readErr = errors.Wrap(pmbus.TransportError, "bus stuck")
	dev := newTestDevice(t, link)

	_, err := dev.SelectChannel(ctx, "VH1")
	require.Error(t, err)
	assert.True(t, pmbus.IsTransport(err))
	assert.False(t, IsChannelNotConfigured(err))
}

func TestReadResolutionExponent(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		mode uint8
		want int
	}{
		{mode: 0x16, want: -10},
		{mode: 0x14, want: -12},
		{mode: 0x10, want: -16},
		{mode: 0x0F, want: 15},
		{mode: 0x36, want: -10},
	}
	for _, tt := range tests {
		link := newRecordingLink()
		link.voutMode[0] = tt.mode
		dev := newTestDevice(t, link)
		exp, err := dev.ReadResolutionExponent(ctx)
		require.NoError(t, err)
		assert.Equal(t, tt.want, exp, "mode 0x%02x", tt.mode)
	}
}

func TestConfigureRailDisablesBothChannelsFirst(t *testing.T) {
	ctx := context.Background()
	link := newRecordingLink()
	dev := newTestDevice(t, link)

	err := dev.ConfigureRail(ctx, RailConfig{
		Channel:            "2",
		GPIOs:              []uint8{0, 1, 2, 3},
		Resolution:         0.001,
		ResolutionExponent: -10,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"write f3020100",
		"settle",
		"write f3020200",
		"settle",
		"write f20902040001020316" + "0100",
	}, link.events)
	assert.Equal(t, []time.Duration{600 * time.Millisecond, 600 * time.Millisecond}, link.delays)
}

func TestConfigureRailInvalidWritesNothing(t *testing.T) {
	ctx := context.Background()
	link := newRecordingLink()
	dev := newTestDevice(t, link)

	err := dev.ConfigureRail(ctx, RailConfig{
		Channel:            "1",
		GPIOs:              []uint8{0, 1, 2},
		Resolution:         0.001,
		ResolutionExponent: -10,
	})
	require.Error(t, err)
	assert.True(t, pmbus.IsOutOfRange(err))
	assert.Empty(t, link.events)

	err = dev.ConfigureRail(ctx, RailConfig{Channel: "3"})
	assert.True(t, IsUnknownChannel(err))
	assert.Empty(t, link.events)
}

func TestConfigureRailTransportErrorUnchanged(t *testing.T) {
	ctx := context.Background()
	link := newRecordingLink()
	link.writeErr = errors.Wrap(pmbus.TransportError, "nack")
	dev := newTestDevice(t, link)

	err := dev.ConfigureRail(ctx, RailConfig{
		Channel:            "1",
		GPIOs:              []uint8{0, 1, 2, 3},
		Resolution:         0.001,
		ResolutionExponent: -10,
	})
	require.Error(t, err)
	assert.Equal(t, link.writeErr, err)
	// No retry
	assert.Equal(t, []string{"write f3020100"}, link.events)
}

func TestSetMode(t *testing.T) {
	ctx := context.Background()
	link := newRecordingLink()
	link.response = []byte{0xF3, 3, 4}
	dev := newTestDevice(t, link)

	result, err := dev.SetMode(ctx, "2", true)
	require.NoError(t, err)
	assert.Equal(t, StatusResult{Channel1: StatusReady, Channel2: StatusEnabled}, result)
	assert.Equal(t, []string{"write f3020201", "read f3/3"}, link.events)
}

func TestSetModeMalformedResponse(t *testing.T) {
	ctx := context.Background()
	link := newRecordingLink()
	link.response = []byte{0xF3, 3}
	dev := newTestDevice(t, link)

	_, err := dev.SetMode(ctx, "1", true)
	require.Error(t, err)
	assert.True(t, pmbus.IsMalformedResponse(err))
}

// newSimulatedDevice returns a device on a simulated sequencer without settle delays.
func newSimulatedDevice(t *testing.T) (*Device, *bridge.SimulatedBridge) {
	sim := bridge.NewSimulatedBridge(bridge.DefaultSimulatedDevice(0x40))
	p := ADM1266
	p.SettleDelay = 0
	dev, err := NewDevice(0x40, DefaultCatalog(), p, Dependencies{
		Log:  zerolog.Nop(),
		Link: pmbus.NewLink(sim, zerolog.Nop()),
	})
	require.NoError(t, err)
	return dev, sim
}

func TestSimulatedSession(t *testing.T) {
	ctx := context.Background()
	dev, sim := newSimulatedDevice(t)

	_, err := dev.SelectChannel(ctx, "VP1")
	require.NoError(t, err)
	exp, err := dev.ReadResolutionExponent(ctx)
	require.NoError(t, err)
	assert.Equal(t, -10, exp)

	require.NoError(t, dev.ConfigureRail(ctx, RailConfig{
		Channel:            "1",
		GPIOs:              []uint8{0, 1, 2, 3},
		Resolution:         0.001,
		ResolutionExponent: exp,
	}))
	status, ok := sim.PVIDStatus(0x40, 1)
	require.True(t, ok)
	assert.Equal(t, uint8(StatusReady), status)

	result, err := dev.SetMode(ctx, "1", true)
	require.NoError(t, err)
	assert.Equal(t, StatusEnabled, result.Channel1)
	assert.Equal(t, StatusDisabled, result.Channel2)

	// Reconfiguring disables the enabled channel first
	require.NoError(t, dev.ConfigureRail(ctx, RailConfig{
		Channel:            "2",
		GPIOs:              []uint8{4, 5, 6, 7},
		Resolution:         0.002,
		ResolutionExponent: exp,
	}))
	result, err = dev.SetMode(ctx, "2", false)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, result.Channel1)
	assert.Equal(t, StatusReady, result.Channel2)
}

func TestSimulatedEnableUnconfiguredChannel(t *testing.T) {
	ctx := context.Background()
	dev, _ := newSimulatedDevice(t)

	result, err := dev.SetMode(ctx, "2", true)
	require.NoError(t, err)
	assert.Equal(t, StatusDisabled, result.Channel2)
}

func TestSimulatedConfigurationFault(t *testing.T) {
	ctx := context.Background()
	dev, _ := newSimulatedDevice(t)

	_, err := dev.SelectChannel(ctx, "VH1")
	require.NoError(t, err)
	// Duplicate GPIO assignment is rejected by the device
	require.NoError(t, dev.ConfigureRail(ctx, RailConfig{
		Channel:            "1",
		GPIOs:              []uint8{0, 0, 2, 3},
		Resolution:         0.001,
		ResolutionExponent: -12,
	}))
	result, err := dev.SetMode(ctx, "1", true)
	require.NoError(t, err)
	assert.Equal(t, StatusConfigurationFault, result.Channel1)
	assert.True(t, result.Channel1.IsFault())
}

func TestSimulatedChannelNotConfigured(t *testing.T) {
	ctx := context.Background()
	dev, _ := newSimulatedDevice(t)

	_, err := dev.SelectChannel(ctx, "VP13")
	require.Error(t, err)
	assert.True(t, IsChannelNotConfigured(err))
}
