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

package ui

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/PVIDConfigurator/pkg/pmbus"
	"github.com/binkynet/PVIDConfigurator/pkg/pvid"
	"github.com/binkynet/PVIDConfigurator/pkg/service/bridge"
)

// scriptedReader answers prompts with a fixed list of lines.
type scriptedReader struct {
	lines   []string
	prompts []string
	out     bytes.Buffer
	closed  bool
}

func (r *scriptedReader) Readline() (string, error) {
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func (r *scriptedReader) SetPrompt(prompt string) { r.prompts = append(r.prompts, prompt) }
func (r *scriptedReader) Stdout() io.Writer       { return &r.out }
func (r *scriptedReader) Close() error {
	r.closed = true
	return nil
}

type recordingReporter struct {
	reports []pvid.StatusResult
}

func (r *recordingReporter) ReportStatus(ctx context.Context, address uint8, channel string, result pvid.StatusResult) error {
	r.reports = append(r.reports, result)
	return nil
}

func (r *recordingReporter) Close() error { return nil }

type sessionFixture struct {
	session  *Session
	reader   *scriptedReader
	sim      *bridge.SimulatedBridge
	reporter *recordingReporter
	history  *History
}

func newSessionFixture(t *testing.T, lines ...string) sessionFixture {
	sim := bridge.NewSimulatedBridge(bridge.DefaultSimulatedDevice(0x40))
	reader := &scriptedReader{lines: lines}
	reporter := &recordingReporter{}
	history := &History{}
	protocol := pvid.ADM1266
	protocol.SettleDelay = 0
	session, err := NewSession(Config{
		Catalog:  pvid.DefaultCatalog(),
		Protocol: protocol,
	}, Dependencies{
		Log:      zerolog.Nop(),
		Reader:   reader,
		Link:     pmbus.NewLink(sim, zerolog.Nop()),
		LEDs:     sim,
		Reporter: reporter,
		History:  history,
	})
	require.NoError(t, err)
	return sessionFixture{
		session:  session,
		reader:   reader,
		sim:      sim,
		reporter: reporter,
		history:  history,
	}
}

func TestSessionConfiguresAndEnablesRail(t *testing.T) {
	f := newSessionFixture(t,
		"1",                // PVID channel
		"0x40",             // device
		"VP1",              // rail
		"0", "1", "2", "3", // GPIOs
		"0.001",            // resolution
		"yes",              // enable
		"no",               // another
	)
	require.NoError(t, f.session.Run(context.Background()))

	status, ok := f.sim.PVIDStatus(0x40, 1)
	require.True(t, ok)
	assert.Equal(t, uint8(pvid.StatusEnabled), status)

	frames := f.sim.Frames(0x40)
	require.Len(t, frames, 4)
	assert.Equal(t, []byte{0xF3, 2, 1, 0}, frames[0])
	assert.Equal(t, []byte{0xF3, 2, 2, 0}, frames[1])
	assert.Equal(t, []byte{0xF2, 9, 1, 4, 0, 1, 2, 3, 0x16, 1, 0}, frames[2])
	assert.Equal(t, []byte{0xF3, 2, 1, 1}, frames[3])

	require.Len(t, f.reporter.reports, 1)
	assert.Equal(t, pvid.StatusResult{Channel1: pvid.StatusEnabled, Channel2: pvid.StatusDisabled}, f.reporter.reports[0])
	history := f.history.StatusHistory()
	require.Len(t, history, 1)
	assert.Equal(t, "0x40", history[0].Address)
	assert.Equal(t, "Enabled", history[0].Channel1Name)

	green, red := f.sim.LEDs()
	assert.Equal(t, bridge.SimulatedLED{On: true}, green)
	assert.Equal(t, bridge.SimulatedLED{}, red)

	out := f.reader.out.String()
	assert.Contains(t, out, "PVID status of Channel 1")
	assert.Contains(t, out, "4 (Enabled)")
	assert.Contains(t, out, "8: GPIO9")
}

func TestSessionRepromptsOnInvalidInput(t *testing.T) {
	f := newSessionFixture(t,
		"3", "2",                     // unknown PVID channel, then valid
		"0x41", "zz", "40",           // unknown device, garbage, then bare hex
		"VX1", "VP13", "VH1",         // unknown rail, unconfigured rail, then valid
		"9", "a", "4", "5", "6", "7", // GPIOs with two invalid entries
		"0.0001", "abc", "0.001",     // resolution
		"maybe", "no",                // enable
		"no",
	)
	require.NoError(t, f.session.Run(context.Background()))

	out := f.reader.out.String()
	assert.Contains(t, out, "PVID channel '3' not found.")
	assert.Contains(t, out, "Device 0x41 is not in the list of devices")
	assert.Contains(t, out, "Channel name not found.")
	assert.Contains(t, out, "Channel is not set!")
	assert.Contains(t, out, "GPIO index must be between 0 and 8.")
	assert.Contains(t, out, "Please enter a valid number between 0 and 8.")
	assert.Contains(t, out, "Resolution must be greater than or equal to 0.001.")
	assert.Contains(t, out, "Please enter a valid float number.")
	assert.Contains(t, out, "Please answer yes or no.")

	status, ok := f.sim.PVIDStatus(0x40, 2)
	require.True(t, ok)
	assert.Equal(t, uint8(pvid.StatusReady), status)
	frames := f.sim.Frames(0x40)
	require.Len(t, frames, 4)
	// VH1 uses exponent -12: 0.001 * 4096 = 4.096
	assert.Equal(t, []byte{0xF2, 9, 2, 4, 4, 5, 6, 7, 0x14, 4, 0}, frames[2])
}

func TestSessionExitImmediately(t *testing.T) {
	f := newSessionFixture(t, "e")
	require.NoError(t, f.session.Run(context.Background()))
	assert.Empty(t, f.sim.Frames(0x40))
	assert.Len(t, f.reader.prompts, 1)
	assert.False(t, f.reader.closed)
}

func TestSessionEndOfInput(t *testing.T) {
	f := newSessionFixture(t, "1", "0x40")
	require.NoError(t, f.session.Run(context.Background()))
	assert.Contains(t, f.reader.out.String(), "Exiting...")
	assert.Empty(t, f.sim.Frames(0x40))
}

func TestSessionAddAnother(t *testing.T) {
	f := newSessionFixture(t,
		"1", "0x40", "VP2", "0", "1", "2", "3", "0.001", "no", "yes",
		"2", "0x40", "VP3", "4", "5", "6", "7", "0.002", "yes", "no",
	)
	require.NoError(t, f.session.Run(context.Background()))
	require.Len(t, f.reporter.reports, 2)
	assert.Equal(t, pvid.StatusResult{Channel1: pvid.StatusReady, Channel2: pvid.StatusDisabled}, f.reporter.reports[0])
	// Configuring channel 2 disables channel 1 which stays ready
	assert.Equal(t, pvid.StatusResult{Channel1: pvid.StatusReady, Channel2: pvid.StatusEnabled}, f.reporter.reports[1])
}

func TestSessionUnencodableResolution(t *testing.T) {
	f := newSessionFixture(t,
		"1", "0x40", "VP1", "0", "1", "2", "3",
		"100", // does not fit the mantissa at exponent -10
		"0.001",
		"yes", "no",
	)
	require.NoError(t, f.session.Run(context.Background()))
	assert.Contains(t, f.reader.out.String(), "cannot be encoded with exponent -10")
	assert.Len(t, f.reporter.reports, 1)
}

// flakyLink fails the first SelectPage calls, then passes everything on.
type flakyLink struct {
	pmbus.Link
	failures int
}

func (l *flakyLink) SelectPage(ctx context.Context, address uint8, page uint8) error {
	if l.failures > 0 {
		l.failures--
		return errors.Wrap(pmbus.TransportError, "glitch")
	}
	return l.Link.SelectPage(ctx, address, page)
}

func TestSessionRetriesAfterTransportError(t *testing.T) {
	f := newSessionFixture(t,
		"1",                // PVID channel
		"0x40",             // device
		"VP1",              // rail, select page fails
		"yes",              // retry
		"0x40",             // device
		"VP1",              // rail
		"0", "1", "2", "3", // GPIOs
		"0.001",            // resolution
		"yes",              // enable
		"no",               // another
	)
	f.session.Link = &flakyLink{Link: f.session.Link, failures: 1}
	require.NoError(t, f.session.Run(context.Background()))

	assert.Empty(t, f.reader.lines)
	assert.Contains(t, f.reader.prompts, "Would you like to retry PVID channel '1'? (yes/no): ")
	assert.Contains(t, f.reader.out.String(), "Error: glitch: transport failure")

	status, ok := f.sim.PVIDStatus(0x40, 1)
	require.True(t, ok)
	assert.Equal(t, uint8(pvid.StatusEnabled), status)
	require.Len(t, f.reporter.reports, 1)

	green, red := f.sim.LEDs()
	assert.Equal(t, bridge.SimulatedLED{On: true}, green)
	assert.Equal(t, bridge.SimulatedLED{}, red)
}

func TestSessionSkipsChannelAfterTransportError(t *testing.T) {
	f := newSessionFixture(t,
		"1",    // PVID channel
		"0x40", // device
		"VP1",  // rail, select page fails
		"no",   // retry
		"no",   // another
	)
	f.session.Link = &flakyLink{Link: f.session.Link, failures: 1}
	require.NoError(t, f.session.Run(context.Background()))

	assert.Empty(t, f.reader.lines)
	assert.Empty(t, f.sim.Frames(0x40))
	assert.Empty(t, f.reporter.reports)

	_, red := f.sim.LEDs()
	assert.Equal(t, bridge.SimulatedLED{On: true}, red)
}

func TestNewSessionValidation(t *testing.T) {
	_, err := NewSession(Config{Catalog: pvid.DefaultCatalog(), Protocol: pvid.ADM1266}, Dependencies{})
	assert.True(t, pvid.IsValidation(err))
}
