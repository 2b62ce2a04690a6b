// Copyright 2023 Ewout Prangsma
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
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/PVIDConfigurator/pkg/pmbus"
	"github.com/binkynet/PVIDConfigurator/pkg/pvid"
	"github.com/binkynet/PVIDConfigurator/pkg/report"
)

const (
	exitCommand = "e"
	blinkDelay  = time.Millisecond * 250
)

var (
	// errAborted is returned by prompts when the user closes the input.
	errAborted = errors.New("aborted")
)

// LineReader reads lines of user input.
// It is implemented by *readline.Instance.
type LineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
	Stdout() io.Writer
	Close() error
}

// StatusLEDs shows the progress of a session on the bridge.
type StatusLEDs interface {
	SetGreenLED(on bool) error
	SetRedLED(on bool) error
	BlinkGreenLED(delay time.Duration) error
}

// Config of a Session.
type Config struct {
	Catalog  pvid.Catalog
	Protocol pvid.Protocol
}

// Dependencies of a Session.
type Dependencies struct {
	Log      zerolog.Logger
	Reader   LineReader
	Link     pmbus.Link
	LEDs     StatusLEDs
	Reporter report.Reporter
	History  *History
}

// Session runs the interactive question & answer loop that configures
// PVID rails, one rail per iteration.
type Session struct {
	Config
	Dependencies
	out io.Writer
}

// NewReadline creates a LineReader on the terminal.
func NewReadline() (LineReader, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create readline")
	}
	return rl, nil
}

// NewSession creates a new session.
func NewSession(cfg Config, deps Dependencies) (*Session, error) {
	if deps.Reader == nil {
		return nil, errors.Wrap(pvid.ValidationError, "reader is required")
	}
	if deps.Link == nil {
		return nil, errors.Wrap(pvid.ValidationError, "link is required")
	}
	if err := cfg.Catalog.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Protocol.Validate(); err != nil {
		return nil, err
	}
	if deps.Reporter == nil {
		deps.Reporter = report.NewNopReporter()
	}
	if deps.History == nil {
		deps.History = &History{}
	}
	deps.Log = deps.Log.With().Str("component", "ui").Logger()
	return &Session{
		Config:       cfg,
		Dependencies: deps,
		out:          deps.Reader.Stdout(),
	}, nil
}

// Run the session until the user exits or the input is closed.
// The reader is owned by the caller.
// Invalid input is asked again. After a link failure the user can retry
// the channel or move on, so only reader failures are returned as error.
func (s *Session) Run(ctx context.Context) error {
	err := s.run(ctx)
	if errors.Cause(err) == errAborted {
		fmt.Fprintln(s.out, "Exiting...")
		return nil
	}
	return err
}

func (s *Session) run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		channel, err := s.askPVIDChannel()
		if err != nil {
			return err
		}
		if channel == exitCommand {
			return nil
		}
		for {
			err := s.configureOne(ctx, channel)
			if err == nil {
				break
			}
			if errors.Cause(err) == errAborted {
				return err
			}
			if ctx.Err() != nil {
				return nil
			}
			// Link failures end this channel only, the user decides what's next
			s.Log.Warn().Err(err).Str("channel", channel).Msg("PVID configuration failed")
			s.showFault()
			fmt.Fprintln(s.out)
			fmt.Fprintf(s.out, "Error: %s\n", err)
			retry, err := s.askYesNo(fmt.Sprintf("Would you like to retry PVID channel '%s'? (yes/no): ", channel))
			if err != nil {
				return err
			}
			if !retry {
				break
			}
		}
		fmt.Fprintln(s.out)
		another, err := s.askYesNo("Would you like to add another PVID channel? (yes/no): ")
		if err != nil {
			return err
		}
		if !another {
			return nil
		}
	}
}

// configureOne runs a single configuration of a PVID channel.
func (s *Session) configureOne(ctx context.Context, channel string) error {
	dev, err := s.askDevice()
	if err != nil {
		return err
	}
	rail, err := s.askRail(ctx, dev)
	if err != nil {
		return err
	}

	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, headerStyle.Render("Enter PVID Rail Settings:"))
	gpios, err := s.askGPIOs()
	if err != nil {
		return err
	}

	var rc pvid.RailConfig
	for {
		fmt.Fprintln(s.out)
		resolution, err := s.askResolution()
		if err != nil {
			return err
		}
		exponent, err := dev.ReadResolutionExponent(ctx)
		if err != nil {
			return err
		}
		rc = pvid.RailConfig{
			Channel:            channel,
			GPIOs:              gpios,
			Resolution:         resolution,
			ResolutionExponent: exponent,
		}
		if err := rc.Validate(s.Protocol); err != nil {
			fmt.Fprintf(s.out, "Invalid input. %s\n", err)
			continue
		}
		if _, err := s.Protocol.ConfigFrame(1, rc); pmbus.IsOutOfRange(err) {
			fmt.Fprintf(s.out, "Invalid input. Resolution %v cannot be encoded with exponent %d.\n", resolution, exponent)
			continue
		}
		break
	}

	fmt.Fprintln(s.out, railSummaryView(dev.Address(), rail, rc))
	s.setLEDs(func(l StatusLEDs) error { return l.BlinkGreenLED(blinkDelay) })
	if err := dev.ConfigureRail(ctx, rc); err != nil {
		return err
	}
	s.setLEDs(func(l StatusLEDs) error { return l.SetGreenLED(false) })

	fmt.Fprintln(s.out)
	enable, err := s.askYesNo("PVID is configured, do you want to enable it? (yes/no): ")
	if err != nil {
		return err
	}
	rc.Enable = enable
	result, err := dev.SetMode(ctx, channel, enable)
	if err != nil {
		return err
	}

	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, statusLegendView())
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, statusView(result))
	s.showResult(result)

	s.History.Add(dev.Address(), channel, result)
	if err := s.Reporter.ReportStatus(ctx, dev.Address(), channel, result); err != nil {
		s.Log.Warn().Err(err).Msg("Failed to report PVID status")
	}
	return nil
}

// askPVIDChannel asks for the PVID channel to configure, or the exit command.
func (s *Session) askPVIDChannel() (string, error) {
	prompt := fmt.Sprintf("Enter the PVID channel name (%s) or press '%s' to exit: ",
		strings.Join(s.Catalog.PVIDChannels, " or "), exitCommand)
	for {
		line, err := s.ask(prompt)
		if err != nil {
			return "", err
		}
		if line == exitCommand {
			return line, nil
		}
		if _, err := s.Catalog.PVIDChannel(line); err != nil {
			fmt.Fprintf(s.out, "PVID channel '%s' not found.\n", line)
			continue
		}
		return line, nil
	}
}

// askDevice asks for the address of the device and builds a Device for it.
func (s *Session) askDevice() (*pvid.Device, error) {
	for {
		line, err := s.ask(fmt.Sprintf("Enter device address (e.g. 0x%02X): ", s.Catalog.Addresses[0]))
		if err != nil {
			return nil, err
		}
		address, err := pvid.ParseAddress(line)
		if err != nil {
			fmt.Fprintf(s.out, "Invalid input. %s\n", err)
			continue
		}
		if !s.Catalog.HasAddress(address) {
			fmt.Fprintf(s.out, "Device 0x%02X is not in the list of devices (%s).\n", address, s.Catalog)
			continue
		}
		return pvid.NewDevice(address, s.Catalog, s.Protocol, pvid.Dependencies{
			Log:  s.Log,
			Link: s.Link,
		})
	}
}

// askRail asks for a rail name until a configured rail is selected.
func (s *Session) askRail(ctx context.Context, dev *pvid.Device) (string, error) {
	for {
		line, err := s.ask("Enter channel name (e.g. VH1, VP1): ")
		if err != nil {
			return "", err
		}
		if _, err := dev.SelectChannel(ctx, line); err != nil {
			switch {
			case pvid.IsUnknownChannel(err):
				fmt.Fprintln(s.out, "Channel name not found.")
				continue
			case pvid.IsChannelNotConfigured(err):
				fmt.Fprintln(s.out, "Channel is not set!")
				continue
			default:
				return "", err
			}
		}
		return line, nil
	}
}

// askGPIOs asks for the GPIO index of every bit of the voltage ID.
func (s *Session) askGPIOs() ([]uint8, error) {
	fmt.Fprintln(s.out, gpioLegendView(s.Protocol))
	gpios := make([]uint8, 0, s.Protocol.PinCount)
	for bit := 1; bit <= s.Protocol.PinCount; bit++ {
		prompt := fmt.Sprintf("Enter the index of %s bit's GPIO pin(0-%d): ", ordinal(bit), s.Protocol.MaxGPIOIndex)
		for {
			line, err := s.ask(prompt)
			if err != nil {
				return nil, err
			}
			gpio, err := pvid.ParseGPIOIndex(line, s.Protocol)
			if err != nil {
				if pmbus.IsOutOfRange(err) {
					fmt.Fprintf(s.out, "Invalid input. GPIO index must be between 0 and %d.\n", s.Protocol.MaxGPIOIndex)
				} else {
					fmt.Fprintf(s.out, "Invalid input. Please enter a valid number between 0 and %d.\n", s.Protocol.MaxGPIOIndex)
				}
				continue
			}
			gpios = append(gpios, gpio)
			break
		}
	}
	return gpios, nil
}

// askResolution asks for the resolution in V/LSB.
func (s *Session) askResolution() (float64, error) {
	prompt := fmt.Sprintf("Enter Resolution (e.g., %v): ", s.Protocol.MinResolution)
	for {
		line, err := s.ask(prompt)
		if err != nil {
			return 0, err
		}
		resolution, err := pvid.ParseResolution(line, s.Protocol)
		if err != nil {
			if pmbus.IsOutOfRange(err) {
				fmt.Fprintf(s.out, "Invalid input. Resolution must be greater than or equal to %v.\n", s.Protocol.MinResolution)
			} else {
				fmt.Fprintln(s.out, "Invalid input. Please enter a valid float number.")
			}
			continue
		}
		return resolution, nil
	}
}

// askYesNo asks a yes/no question until a valid answer is given.
func (s *Session) askYesNo(prompt string) (bool, error) {
	for {
		line, err := s.ask(prompt)
		if err != nil {
			return false, err
		}
		answer, err := pvid.ParseYesNo(line)
		if err != nil {
			fmt.Fprintln(s.out, "Please answer yes or no.")
			continue
		}
		return answer, nil
	}
}

// ask shows the given prompt and returns the trimmed answer.
// Returns errAborted when the input is closed or interrupted.
func (s *Session) ask(prompt string) (string, error) {
	s.Reader.SetPrompt(prompt)
	line, err := s.Reader.Readline()
	if err != nil {
		if err == readline.ErrInterrupt || err == io.EOF {
			return "", maskAny(errAborted)
		}
		return "", maskAny(err)
	}
	return strings.TrimSpace(line), nil
}

// showResult updates the LEDs for the given result.
func (s *Session) showResult(result pvid.StatusResult) {
	if result.Channel1.IsFault() || result.Channel2.IsFault() {
		s.showFault()
		return
	}
	s.setLEDs(func(l StatusLEDs) error { return l.SetRedLED(false) })
	s.setLEDs(func(l StatusLEDs) error { return l.SetGreenLED(true) })
}

func (s *Session) showFault() {
	s.setLEDs(func(l StatusLEDs) error { return l.SetGreenLED(false) })
	s.setLEDs(func(l StatusLEDs) error { return l.SetRedLED(true) })
}

func (s *Session) setLEDs(op func(StatusLEDs) error) {
	if s.LEDs == nil {
		return
	}
	if err := op(s.LEDs); err != nil {
		s.Log.Debug().Err(err).Msg("Failed to set status LED")
	}
}

var maskAny = errors.WithStack
