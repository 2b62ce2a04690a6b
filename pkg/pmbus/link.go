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

package pmbus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/PVIDConfigurator/pkg/service/bridge"
)

// Standard PMBus commands
const (
	CmdPage     = 0x00
	CmdVoutMode = 0x20
)

// Link gives register level access to devices on a PMBus segment.
// Every call is a single blocking exchange; calls must not be made
// concurrently.
type Link interface {
	// WriteRegister writes the given payload (command byte first) to the
	// device at given address in a single transaction.
	WriteRegister(ctx context.Context, address uint8, payload []byte) error
	// ReadRegister selects the given command and reads length bytes from
	// the device at given address.
	ReadRegister(ctx context.Context, address uint8, command uint8, length int) ([]byte, error)
	// SelectPage sets the active page of the device at given address.
	SelectPage(ctx context.Context, address uint8, page uint8) error
	// SettleDelay blocks for the given duration.
	SettleDelay(d time.Duration)
	// DevicePresent checks that all given addresses respond.
	DevicePresent(ctx context.Context, addresses []uint8) error
}

type busLink struct {
	log zerolog.Logger
	bus bridge.I2CBus
}

// NewLink returns a Link that performs its exchanges on the given bus.
func NewLink(bus bridge.I2CBus, log zerolog.Logger) Link {
	return &busLink{
		log: log.With().Str("component", "pmbus-link").Logger(),
		bus: bus,
	}
}

// WriteRegister writes the given payload to the device at given address.
func (l *busLink) WriteRegister(ctx context.Context, address uint8, payload []byte) error {
	if len(payload) == 0 {
		return maskAny(errors.Wrap(TransportError, "empty payload"))
	}
	linkExchangesTotal.WithLabelValues("write").Inc()
	if err := l.bus.Execute(ctx, address, func(ctx context.Context, dev bridge.I2CDevice) error {
		return dev.WriteDevice(payload)
	}); err != nil {
		linkErrorsTotal.WithLabelValues("write").Inc()
		return errors.Wrapf(TransportError, "write 0x%02x to 0x%02x failed: %s", payload[0], address, err)
	}
	l.log.Debug().
		Str("address", formatAddress(address)).
		Hex("payload", payload).
		Msg("Wrote register")
	return nil
}

// ReadRegister selects the given command and reads length bytes from the device.
func (l *busLink) ReadRegister(ctx context.Context, address uint8, command uint8, length int) ([]byte, error) {
	if length <= 0 {
		return nil, maskAny(errors.Wrapf(TransportError, "invalid read length %d", length))
	}
	linkExchangesTotal.WithLabelValues("read").Inc()
	result := make([]byte, length)
	if err := l.bus.Execute(ctx, address, func(ctx context.Context, dev bridge.I2CDevice) error {
		if err := dev.WriteDevice([]byte{command}); err != nil {
			return fmt.Errorf("failed to select command: %w", err)
		}
		if err := dev.ReadDevice(result); err != nil {
			return fmt.Errorf("failed to read %d bytes: %w", length, err)
		}
		return nil
	}); err != nil {
		linkErrorsTotal.WithLabelValues("read").Inc()
		return nil, errors.Wrapf(TransportError, "read 0x%02x from 0x%02x failed: %s", command, address, err)
	}
	l.log.Debug().
		Str("address", formatAddress(address)).
		Uint8("command", command).
		Hex("data", result).
		Msg("Read register")
	return result, nil
}

// SelectPage sets the active page of the device at given address.
func (l *busLink) SelectPage(ctx context.Context, address uint8, page uint8) error {
	linkExchangesTotal.WithLabelValues("page").Inc()
	if err := l.bus.Execute(ctx, address, func(ctx context.Context, dev bridge.I2CDevice) error {
		return dev.WriteByteReg(CmdPage, page)
	}); err != nil {
		linkErrorsTotal.WithLabelValues("page").Inc()
		return errors.Wrapf(TransportError, "select page %d on 0x%02x failed: %s", page, address, err)
	}
	return nil
}

// SettleDelay blocks for the given duration.
func (l *busLink) SettleDelay(d time.Duration) {
	time.Sleep(d)
}

// DevicePresent checks that all given addresses respond.
func (l *busLink) DevicePresent(ctx context.Context, addresses []uint8) error {
	var missing []string
	for _, address := range addresses {
		if err := l.bus.Execute(ctx, address, func(ctx context.Context, dev bridge.I2CDevice) error {
			_, err := dev.ReadByteReg(CmdPage)
			return err
		}); err != nil {
			if ctx.Err() != nil {
				return maskAny(ctx.Err())
			}
			l.log.Warn().Err(err).Str("address", formatAddress(address)).Msg("Device does not respond")
			missing = append(missing, formatAddress(address))
		}
	}
	if len(missing) > 0 {
		return errors.Wrapf(DeviceNotFoundError, "no response from %s (responding: %s)",
			strings.Join(missing, ", "), l.respondingAddresses())
	}
	return nil
}

// respondingAddresses lists all addresses that respond on the bus.
func (l *busLink) respondingAddresses() string {
	found := l.bus.DetectSlaveAddresses()
	if len(found) == 0 {
		return "none"
	}
	list := make([]string, 0, len(found))
	for _, address := range found {
		list = append(list, formatAddress(address))
	}
	return strings.Join(list, ", ")
}

func formatAddress(address uint8) string {
	return fmt.Sprintf("0x%02X", address)
}
