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
	"fmt"

	"github.com/pkg/errors"

	"github.com/binkynet/PVIDConfigurator/pkg/pmbus"
)

// Status of a single PVID channel as reported by the device.
type Status uint8

const (
	// StatusDisabled is the initial state; the channel was never configured.
	StatusDisabled Status = iota
	// StatusConfigurationFault means the configuration parameters were rejected.
	StatusConfigurationFault
	// StatusDanglingConfiguration means the configuration was only partially written.
	StatusDanglingConfiguration
	// StatusReady means the channel is fully configured and can be enabled.
	StatusReady
	// StatusEnabled means the channel is active.
	StatusEnabled
)

// AllStatuses lists all known statuses in numeric order.
var AllStatuses = []Status{
	StatusDisabled,
	StatusConfigurationFault,
	StatusDanglingConfiguration,
	StatusReady,
	StatusEnabled,
}

// String returns a human readable name of the status.
func (s Status) String() string {
	switch s {
	case StatusDisabled:
		return "Disabled"
	case StatusConfigurationFault:
		return "Configuration fault"
	case StatusDanglingConfiguration:
		return "Dangling configuration"
	case StatusReady:
		return "Ready"
	case StatusEnabled:
		return "Enabled"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(s))
	}
}

// IsFault returns true for statuses that indicate a failed configuration.
func (s Status) IsFault() bool {
	return s == StatusConfigurationFault || s == StatusDanglingConfiguration
}

// StatusResult holds the status of both PVID channels of a device.
type StatusResult struct {
	Channel1 Status
	Channel2 Status
}

// ForChannel returns the status of the given channel (1 or 2).
func (r StatusResult) ForChannel(channel uint8) Status {
	if channel == 2 {
		return r.Channel2
	}
	return r.Channel1
}

// DecodeStatus parses the response of a PVID mode command.
// Status codes are taken as is; only the length of the buffer is checked.
func (p Protocol) DecodeStatus(buf []byte) (StatusResult, error) {
	if len(buf) < p.ModeResponseLength {
		return StatusResult{}, errors.Wrapf(pmbus.MalformedResponseError, "expected %d bytes, got %d", p.ModeResponseLength, len(buf))
	}
	return StatusResult{
		Channel1: Status(buf[p.Channel1StatusOffset]),
		Channel2: Status(buf[p.Channel2StatusOffset]),
	}, nil
}
