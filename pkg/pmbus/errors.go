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

import "github.com/pkg/errors"

var (
	// OutOfRangeError is returned when a value does not fit its encoding.
	OutOfRangeError = errors.New("value out of range")
	IsOutOfRange    = isErrorFunc(OutOfRangeError)
	// TransportError is returned when a register exchange fails on the link.
	TransportError = errors.New("transport failure")
	IsTransport    = isErrorFunc(TransportError)
	// MalformedResponseError is returned when a response is shorter than expected.
	MalformedResponseError = errors.New("malformed response")
	IsMalformedResponse    = isErrorFunc(MalformedResponseError)
	// DeviceNotFoundError is returned when an expected device does not respond.
	DeviceNotFoundError = errors.New("device not found")
	IsDeviceNotFound    = isErrorFunc(DeviceNotFoundError)

	maskAny = errors.WithStack
)

func isErrorFunc(typeOfError error) func(err error) bool {
	return func(err error) bool {
		return err == typeOfError || errors.Cause(err) == typeOfError
	}
}
