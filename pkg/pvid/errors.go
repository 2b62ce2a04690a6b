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
	"github.com/pkg/errors"
)

var (
	// UnknownChannelError is returned for a channel name that is not in the catalog.
	UnknownChannelError = errors.New("unknown channel")
	IsUnknownChannel    = isErrorFunc(UnknownChannelError)
	// ChannelNotConfiguredError is returned when a selected page has no valid VOUT_MODE.
	ChannelNotConfiguredError = errors.New("channel not configured")
	IsChannelNotConfigured    = isErrorFunc(ChannelNotConfiguredError)
	// InvalidInputError is returned for user text that cannot be parsed.
	InvalidInputError = errors.New("invalid input")
	IsInvalidInput    = isErrorFunc(InvalidInputError)
	// ValidationError is returned for an inconsistent catalog or protocol.
	ValidationError = errors.New("validation failed")
	IsValidation    = isErrorFunc(ValidationError)

	maskAny = errors.WithStack
)

func isErrorFunc(typeOfError error) func(err error) bool {
	return func(err error) bool {
		return err == typeOfError || errors.Cause(err) == typeOfError
	}
}
