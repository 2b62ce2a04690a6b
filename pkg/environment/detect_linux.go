//    Copyright 2018 Ewout Prangsma
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

package environment

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

const (
	typeRaspberryPi = "rpi"
	typeI2C         = "i2c"
)

// AutoDetectBridgeType detects the default bridge type based on the environment.
// An ARM host with an i2c bus at the given location is assumed to be a
// Raspberry PI, any other host with that bus gets a plain i2c bridge.
// Without a bus an error is returned; the simulator is only used when
// asked for explicitly.
func AutoDetectBridgeType(log zerolog.Logger, busLocation string) (string, error) {
	if _, err := os.Stat(busLocation); err != nil {
		return "", errors.Wrapf(err, "no i2c bus found at %s (use --bridge sim for a dry run)", busLocation)
	}
	var name unix.Utsname
	if err := unix.Uname(&name); err != nil {
		log.Warn().Err(err).Msg("Uname failed, using plain i2c bridge")
		return typeI2C, nil
	}
	machine := unix.ByteSliceToString(name.Machine[:])
	if !isARM(machine) {
		log.Debug().Str("machine", machine).Msg("Not an ARM host, using plain i2c bridge")
		return typeI2C, nil
	}
	return typeRaspberryPi, nil
}

func isARM(machine string) bool {
	machine = strings.TrimSpace(machine)
	return strings.HasPrefix(machine, "arm") || strings.HasPrefix(machine, "aarch64")
}
