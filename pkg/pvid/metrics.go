//    Copyright 2024 Ewout Prangsma
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

package pvid

import (
	"github.com/binkynet/PVIDConfigurator/pkg/metrics"
)

const (
	subSystem = "pvid"

	frameDisable = "disable"
	frameConfig  = "config"
	frameMode    = "mode"
)

var (
	// Total number of PVID frames written per kind
	framesTotal = metrics.MustRegisterCounterVec(subSystem,
		"frames_total",
		"Total number of PVID frames written per kind",
		"kind")
	// Total number of PVID frames that failed to be written per kind
	framesErrorsTotal = metrics.MustRegisterCounterVec(subSystem,
		"frame_errors_total",
		"Total number of PVID frames that failed to be written per kind",
		"kind")
	// Last reported status code per device address and PVID channel
	statusGauge = metrics.MustRegisterGaugeVec(subSystem,
		"status",
		"Last reported PVID status code per device and channel",
		"address", "channel")
)
