//    Copyright 2021 Ewout Prangsma
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

package service

import (
	"github.com/binkynet/PVIDConfigurator/pkg/metrics"
)

const (
	subSystem = "service"
)

var (
	// Total number of failed device presence checks
	presenceFailuresTotal = metrics.MustRegisterCounter(subSystem,
		"presence_failures_total",
		"Total number of failed device presence checks")
	// Total number of configuration sessions started
	sessionsTotal = metrics.MustRegisterCounter(subSystem,
		"sessions_total",
		"Total number of configuration sessions started")
	// Total number of configuration sessions that ended with an error
	sessionFailuresTotal = metrics.MustRegisterCounter(subSystem,
		"session_failures_total",
		"Total number of configuration sessions that ended with an error")
)
