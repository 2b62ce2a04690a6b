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

package pmbus

import (
	"github.com/binkynet/PVIDConfigurator/pkg/metrics"
)

const (
	subSystem = "pmbus"
)

var (
	// Total number of register exchanges per operation
	linkExchangesTotal = metrics.MustRegisterCounterVec(subSystem,
		"exchanges_total",
		"Total number of register exchanges per operation",
		"op")
	// Total number of failed register exchanges per operation
	linkErrorsTotal = metrics.MustRegisterCounterVec(subSystem,
		"exchange_errors_total",
		"Total number of failed register exchanges per operation",
		"op")
)
