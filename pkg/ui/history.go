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
	"sync"
	"time"

	"github.com/binkynet/PVIDConfigurator/pkg/pvid"
	"github.com/binkynet/PVIDConfigurator/pkg/report"
)

// History keeps the status reports of the current run.
type History struct {
	mutex   sync.Mutex
	entries []report.StatusMessage
}

// Add a status report to the history.
func (h *History) Add(address uint8, channel string, result pvid.StatusResult) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.entries = append(h.entries, report.NewStatusMessage(address, channel, result, time.Now()))
}

// StatusHistory returns all status reports, oldest first.
func (h *History) StatusHistory() []report.StatusMessage {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return append([]report.StatusMessage(nil), h.entries...)
}
