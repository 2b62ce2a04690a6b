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

package report

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/PVIDConfigurator/pkg/pvid"
)

func TestStatusTopic(t *testing.T) {
	assert.Equal(t, "pvid/0x40/pvid/status", StatusTopic("pvid", 0x40))
	assert.Equal(t, "lab/bench1/0x4A/pvid/status", StatusTopic("lab/bench1/", 0x4A))
}

func TestNewStatusMessage(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := NewStatusMessage(0x40, "1", pvid.StatusResult{
		Channel1: pvid.StatusEnabled,
		Channel2: pvid.StatusConfigurationFault,
	}, at)

	encoded, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"address": "0x40",
		"pvid_channel": "1",
		"channel1": 4,
		"channel1_name": "Enabled",
		"channel2": 1,
		"channel2_name": "Configuration fault",
		"time": "2024-03-01T12:00:00Z"
	}`, string(encoded))
}

func TestNopReporter(t *testing.T) {
	r := NewNopReporter()
	assert.NoError(t, r.ReportStatus(context.Background(), 0x40, "1", pvid.StatusResult{}))
	assert.NoError(t, r.Close())
}

func TestClosedReporterPublish(t *testing.T) {
	r := &MQTTReporter{config: Config{TopicPrefix: "pvid/"}}
	assert.Equal(t, "pvid/log", r.LogTopic())
	assert.Error(t, r.Publish(context.Background(), "pvid/log", []byte("x")))
	assert.NoError(t, r.Close())
}
