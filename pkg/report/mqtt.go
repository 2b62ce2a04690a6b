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
	"fmt"
	"strings"
	"sync"
	"time"

	mqttapi "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/PVIDConfigurator/pkg/pvid"
)

// Reporter publishes the outcome of PVID configuration sessions.
type Reporter interface {
	// ReportStatus publishes the status of both PVID channels of a device.
	ReportStatus(ctx context.Context, address uint8, channel string, result pvid.StatusResult) error
	// Close the reporter
	Close() error
}

// Config of an MQTT reporter.
type Config struct {
	// Address (host:port) of the MQTT broker
	BrokerAddress string
	// Client ID used to connect
	ClientID string
	// Prefix of all topics
	TopicPrefix string
}

const (
	mqttPublishTimeout = time.Millisecond * 200
	mqttConnectTimeout = time.Second * 5
)

// StatusMessage is the JSON payload published for a status report.
type StatusMessage struct {
	Address      string `json:"address"`
	PVIDChannel  string `json:"pvid_channel"`
	Channel1     uint8  `json:"channel1"`
	Channel1Name string `json:"channel1_name"`
	Channel2     uint8  `json:"channel2"`
	Channel2Name string `json:"channel2_name"`
	Time         string `json:"time"`
}

// NewStatusMessage builds the payload for a status report.
func NewStatusMessage(address uint8, channel string, result pvid.StatusResult, at time.Time) StatusMessage {
	return StatusMessage{
		Address:      fmt.Sprintf("0x%02X", address),
		PVIDChannel:  channel,
		Channel1:     uint8(result.Channel1),
		Channel1Name: result.Channel1.String(),
		Channel2:     uint8(result.Channel2),
		Channel2Name: result.Channel2.String(),
		Time:         at.UTC().Format(time.RFC3339),
	}
}

// StatusTopic returns the topic a status report of the device at given address is published on.
func StatusTopic(prefix string, address uint8) string {
	return fmt.Sprintf("%s/0x%02X/pvid/status", strings.TrimSuffix(prefix, "/"), address)
}

// MQTTReporter is a Reporter that publishes on an MQTT broker.
type MQTTReporter struct {
	log    zerolog.Logger
	mutex  sync.Mutex
	config Config
	client mqttapi.Client
}

// NewMQTTReporter connects to the configured broker and returns a Reporter
// that publishes on it.
func NewMQTTReporter(config Config, log zerolog.Logger) (*MQTTReporter, error) {
	opts := mqttapi.NewClientOptions().
		AddBroker("tcp://" + config.BrokerAddress).
		SetClientID(config.ClientID)
	opts.SetKeepAlive(2 * time.Second)
	opts.SetPingTimeout(1 * time.Second)
	opts.SetOrderMatters(false)
	opts.SetAutoReconnect(true)

	client := mqttapi.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, errors.Errorf("timeout connecting to mqtt broker %s", config.BrokerAddress)
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrapf(err, "failed to connect to mqtt broker %s", config.BrokerAddress)
	}
	return &MQTTReporter{
		log:    log.With().Str("component", "mqtt-reporter").Logger(),
		config: config,
		client: client,
	}, nil
}

// ReportStatus publishes the status of both PVID channels of a device.
func (r *MQTTReporter) ReportStatus(ctx context.Context, address uint8, channel string, result pvid.StatusResult) error {
	payload, err := json.Marshal(NewStatusMessage(address, channel, result, time.Now()))
	if err != nil {
		return errors.WithStack(err)
	}
	return r.Publish(ctx, StatusTopic(r.config.TopicPrefix, address), payload)
}

// Publish sends the given payload to the given topic.
func (r *MQTTReporter) Publish(ctx context.Context, topic string, payload []byte) error {
	r.mutex.Lock()
	client := r.client
	r.mutex.Unlock()

	if client == nil {
		return errors.New("reporter closed")
	}
	token := client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(mqttPublishTimeout) {
		return errors.Errorf("timeout publishing to '%s'", topic)
	}
	if err := token.Error(); err != nil {
		return errors.Wrapf(err, "failed to publish to '%s'", topic)
	}
	return nil
}

// LogTopic returns the topic log lines are published on.
func (r *MQTTReporter) LogTopic() string {
	return strings.TrimSuffix(r.config.TopicPrefix, "/") + "/log"
}

// Close the reporter
func (r *MQTTReporter) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.client != nil {
		r.client.Disconnect(250)
		r.client = nil
	}
	return nil
}

type nopReporter struct{}

// NewNopReporter returns a Reporter that drops all reports.
func NewNopReporter() Reporter {
	return nopReporter{}
}

func (nopReporter) ReportStatus(context.Context, uint8, string, pvid.StatusResult) error {
	return nil
}

func (nopReporter) Close() error {
	return nil
}
