//    Copyright 2017 Ewout Prangsma
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

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	terminate "github.com/pulcy/go-terminate"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/binkynet/PVIDConfigurator/pkg/environment"
	"github.com/binkynet/PVIDConfigurator/pkg/logging"
	"github.com/binkynet/PVIDConfigurator/pkg/pvid"
	"github.com/binkynet/PVIDConfigurator/pkg/report"
	"github.com/binkynet/PVIDConfigurator/pkg/server"
	"github.com/binkynet/PVIDConfigurator/pkg/service"
	"github.com/binkynet/PVIDConfigurator/pkg/service/bridge"
	"github.com/binkynet/PVIDConfigurator/pkg/ui"
)

const (
	projectName        = "ADM1266 PVID Configurator"
	defaultMetricsPort = 7139
	defaultMQTTTopic   = "pvid"
)

var (
	projectVersion = "dev"
	projectBuild   = "dev"
	maskAny        = errors.WithStack
)

type options struct {
	level       string
	bridgeType  string
	busLocation string
	addresses   []string
	catalogPath string
	logFile     string
	metricsHost string
	metricsPort int
	mqttBroker  string
	mqttTopic   string
}

func main() {
	var opts options

	pflag.StringVarP(&opts.level, "level", "l", "info", "Set log level")
	pflag.StringVarP(&opts.bridgeType, "bridge", "b", "auto", "Type of bridge to use (auto|rpi|i2c|sim)")
	pflag.StringVar(&opts.busLocation, "i2c-bus", bridge.DefaultRaspberryPiBus, "Location of the i2c bus the sequencers are connected to")
	pflag.StringSliceVarP(&opts.addresses, "address", "a", nil, "Hexadecimal PMBus address(es) of the ADM1266 devices (e.g. 0x40 or 40), overrides the catalog")
	pflag.StringVarP(&opts.catalogPath, "catalog", "c", "", "Path of a YAML file describing devices, rails & PVID channels")
	pflag.StringVar(&opts.logFile, "log-file", "", "Path of a file to write the log to (in addition to the console)")
	pflag.StringVar(&opts.metricsHost, "metrics-host", "0.0.0.0", "Host address the metrics server will listen on")
	pflag.IntVar(&opts.metricsPort, "metrics-port", defaultMetricsPort, "Port the metrics server will listen on (0 to disable)")
	pflag.StringVar(&opts.mqttBroker, "mqtt-broker", "", "Address (host:port) of the MQTT broker to report PVID status to")
	pflag.StringVar(&opts.mqttTopic, "mqtt-topic", defaultMQTTTopic, "Prefix of the MQTT topics to report on")
	pflag.Parse()

	if err := run(opts); err != nil {
		Exitf("%v\n", err)
	}
}

// run the configurator with given options.
// All resources are released before it returns.
func run(opts options) error {
	// Prepare to shutdown in a controlled manor
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Prepare logger
	level, err := zerolog.ParseLevel(opts.level)
	if err != nil {
		return errors.Wrapf(err, "Invalid log level '%s'", opts.level)
	}
	writers := []io.Writer{zerolog.ConsoleWriter{Out: os.Stderr}}
	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return errors.Wrapf(err, "Failed to open log file '%s'", opts.logFile)
		}
		defer f.Close()
		writers = append(writers, f)
	}
	var mqttWriter logging.MQTTWriter
	if opts.mqttBroker != "" {
		mqttWriter = logging.NewMQTTWriter(ctx)
		writers = append(writers, mqttWriter)
	}
	logger := zerolog.New(logging.NewMultiWriter(writers...)).Level(level).With().Timestamp().Logger()

	// Load catalog
	catalog, err := loadCatalog(opts.catalogPath, opts.addresses)
	if err != nil {
		return errors.Wrap(err, "Failed to load catalog")
	}

	// Prepare bridge
	bridgeType := opts.bridgeType
	if bridgeType == "auto" {
		if bridgeType, err = environment.AutoDetectBridgeType(logger, opts.busLocation); err != nil {
			return errors.Wrap(err, "Failed to detect bridge type")
		}
		logger.Info().Str("bridge", bridgeType).Msg("Detected bridge type")
	}
	br, err := newBridge(bridgeType, opts.busLocation, catalog)
	if err != nil {
		return errors.Wrap(err, "Failed to initialize bridge")
	}

	// Prepare reporter
	var reporter report.Reporter = report.NewNopReporter()
	if opts.mqttBroker != "" {
		mqttReporter, err := report.NewMQTTReporter(report.Config{
			BrokerAddress: opts.mqttBroker,
			ClientID:      fmt.Sprintf("pvid-configurator-%d", os.Getpid()),
			TopicPrefix:   opts.mqttTopic,
		}, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("MQTT reporting disabled")
		} else {
			reporter = mqttReporter
			mqttWriter.SetDestination(mqttReporter.LogTopic(), mqttReporter)
			mqttWriter.Enable(true)
		}
	}
	defer reporter.Close()

	// Prepare session
	reader, err := ui.NewReadline()
	if err != nil {
		br.Close()
		return errors.Wrap(err, "Failed to initialize terminal")
	}
	history := &ui.History{}
	svc, err := service.NewService(service.Config{
		ProgramVersion: projectVersion,
		Catalog:        catalog,
		Protocol:       pvid.ADM1266,
	}, service.Dependencies{
		Logger:   logger,
		Bridge:   br,
		Reader:   reader,
		Reporter: reporter,
		History:  history,
	})
	if err != nil {
		reader.Close()
		br.Close()
		return errors.Wrap(err, "Failed to initialize Service")
	}

	t := terminate.NewTerminator(func(template string, args ...interface{}) {
		logger.Info().Msgf(template, args...)
	}, cancel)
	go t.ListenSignals()

	fmt.Printf("Starting %s (version %s build %s)\n", projectName, projectVersion, projectBuild)
	fmt.Printf("Devices: %s\n", catalog)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return svc.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		return reader.Close()
	})
	if opts.metricsPort > 0 {
		srv, err := server.New(server.Config{
			Host:     opts.metricsHost,
			HTTPPort: opts.metricsPort,
		}, logger, history)
		if err != nil {
			logger.Warn().Err(err).Msg("Metrics server disabled")
		} else {
			g.Go(func() error { return srv.Run(ctx) })
		}
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "PVID configuration failed")
	}
	return nil
}

// loadCatalog loads the catalog from the given path (if any) and
// overrides its addresses (if any).
func loadCatalog(path string, addresses []string) (pvid.Catalog, error) {
	catalog := pvid.DefaultCatalog()
	if path != "" {
		var err error
		if catalog, err = pvid.LoadCatalog(path); err != nil {
			return pvid.Catalog{}, maskAny(err)
		}
	}
	if len(addresses) > 0 {
		catalog.Addresses = nil
		for _, s := range addresses {
			addr, err := pvid.ParseAddress(s)
			if err != nil {
				return pvid.Catalog{}, maskAny(err)
			}
			catalog.Addresses = append(catalog.Addresses, addr)
		}
	}
	if err := catalog.Validate(); err != nil {
		return pvid.Catalog{}, maskAny(err)
	}
	return catalog, nil
}

// newBridge creates the bridge of given type.
func newBridge(bridgeType, busLocation string, catalog pvid.Catalog) (bridge.API, error) {
	switch bridgeType {
	case bridge.TypeRaspberryPi:
		return bridge.NewRaspberryPiBridge(busLocation)
	case bridge.TypeI2C:
		return bridge.NewI2CBridge(busLocation)
	case bridge.TypeSimulated:
		devices := make([]bridge.SimulatedDevice, 0, len(catalog.Addresses))
		for _, addr := range catalog.Addresses {
			devices = append(devices, bridge.DefaultSimulatedDevice(addr))
		}
		return bridge.NewSimulatedBridge(devices...), nil
	default:
		return nil, errors.Errorf("unknown bridge type '%s' (auto|rpi|i2c|sim)", bridgeType)
	}
}

// Print the given error message and exit with code 1
func Exitf(message string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, message, args...)
	os.Exit(1)
}
