//    Copyright 2017-2022 Ewout Prangsma
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
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/PVIDConfigurator/pkg/pmbus"
	"github.com/binkynet/PVIDConfigurator/pkg/pvid"
	"github.com/binkynet/PVIDConfigurator/pkg/report"
	"github.com/binkynet/PVIDConfigurator/pkg/service/bridge"
	"github.com/binkynet/PVIDConfigurator/pkg/ui"
)

type Service interface {
	// Run the configurator until the session ends or the given context is cancelled.
	Run(ctx context.Context) error
}

type Config struct {
	ProgramVersion string
	Catalog        pvid.Catalog
	Protocol       pvid.Protocol
}

type Dependencies struct {
	Logger   zerolog.Logger
	Bridge   bridge.API
	Reader   ui.LineReader
	Reporter report.Reporter
	History  *ui.History
}

type service struct {
	Config
	Dependencies
}

// NewService creates a Service instance and returns it.
func NewService(conf Config, deps Dependencies) (Service, error) {
	if deps.Bridge == nil {
		return nil, errors.Wrap(pvid.ValidationError, "bridge is required")
	}
	if err := conf.Catalog.Validate(); err != nil {
		return nil, err
	}
	deps.Logger = deps.Logger.With().Str("component", "service").Logger()
	return &service{
		Config:       conf,
		Dependencies: deps,
	}, nil
}

// Run opens the bus, verifies that all devices of the catalog are present
// and then runs the interactive configuration session.
func (s *service) Run(ctx context.Context) error {
	log := s.Logger
	defer s.Bridge.Close()

	// Show we're starting
	s.Bridge.BlinkGreenLED(time.Millisecond * 250)
	s.Bridge.BlinkRedLED(time.Millisecond * 250)

	bus, err := s.Bridge.I2CBus()
	if err != nil {
		s.showFailure()
		return errors.Wrap(err, "Failed to open i2c bus")
	}
	link := pmbus.NewLink(bus, s.Logger)

	// All devices must be present before anything is configured
	if err := link.DevicePresent(ctx, s.Catalog.Addresses); err != nil {
		presenceFailuresTotal.Inc()
		s.showFailure()
		return err
	}
	log.Info().
		Str("version", s.ProgramVersion).
		Str("catalog", s.Catalog.String()).
		Msg("All devices present")
	s.Bridge.SetGreenLED(true)
	s.Bridge.SetRedLED(false)

	session, err := ui.NewSession(ui.Config{
		Catalog:  s.Catalog,
		Protocol: s.Protocol,
	}, ui.Dependencies{
		Log:      s.Logger,
		Reader:   s.Reader,
		Link:     link,
		LEDs:     s.Bridge,
		Reporter: s.Reporter,
		History:  s.History,
	})
	if err != nil {
		return err
	}
	sessionsTotal.Inc()
	if err := session.Run(ctx); err != nil {
		sessionFailuresTotal.Inc()
		return err
	}
	return nil
}

func (s *service) showFailure() {
	s.Bridge.SetGreenLED(false)
	s.Bridge.SetRedLED(true)
}
