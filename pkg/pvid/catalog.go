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
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Catalog holds the devices and names a configuration session works with.
type Catalog struct {
	// PMBus addresses of all sequencers in the design
	Addresses []uint8
	// Rail names in page order (index = page)
	Rails []string
	// Names of the PVID channels in channel order (index 0 = channel 1)
	PVIDChannels []string
}

// catalogFile is the on-disk (YAML) form of a Catalog.
type catalogFile struct {
	Addresses    []string `yaml:"addresses"`
	Rails        []string `yaml:"rails,omitempty"`
	PVIDChannels []string `yaml:"pvid_channels,omitempty"`
}

// DefaultCatalog returns the catalog of a design with a single ADM1266 at 0x40.
func DefaultCatalog() Catalog {
	return Catalog{
		Addresses: []uint8{0x40},
		Rails: []string{
			"VH1", "VH2", "VH3", "VH4",
			"VP1", "VP2", "VP3", "VP4", "VP5", "VP6", "VP7",
			"VP8", "VP9", "VP10", "VP11", "VP12", "VP13",
		},
		PVIDChannels: []string{"1", "2"},
	}
}

// LoadCatalog reads a catalog from the YAML file at given path.
// Rails and PVID channels that are not specified default to those
// of DefaultCatalog.
func LoadCatalog(path string) (Catalog, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, maskAny(err)
	}
	return ParseCatalog(content)
}

// ParseCatalog parses a catalog from YAML content.
func ParseCatalog(content []byte) (Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(content, &f); err != nil {
		return Catalog{}, errors.Wrapf(ValidationError, "invalid catalog: %s", err)
	}
	c := DefaultCatalog()
	c.Addresses = nil
	for _, s := range f.Addresses {
		addr, err := ParseAddress(s)
		if err != nil {
			return Catalog{}, errors.Wrapf(ValidationError, "invalid address '%s' in catalog", s)
		}
		c.Addresses = append(c.Addresses, addr)
	}
	if len(f.Rails) > 0 {
		c.Rails = f.Rails
	}
	if len(f.PVIDChannels) > 0 {
		c.PVIDChannels = f.PVIDChannels
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

// Validate the given catalog, returning nil on ok,
// or an error upon validation issues.
func (c Catalog) Validate() error {
	if len(c.Addresses) == 0 {
		return errors.Wrap(ValidationError, "no device addresses")
	}
	seen := make(map[uint8]bool)
	for _, addr := range c.Addresses {
		if addr > 0x7F {
			return errors.Wrapf(ValidationError, "address 0x%02X is not a 7-bit address", addr)
		}
		if seen[addr] {
			return errors.Wrapf(ValidationError, "duplicate address 0x%02X", addr)
		}
		seen[addr] = true
	}
	if len(c.Rails) == 0 || len(c.Rails) > 256 {
		return errors.Wrapf(ValidationError, "rail count must be 1..256, got %d", len(c.Rails))
	}
	if err := checkUnique("rail", c.Rails); err != nil {
		return err
	}
	if len(c.PVIDChannels) != ADM1266.ChannelCount {
		return errors.Wrapf(ValidationError, "expected %d PVID channels, got %d", ADM1266.ChannelCount, len(c.PVIDChannels))
	}
	return checkUnique("PVID channel", c.PVIDChannels)
}

// HasAddress returns true if the given address is part of the catalog.
func (c Catalog) HasAddress(address uint8) bool {
	for _, a := range c.Addresses {
		if a == address {
			return true
		}
	}
	return false
}

// PageIndex returns the register page of the rail with given name.
// Returns an UnknownChannelError if the name is not in the catalog.
func (c Catalog) PageIndex(railName string) (uint8, error) {
	for i, name := range c.Rails {
		if name == railName {
			return uint8(i), nil
		}
	}
	return 0, errors.Wrapf(UnknownChannelError, "rail '%s' not found", railName)
}

// PVIDChannel returns the channel number (1...) of the PVID channel with given name.
// Returns an UnknownChannelError if the name is not in the catalog.
func (c Catalog) PVIDChannel(name string) (uint8, error) {
	for i, n := range c.PVIDChannels {
		if n == name {
			return uint8(i + 1), nil
		}
	}
	return 0, errors.Wrapf(UnknownChannelError, "PVID channel '%s' not found", name)
}

func checkUnique(kind string, names []string) error {
	seen := make(map[string]bool)
	for _, n := range names {
		if n == "" {
			return errors.Wrapf(ValidationError, "empty %s name", kind)
		}
		if seen[n] {
			return errors.Wrapf(ValidationError, "duplicate %s name '%s'", kind, n)
		}
		seen[n] = true
	}
	return nil
}

// String returns a human readable list of addresses.
func (c Catalog) String() string {
	return fmt.Sprintf("%d device(s), %d rails", len(c.Addresses), len(c.Rails))
}
