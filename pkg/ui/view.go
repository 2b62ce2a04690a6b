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
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	humanize "github.com/dustin/go-humanize"

	"github.com/binkynet/PVIDConfigurator/pkg/pvid"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	faultStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	readyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	enabledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	plainStyle   = lipgloss.NewStyle()
)

func statusStyle(s pvid.Status) lipgloss.Style {
	switch {
	case s.IsFault():
		return faultStyle
	case s == pvid.StatusReady:
		return readyStyle
	case s == pvid.StatusEnabled:
		return enabledStyle
	default:
		return plainStyle
	}
}

// gpioLegendView renders the mapping from GPIO index to GPIO pin name.
func gpioLegendView(p pvid.Protocol) string {
	parts := make([]string, 0, int(p.MaxGPIOIndex)+1)
	for i := 0; i <= int(p.MaxGPIOIndex); i++ {
		parts = append(parts, fmt.Sprintf("%d: GPIO%d", i, i+1))
	}
	return strings.Join(parts, "     ")
}

// statusLegendView renders the meaning of all status codes.
func statusLegendView() string {
	lines := []string{headerStyle.Render("PVID status")}
	for _, s := range pvid.AllStatuses {
		lines = append(lines, fmt.Sprintf("%d: %s", uint8(s), s))
	}
	return strings.Join(lines, "\n")
}

// statusView renders the status of both channels of a device.
func statusView(result pvid.StatusResult) string {
	row := func(channel int, s pvid.Status) string {
		return fmt.Sprintf("PVID status of Channel %d : %s",
			channel, statusStyle(s).Render(fmt.Sprintf("%d (%s)", uint8(s), s)))
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		row(1, result.Channel1),
		row(2, result.Channel2),
	)
}

// railSummaryView renders the settings about to be written.
func railSummaryView(address uint8, rail string, rc pvid.RailConfig) string {
	gpios := make([]string, len(rc.GPIOs))
	for i, g := range rc.GPIOs {
		gpios[i] = fmt.Sprintf("GPIO%d", int(g)+1)
	}
	return fmt.Sprintf("Configuring PVID channel %s of 0x%02X on %s: bits=[%s] resolution=%s exponent=%d",
		rc.Channel, address, rail, strings.Join(gpios, " "),
		humanize.SIWithDigits(rc.Resolution, 3, "V"), rc.ResolutionExponent)
}

func ordinal(n int) string {
	suffix := "th"
	switch {
	case n%100 >= 11 && n%100 <= 13:
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
