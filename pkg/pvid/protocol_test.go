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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProtocolValidate(t *testing.T) {
	assert.NoError(t, ADM1266.Validate())

	tests := []struct {
		name   string
		modify func(p *Protocol)
	}{
		{name: "no pins", modify: func(p *Protocol) { p.PinCount = 0 }},
		{name: "exponent too wide", modify: func(p *Protocol) { p.ExponentWidth = 9 }},
		{name: "zero resolution", modify: func(p *Protocol) { p.MinResolution = 0 }},
		{name: "three channels", modify: func(p *Protocol) { p.ChannelCount = 3 }},
		{name: "empty response", modify: func(p *Protocol) { p.ModeResponseLength = 0 }},
		{name: "negative response length", modify: func(p *Protocol) { p.ModeResponseLength = -3 }},
		{name: "negative channel 1 offset", modify: func(p *Protocol) { p.Channel1StatusOffset = -1 }},
		{name: "negative channel 2 offset", modify: func(p *Protocol) { p.Channel2StatusOffset = -2 }},
		{name: "offset past response", modify: func(p *Protocol) { p.Channel2StatusOffset = 3 }},
	}
	for _, tt := range tests {
		p := ADM1266
		tt.modify(&p)
		err := p.Validate()
		assert.True(t, IsValidation(err), tt.name)
	}
}
