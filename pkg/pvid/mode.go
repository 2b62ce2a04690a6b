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

// ModeFrame builds the PVID mode command that enables or disables
// the given channel (1...).
//
// Layout: [opcode, 2, channel, enable]
func (p Protocol) ModeFrame(channel uint8, enable bool) []byte {
	var flag uint8
	if enable {
		flag = 1
	}
	return []byte{p.ModeOpcode, 2, channel, flag}
}

// DisableFrame builds the PVID mode command that disables the given channel (1...).
func (p Protocol) DisableFrame(channel uint8) []byte {
	return p.ModeFrame(channel, false)
}
