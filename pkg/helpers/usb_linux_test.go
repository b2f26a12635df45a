//go:build linux

// MiniDisplay Core
// Copyright (c) 2026 The MiniDisplay Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of MiniDisplay Core.
//
// MiniDisplay Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// MiniDisplay Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with MiniDisplay Core.  If not, see <http://www.gnu.org/licenses/>.

package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractUSBTopology(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{
			name:     "ch340 behind hub",
			path:     "/sys/devices/pci0000:00/0000:00:14.0/usb1/1-2/1-2.3/1-2.3:1.0/ttyUSB0/tty/ttyUSB0",
			expected: "1-2.3",
		},
		{
			name:     "root port",
			path:     "/sys/devices/pci0000:00/0000:00:14.0/usb1/1-4/1-4:1.0/ttyUSB0/tty/ttyUSB0",
			expected: "1-4",
		},
		{
			name:     "acm device on second bus",
			path:     "/sys/devices/pci0000:00/0000:00:14.0/usb2/2-1/2-1.2/2-1.2:1.0/tty/ttyACM0",
			expected: "2-1.2",
		},
		{
			name:     "onboard uart",
			path:     "/sys/devices/platform/serial8250/tty/ttyS0",
			expected: "",
		},
		{name: "empty", path: "", expected: ""},
		{name: "root", path: "/", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, extractUSBTopology(tt.path))
		})
	}
}

func TestGetUSBTopologyPath_Missing(t *testing.T) {
	t.Parallel()

	assert.Empty(t, GetUSBTopologyPath(""))
	assert.Empty(t, GetUSBTopologyPath("/dev/nonexistent_minidisplay_led"))
}

func TestUSBTopologyPattern(t *testing.T) {
	t.Parallel()

	for input, want := range map[string]bool{
		"1-2":       true,
		"1-2.3.1":   true,
		"10-5.3":    true,
		"usb1":      false,
		"ttyUSB0":   false,
		"1-2:1.0":   false,
		"pci0000:0": false,
		"":          false,
	} {
		assert.Equal(t, want, usbTopologyPattern.MatchString(input), input)
	}
}
