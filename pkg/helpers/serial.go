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
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// SerialPort describes a candidate port for the LED controller.
type SerialPort struct {
	Name     string `json:"name"`
	VID      string `json:"vid,omitempty"`
	PID      string `json:"pid,omitempty"`
	Product  string `json:"product,omitempty"`
	// Topology is the physical USB port path, e.g. "1-2.3".
	Topology string `json:"topology,omitempty"`
	USB      bool   `json:"usb"`
}

func (p SerialPort) String() string {
	if !p.USB {
		return p.Name
	}
	s := fmt.Sprintf("%s (%s:%s)", p.Name, strings.ToLower(p.VID), strings.ToLower(p.PID))
	if p.Product != "" {
		s += " " + p.Product
	}
	if p.Topology != "" {
		s += " [usb " + p.Topology + "]"
	}
	return s
}

// ledControllerIDs are USB-serial bridges known to sit behind the strip.
var ledControllerIDs = []string{
	"1a86:7523", // CH340
	"1a86:55d4", // CH9102
	"10c4:ea60", // CP210x
}

// IsLEDController reports whether the port's USB ids match a known bridge.
func (p SerialPort) IsLEDController() bool {
	if !p.USB {
		return false
	}
	id := strings.ToLower(p.VID) + ":" + strings.ToLower(p.PID)
	return slices.Contains(ledControllerIDs, id)
}

func keepPort(name string) bool {
	switch runtime.GOOS {
	case "linux":
		base := strings.TrimPrefix(name, "/dev/")
		return strings.HasPrefix(base, "ttyUSB") || strings.HasPrefix(base, "ttyACM")
	case "darwin":
		return strings.HasPrefix(name, "/dev/tty.usbserial") ||
			strings.HasPrefix(name, "/dev/cu.usbserial")
	case "windows":
		return strings.HasPrefix(name, "COM")
	default:
		return true
	}
}

// GetSerialDeviceList lists USB serial ports, known LED controllers first.
func GetSerialDeviceList() ([]SerialPort, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		log.Debug().Err(err).Msg("detailed port enumeration failed, falling back to names")
		names, listErr := serial.GetPortsList()
		if listErr != nil {
			return nil, fmt.Errorf("failed to get serial ports list: %w", listErr)
		}
		ports := make([]SerialPort, 0, len(names))
		for _, n := range names {
			if keepPort(n) {
				ports = append(ports, SerialPort{Name: n})
			}
		}
		return ports, nil
	}

	ports := make([]SerialPort, 0, len(details))
	for _, d := range details {
		if !keepPort(d.Name) {
			continue
		}
		port := SerialPort{
			Name:    d.Name,
			VID:     d.VID,
			PID:     d.PID,
			Product: d.Product,
			USB:     d.IsUSB,
		}
		if port.USB {
			port.Topology = GetUSBTopologyPath(d.Name)
		}
		ports = append(ports, port)
	}
	SortSerialPorts(ports)
	return ports, nil
}

// SortSerialPorts orders known LED controllers first, then by name.
func SortSerialPorts(ports []SerialPort) {
	slices.SortStableFunc(ports, func(a, b SerialPort) int {
		ac, bc := a.IsLEDController(), b.IsLEDController()
		switch {
		case ac && !bc:
			return -1
		case bc && !ac:
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})
}
