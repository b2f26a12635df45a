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

package methods

import (
	"fmt"
	"runtime"

	"github.com/minidisplay/minidisplay-core/pkg/api/models"
	"github.com/minidisplay/minidisplay-core/pkg/api/models/requests"
	"github.com/minidisplay/minidisplay-core/pkg/config"
	"github.com/minidisplay/minidisplay-core/pkg/helpers"
	"github.com/rs/zerolog/log"
)

func HandleStatus(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	return env.State.Status(), nil
}

func HandleVersion(requests.RequestEnv) (any, error) {
	log.Info().Msg("received version request")
	return models.VersionResponse{
		Version:  config.AppVersion,
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}, nil
}

// PortLister enumerates serial ports.
type PortLister func() ([]helpers.SerialPort, error)

// NewPortsHandler lists serial ports that could host the LED controller.
// Only loopback clients may enumerate local hardware.
func NewPortsHandler(list PortLister) func(requests.RequestEnv) (any, error) {
	return func(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
		if !env.IsLocal {
			return nil, fmt.Errorf("%s is only available to local clients", models.MethodPorts)
		}
		ports, err := list()
		if err != nil {
			return nil, fmt.Errorf("failed to list serial ports: %w", err)
		}
		resp := models.PortsResponse{Ports: make([]models.PortResponse, 0, len(ports))}
		for _, p := range ports {
			resp.Ports = append(resp.Ports, models.PortResponse{
				Name:          p.Name,
				Description:   p.String(),
				LEDController: p.IsLEDController(),
			})
		}
		return resp, nil
	}
}
