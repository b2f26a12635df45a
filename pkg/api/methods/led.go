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

	"github.com/minidisplay/minidisplay-core/pkg/api/models"
	"github.com/minidisplay/minidisplay-core/pkg/api/models/requests"
	"github.com/rs/zerolog/log"
)

func HandleLED(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	return env.State.Status().LED, nil
}

func HandleLEDSet(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	var params models.LEDSetParams
	if err := decodeParams(models.MethodLEDSet, env.Params, &params); err != nil {
		return nil, err
	}

	log.Info().
		Uint8("theme", params.Theme).
		Uint8("intensity", params.Intensity).
		Uint8("speed", params.Speed).
		Msg("received led request")
	if err := env.State.SetLED(env.Context, params.Theme, params.Intensity, params.Speed); err != nil {
		return nil, fmt.Errorf("failed to set led: %w", err)
	}
	return env.State.Status().LED, nil
}

func HandleLEDOff(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received led off request")
	if err := env.State.LEDOff(env.Context); err != nil {
		return nil, fmt.Errorf("failed to turn led off: %w", err)
	}
	return env.State.Status().LED, nil
}
