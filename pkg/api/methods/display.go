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
	"encoding/base64"
	"fmt"

	"github.com/minidisplay/minidisplay-core/pkg/api/models"
	"github.com/minidisplay/minidisplay-core/pkg/api/models/requests"
	"github.com/rs/zerolog/log"
)

func HandleDisplayOrientation(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	var params models.OrientationParams
	if err := decodeParams(models.MethodDisplayOrientation, env.Params, &params); err != nil {
		return nil, err
	}

	log.Info().Str("orientation", params.Orientation).Msg("received orientation request")
	if err := env.State.SetOrientation(env.Context, params.Orientation); err != nil {
		return nil, fmt.Errorf("failed to set orientation: %w", err)
	}
	return env.State.Status().Display, nil
}

// HandleDisplayClear fills the screen with one colour. Params are optional;
// no params clears to black.
func HandleDisplayClear(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	params := models.ClearParams{}
	if len(env.Params) > 0 {
		if err := decodeParams(models.MethodDisplayClear, env.Params, &params); err != nil {
			return nil, err
		}
	}
	if params.Color == "" {
		params.Color = "#000000"
	}

	log.Info().Str("color", params.Color).Msg("received clear request")
	if err := env.State.ClearDisplay(env.Context, params.Color); err != nil {
		return nil, fmt.Errorf("failed to clear display: %w", err)
	}
	return env.State.Status().Display, nil
}

func HandleDisplayScreen(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	screen, err := env.State.ScreenPNG()
	if err != nil {
		return nil, fmt.Errorf("failed to capture screen: %w", err)
	}
	return models.ScreenResponse{
		PNG:    base64.StdEncoding.EncodeToString(screen.PNG),
		Width:  screen.Width,
		Height: screen.Height,
	}, nil
}
