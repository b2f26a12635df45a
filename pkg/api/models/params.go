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

package models

type OrientationParams struct {
	Orientation string `json:"orientation" validate:"required,orientation"`
}

type ClearParams struct {
	// Color is "#RRGGBB" or "RRGGBB". Empty clears to black.
	Color string `json:"color" validate:"omitempty,rgbhex"`
}

type LEDSetParams struct {
	Theme     uint8 `json:"theme" validate:"ledtheme"`
	Intensity uint8 `json:"intensity" validate:"min=1,max=5"`
	Speed     uint8 `json:"speed" validate:"min=1,max=5"`
}
