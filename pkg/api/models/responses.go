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

type DisplayResponse struct {
	Orientation string `json:"orientation"`
	RenderState string `json:"renderState"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Connected   bool   `json:"connected"`
	Dirty       bool   `json:"dirty"`
}

type LEDResponse struct {
	ThemeName string `json:"themeName"`
	Theme     uint8  `json:"theme"`
	Intensity uint8  `json:"intensity"`
	Speed     uint8  `json:"speed"`
	Enabled   bool   `json:"enabled"`
	Dirty     bool   `json:"dirty"`
}

type StatusResponse struct {
	Display DisplayResponse `json:"display"`
	LED     LEDResponse     `json:"led"`
}

type ScreenResponse struct {
	// PNG is the base64 encoded snapshot.
	PNG    string `json:"png"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type PortsResponse struct {
	Ports []PortResponse `json:"ports"`
}

type PortResponse struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	LEDController bool   `json:"ledController"`
}

type VersionResponse struct {
	Version  string `json:"version"`
	Platform string `json:"platform"`
}
