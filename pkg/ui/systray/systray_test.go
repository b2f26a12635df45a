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

package systray

import (
	"bytes"
	"errors"
	"image/png"
	"testing"

	"github.com/minidisplay/minidisplay-core/pkg/api/models"
	"github.com/minidisplay/minidisplay-core/pkg/devices/led"
	"github.com/minidisplay/minidisplay-core/pkg/orientation"
	"github.com/minidisplay/minidisplay-core/pkg/testing/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestStatusLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status models.StatusResponse
		want   string
	}{
		{
			name: "all connected",
			status: models.StatusResponse{
				Display: models.DisplayResponse{Orientation: "portrait", Connected: true},
				LED:     models.LEDResponse{ThemeName: "breathing", Enabled: true},
			},
			want: "Display: portrait | LED: breathing",
		},
		{
			name:   "nothing attached",
			status: models.StatusResponse{Display: models.DisplayResponse{Orientation: "landscape"}},
			want:   "Display: not connected | LED: disabled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, StatusLine(tt.status))
		})
	}
}

func TestSetOrientation(t *testing.T) {
	t.Parallel()

	c := mocks.NewMockAPIClient()
	c.On("Call", mock.Anything, models.MethodDisplayOrientation, `{"orientation":"landscape-upside-down"}`).
		Return(`{}`, nil)

	require.NoError(t, New(c, "").SetOrientation(orientation.LandscapeUpsideDown))
	c.AssertExpectations(t)
}

func TestSetTheme_KeepsIntensityAndSpeed(t *testing.T) {
	t.Parallel()

	c := mocks.NewMockAPIClient()
	c.SetupStatusResponse(&models.StatusResponse{
		LED: models.LEDResponse{Theme: 1, Intensity: 5, Speed: 2, Enabled: true},
	})
	c.SetupLEDSetSuccess(&models.LEDResponse{Theme: 3, Intensity: 5, Speed: 2, Enabled: true})

	require.NoError(t, New(c, "").SetTheme(led.ThemeColorCycle))
	c.AssertCalled(t, "Call", mock.Anything, models.MethodLEDSet, `{"theme":3,"intensity":5,"speed":2}`)
}

func TestSetTheme_FallsBackToDefaults(t *testing.T) {
	t.Parallel()

	c := mocks.NewMockAPIClient()
	c.SetupStatusResponse(&models.StatusResponse{})
	c.SetupLEDSetSuccess(&models.LEDResponse{})

	require.NoError(t, New(c, "").SetTheme(led.ThemeRainbow))
	c.AssertCalled(t, "Call", mock.Anything, models.MethodLEDSet, `{"theme":1,"intensity":3,"speed":3}`)
}

func TestSetTheme_StatusError(t *testing.T) {
	t.Parallel()

	c := mocks.NewMockAPIClient()
	c.SetupStatusError(errors.New("connection refused"))

	err := New(c, "").SetTheme(led.ThemeRainbow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status")
	c.AssertNotCalled(t, "Call", mock.Anything, models.MethodLEDSet, mock.Anything)
}

func TestLEDOff(t *testing.T) {
	t.Parallel()

	c := mocks.NewMockAPIClient()
	c.On("Call", mock.Anything, models.MethodLEDOff, "").Return(`{}`, nil)

	require.NoError(t, New(c, "").LEDOff())
	c.AssertExpectations(t)
}

func TestIcon(t *testing.T) {
	t.Parallel()

	img, err := png.Decode(bytes.NewReader(Icon()))
	require.NoError(t, err)
	assert.Equal(t, 22, img.Bounds().Dx())
	assert.Equal(t, 22, img.Bounds().Dy())
}
