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

// Package systray is the desktop tray helper. It holds no device state of
// its own and drives the service through the API client only.
package systray

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"time"

	"fyne.io/systray"
	"github.com/minidisplay/minidisplay-core/pkg/api/client"
	"github.com/minidisplay/minidisplay-core/pkg/api/models"
	"github.com/minidisplay/minidisplay-core/pkg/config"
	"github.com/minidisplay/minidisplay-core/pkg/devices/led"
	"github.com/minidisplay/minidisplay-core/pkg/orientation"
	"github.com/nixinwang/dialog"
	"github.com/rs/zerolog/log"
	"golang.design/x/clipboard"
)

const (
	callTimeout   = 5 * time.Second
	statusRefresh = 5 * time.Second
	title         = "MiniDisplay Core"
)

// Tray maps menu clicks onto API calls.
type Tray struct {
	api    client.APIClient
	apiURL string
}

func New(api client.APIClient, apiURL string) *Tray {
	return &Tray{api: api, apiURL: apiURL}
}

// StatusLine is the one line summary shown at the top of the menu.
func StatusLine(s models.StatusResponse) string {
	panel := "Display: not connected"
	if s.Display.Connected {
		panel = "Display: " + s.Display.Orientation
	}
	strip := "LED: disabled"
	if s.LED.Enabled {
		strip = "LED: " + s.LED.ThemeName
	}
	return panel + " | " + strip
}

func (t *Tray) call(method string, params any) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	var body string
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return "", fmt.Errorf("error encoding params: %w", err)
		}
		body = string(data)
	}
	resp, err := t.api.Call(ctx, method, body)
	if err != nil {
		return "", fmt.Errorf("%s: %w", method, err)
	}
	return resp, nil
}

func (t *Tray) Status() (models.StatusResponse, error) {
	var s models.StatusResponse
	resp, err := t.call(models.MethodStatus, nil)
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal([]byte(resp), &s); err != nil {
		return s, fmt.Errorf("error decoding status: %w", err)
	}
	return s, nil
}

func (t *Tray) SetOrientation(o orientation.Orientation) error {
	_, err := t.call(models.MethodDisplayOrientation, models.OrientationParams{Orientation: o.String()})
	return err
}

// SetTheme changes the theme and keeps the strip's current intensity and
// speed.
func (t *Tray) SetTheme(theme led.Theme) error {
	s, err := t.Status()
	if err != nil {
		return err
	}
	intensity, speed := s.LED.Intensity, s.LED.Speed
	if intensity == 0 || speed == 0 {
		intensity, speed = led.DefaultSettings.Intensity, led.DefaultSettings.Speed
	}
	_, err = t.call(models.MethodLEDSet, models.LEDSetParams{
		Theme:     uint8(theme),
		Intensity: intensity,
		Speed:     speed,
	})
	return err
}

func (t *Tray) LEDOff() error {
	_, err := t.call(models.MethodLEDOff, nil)
	return err
}

// Icon is a small rendering of the panel, drawn at startup.
func Icon() []byte {
	const size = 22
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	frame := color.RGBA{R: 0x30, G: 0x30, B: 0x30, A: 0xFF}
	screen := color.RGBA{R: 0x00, G: 0xA0, B: 0xE0, A: 0xFF}
	for y := 5; y < 17; y++ {
		for x := 1; x < size-1; x++ {
			c := frame
			if y > 6 && y < 15 && x > 2 && x < size-3 {
				c = screen
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		log.Error().Err(err).Msg("failed to encode tray icon")
		return nil
	}
	return buf.Bytes()
}

func (t *Tray) onReady() {
	systray.SetIcon(Icon())
	systray.SetTitle(title)
	systray.SetTooltip(title)

	mStatus := systray.AddMenuItem("Status: unknown", "")
	mStatus.Disable()
	mAddress := systray.AddMenuItem("API: "+t.apiURL, "Copy API address")
	systray.AddSeparator()

	mOrientation := systray.AddMenuItem("Orientation", "Rotate the display")
	orientItems := make(map[orientation.Orientation]*systray.MenuItem)
	for _, o := range orientation.All {
		orientItems[o] = mOrientation.AddSubMenuItemCheckbox(o.String(), "", false)
	}

	mTheme := systray.AddMenuItem("LED Theme", "Change the LED strip theme")
	themeItems := make(map[led.Theme]*systray.MenuItem)
	for _, th := range []led.Theme{led.ThemeRainbow, led.ThemeBreathing, led.ThemeColorCycle, led.ThemeAuto} {
		themeItems[th] = mTheme.AddSubMenuItemCheckbox(th.String(), "", false)
	}
	mOff := systray.AddMenuItem("LED Off", "Turn the LED strip off")

	systray.AddSeparator()
	mAbout := systray.AddMenuItem("About", "")
	mQuit := systray.AddMenuItem("Quit", "Quit the tray helper")

	refresh := func() {
		s, err := t.Status()
		if err != nil {
			mStatus.SetTitle("Status: service not running")
			return
		}
		mStatus.SetTitle(StatusLine(s))
		for o, item := range orientItems {
			if o.String() == s.Display.Orientation {
				item.Check()
			} else {
				item.Uncheck()
			}
		}
		for th, item := range themeItems {
			if s.LED.Enabled && uint8(th) == s.LED.Theme {
				item.Check()
			} else {
				item.Uncheck()
			}
		}
		if s.LED.Enabled {
			mTheme.Enable()
			mOff.Enable()
		} else {
			mTheme.Disable()
			mOff.Disable()
		}
	}
	refresh()

	for o, item := range orientItems {
		go func() {
			for range item.ClickedCh {
				if err := t.SetOrientation(o); err != nil {
					log.Error().Err(err).Msg("failed to set orientation")
				}
				refresh()
			}
		}()
	}
	for th, item := range themeItems {
		go func() {
			for range item.ClickedCh {
				if err := t.SetTheme(th); err != nil {
					log.Error().Err(err).Msg("failed to set led theme")
				}
				refresh()
			}
		}()
	}

	go func() {
		ticker := time.NewTicker(statusRefresh)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				refresh()
			case <-mAddress.ClickedCh:
				if err := clipboard.Init(); err != nil {
					log.Error().Err(err).Msg("failed to initialize clipboard")
					continue
				}
				clipboard.Write(clipboard.FmtText, []byte(t.apiURL))
			case <-mOff.ClickedCh:
				if err := t.LEDOff(); err != nil {
					log.Error().Err(err).Msg("failed to turn led off")
				}
				refresh()
			case <-mAbout.ClickedCh:
				msg := "%s\nVersion v%s\n\nLicense: GPLv3"
				dialog.Message(msg, title, config.AppVersion).Title("About " + title).Info()
			case <-mQuit.ClickedCh:
				systray.Quit()
				return
			}
		}
	}()
}

// Run blocks until the user quits from the menu. exit runs after the tray
// is torn down.
func (t *Tray) Run(exit func()) {
	systray.Run(t.onReady, exit)
}
