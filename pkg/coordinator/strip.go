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

package coordinator

import (
	"context"

	"github.com/minidisplay/minidisplay-core/pkg/api/notifications"
	"github.com/minidisplay/minidisplay-core/pkg/devices/led"
	"github.com/minidisplay/minidisplay-core/pkg/errcode"
	"github.com/rs/zerolog/log"
)

func (a *AppState) applySettings(s led.Settings) error {
	if s.Theme == led.ThemeOff {
		return a.strip.SetOff()
	}
	return a.strip.Apply(s)
}

// writeLED sends s and commits it to the cache only on success. A failure
// leaves the cache untouched and marks the strip dirty, so the next render
// tick reapplies the last settings that are known to be wanted.
func (a *AppState) writeLED(ctx context.Context, op string, s led.Settings) error {
	if err := a.checkOpen(op); err != nil {
		return err
	}
	if a.strip == nil {
		return errcode.New(errcode.DeviceNotFound, op, "led strip disabled")
	}

	a.ledSeq.Lock()
	err := a.ledWorker.do(ctx, op, func() error {
		return a.applySettings(s)
	})
	a.statusMu.Lock()
	if err != nil {
		a.ledDirty = true
	} else {
		a.ledSettings = s
		a.ledDirty = false
	}
	a.statusMu.Unlock()
	a.ledSeq.Unlock()

	if err != nil {
		logDeviceError(err, "failed to write led settings")
		return err
	}

	log.Info().
		Stringer("theme", s.Theme).
		Uint8("intensity", s.Intensity).
		Uint8("speed", s.Speed).
		Msg("led settings applied")
	notifications.LEDChanged(a.notifications, a.ledStatus())
	return nil
}

// SetLED validates the values before any I/O.
func (a *AppState) SetLED(ctx context.Context, theme, intensity, speed uint8) error {
	s := led.Settings{Theme: led.Theme(theme), Intensity: intensity, Speed: speed}
	if err := s.Validate(); err != nil {
		return err
	}
	return a.writeLED(ctx, "set led", s)
}

// LEDOff turns the strip off. Cached intensity and speed are kept so the
// UI can offer them again.
func (a *AppState) LEDOff(ctx context.Context) error {
	s := a.LEDSettings()
	s.Theme = led.ThemeOff
	return a.writeLED(ctx, "led off", s)
}

func (a *AppState) reapplyLED(ctx context.Context) error {
	const op = "reapply led"
	if a.strip == nil {
		return nil
	}

	a.ledSeq.Lock()
	defer a.ledSeq.Unlock()

	a.statusMu.RLock()
	s := a.ledSettings
	dirty := a.ledDirty
	a.statusMu.RUnlock()
	if !dirty {
		return nil
	}

	err := a.ledWorker.do(ctx, op, func() error {
		return a.applySettings(s)
	})
	if err != nil {
		logDeviceError(err, "failed to reapply led settings")
		return err
	}

	a.statusMu.Lock()
	a.ledDirty = false
	a.statusMu.Unlock()
	log.Debug().Stringer("theme", s.Theme).Msg("led settings reapplied")
	return nil
}

// MarkLEDDirty records that the strip may have lost its settings, for
// example after the controller was replugged. The next render tick
// reapplies the cached settings.
func (a *AppState) MarkLEDDirty() {
	if a.strip == nil {
		return
	}
	a.statusMu.Lock()
	a.ledDirty = true
	a.statusMu.Unlock()
	log.Debug().Msg("led marked dirty")
}
