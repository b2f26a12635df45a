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

package lcd

import (
	"time"

	"github.com/minidisplay/minidisplay-core/pkg/framebuffer"
	"github.com/minidisplay/minidisplay-core/pkg/orientation"
)

// Link is the panel as seen by the coordinator. It is chosen once at startup:
// a *Session when the panel opened, Headless otherwise.
type Link interface {
	Connected() bool
	SetOrientation(o orientation.Orientation) error
	Heartbeat(now time.Time) error
	Redraw(o orientation.Orientation, pixels []uint16) error
	Refresh(o orientation.Orientation, x, y uint16, width, height uint8, pixels []uint16) error
	Clear(c framebuffer.RGB565) error
	Close() error
}

var (
	_ Link = (*Session)(nil)
	_ Link = Headless{}
)

// Headless accepts every operation without touching hardware.
type Headless struct{}

func (Headless) Connected() bool { return false }
func (Headless) SetOrientation(orientation.Orientation) error { return nil }
func (Headless) Heartbeat(time.Time) error { return nil }
func (Headless) Redraw(orientation.Orientation, []uint16) error { return nil }
func (Headless) Refresh(orientation.Orientation, uint16, uint16, uint8, uint8, []uint16) error {
	return nil
}
func (Headless) Clear(framebuffer.RGB565) error { return nil }
func (Headless) Close() error { return nil }
