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
	"image"
	"image/color"
	"image/draw"

	"github.com/minidisplay/minidisplay-core/pkg/framebuffer"
	"periph.io/x/conn/v3/display"
)

// WithCanvas gives fn exclusive access to the canvas and marks it dirty.
// fn must not keep fb or reshape it.
func (a *AppState) WithCanvas(fn func(fb *framebuffer.Framebuffer)) {
	a.canvasMu.Lock()
	defer a.canvasMu.Unlock()
	fn(a.canvas)
	a.gen.Add(1)
}

// ReadCanvas gives fn shared read access to the canvas.
func (a *AppState) ReadCanvas(fn func(fb *framebuffer.Framebuffer)) {
	a.canvasMu.RLock()
	defer a.canvasMu.RUnlock()
	fn(a.canvas)
}

// MutateCanvas is WithCanvas returning the closure's value.
func MutateCanvas[T any](a *AppState, fn func(fb *framebuffer.Framebuffer) T) T {
	var out T
	a.WithCanvas(func(fb *framebuffer.Framebuffer) {
		out = fn(fb)
	})
	return out
}

// InspectCanvas is ReadCanvas returning the closure's value.
func InspectCanvas[T any](a *AppState, fn func(fb *framebuffer.Framebuffer) T) T {
	var out T
	a.ReadCanvas(func(fb *framebuffer.Framebuffer) {
		out = fn(fb)
	})
	return out
}

// Drawer exposes the canvas as a periph display. Draws land in memory and
// reach the panel on the next render tick.
type Drawer struct {
	a *AppState
}

var _ display.Drawer = (*Drawer)(nil)

func (a *AppState) Drawer() *Drawer {
	return &Drawer{a: a}
}

func (*Drawer) String() string {
	return "minidisplay.Canvas"
}

// Halt is a no-op; the panel is owned by the coordinator.
func (*Drawer) Halt() error {
	return nil
}

func (*Drawer) ColorModel() color.Model {
	return framebuffer.RGB565Model
}

func (d *Drawer) Bounds() image.Rectangle {
	return InspectCanvas(d.a, func(fb *framebuffer.Framebuffer) image.Rectangle {
		return fb.Bounds()
	})
}

func (d *Drawer) Draw(dst image.Rectangle, src image.Image, sp image.Point) error {
	if err := d.a.checkOpen("draw"); err != nil {
		return err
	}
	d.a.WithCanvas(func(fb *framebuffer.Framebuffer) {
		draw.Draw(fb, dst.Intersect(fb.Bounds()), src, sp, draw.Src)
	})
	return nil
}
