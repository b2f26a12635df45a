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
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/minidisplay/minidisplay-core/pkg/api/notifications"
	"github.com/minidisplay/minidisplay-core/pkg/devices/lcd"
	"github.com/minidisplay/minidisplay-core/pkg/errcode"
	"github.com/minidisplay/minidisplay-core/pkg/framebuffer"
	"github.com/minidisplay/minidisplay-core/pkg/helpers"
	"github.com/minidisplay/minidisplay-core/pkg/orientation"
	"github.com/rs/zerolog/log"
)

// SetOrientation parses text, sends the hardware selector and, once the
// panel accepted it, reshapes the canvas to the new dimensions. The canvas
// is marked dirty so the next render redraws with the new rotation.
//
// When the selector write fails or times out the orientation stays as it
// was. The write may still land late, so the next transfer resends the
// current selector before any pixels.
func (a *AppState) SetOrientation(ctx context.Context, text string) error {
	const op = "set orientation"
	o, err := orientation.Parse(text)
	if err != nil {
		return err
	}
	if err := a.checkOpen(op); err != nil {
		return err
	}

	a.lcdSeq.Lock()
	err = a.lcdWorker.do(ctx, op, func() error {
		return a.lcd.SetOrientation(o)
	})
	if err != nil {
		a.orientResync = true
		a.canvasMu.Lock()
		a.gen.Add(1)
		a.canvasMu.Unlock()
		a.lcdSeq.Unlock()
		logDeviceError(err, "failed to set orientation")
		return err
	}
	a.orientResync = false

	w, h := o.Dimensions()
	a.canvasMu.Lock()
	if reshapeErr := a.canvas.Reshape(int(w), int(h)); reshapeErr != nil {
		log.Error().Err(reshapeErr).Msg("failed to reshape canvas")
	}
	a.gen.Add(1)
	a.canvasMu.Unlock()

	a.statusMu.Lock()
	a.orient = o
	a.statusMu.Unlock()
	a.lcdSeq.Unlock()

	log.Info().Stringer("orientation", o).Msg("orientation changed")
	notifications.DisplayChanged(a.notifications, a.displayStatus())
	return nil
}

// transfer runs send on the lcd worker with the coordinator's orientation,
// resending the selector first if an earlier change did not complete.
// Callers hold lcdSeq.
func (a *AppState) transfer(ctx context.Context, op string, send func(o orientation.Orientation) error) error {
	o := a.Orientation()
	resync := a.orientResync
	err := a.lcdWorker.do(ctx, op, func() error {
		if resync {
			if err := a.lcd.SetOrientation(o); err != nil {
				return err
			}
		}
		return send(o)
	})
	if err == nil && resync {
		a.orientResync = false
		log.Info().Stringer("orientation", o).Msg("panel orientation resynced")
	}
	return err
}

// ClearDisplay fills the canvas with a colour and redraws immediately. A
// failed redraw leaves the canvas dirty for the next tick.
func (a *AppState) ClearDisplay(ctx context.Context, hex string) error {
	const op = "clear display"
	c, err := framebuffer.ParseHexColor(hex)
	if err != nil {
		return err
	}
	if err := a.checkOpen(op); err != nil {
		return err
	}

	a.canvasMu.Lock()
	a.canvas.Fill(c)
	a.gen.Add(1)
	a.canvasMu.Unlock()

	err = a.render(ctx)
	notifications.DisplayChanged(a.notifications, a.displayStatus())
	return err
}

// RenderFrame pushes the canvas to the panel when it changed since the last
// successful redraw, and reapplies the cached LED settings when the strip
// may be out of sync. Both are attempted even if one fails.
func (a *AppState) RenderFrame(ctx context.Context) error {
	if err := a.checkOpen("render frame"); err != nil {
		return err
	}
	var ledErr error
	if a.IsLEDDirty() {
		ledErr = a.reapplyLED(ctx)
	}
	return errors.Join(a.render(ctx), ledErr)
}

func (a *AppState) setInFlight(v bool) {
	a.statusMu.Lock()
	a.inFlight = v
	a.statusMu.Unlock()
}

func (a *AppState) render(ctx context.Context) error {
	const op = "redraw"

	a.lcdSeq.Lock()
	defer a.lcdSeq.Unlock()

	a.canvasMu.RLock()
	gen := a.gen.Load()
	if gen == a.renderedGen.Load() {
		a.canvasMu.RUnlock()
		return nil
	}
	pixels := a.canvas.Snapshot()
	a.canvasMu.RUnlock()

	a.setInFlight(true)
	err := a.transfer(ctx, op, func(o orientation.Orientation) error {
		return a.lcd.Redraw(o, pixels)
	})
	if err == nil {
		a.renderedGen.Store(gen)
	}
	a.setInFlight(false)

	if err != nil {
		logDeviceError(err, "failed to redraw display")
		return err
	}
	log.Trace().Uint64("gen", gen).Msg("display redrawn")
	return nil
}

// RefreshRegion sends one rectangle of the canvas as a partial refresh. It
// does not affect the dirty state; the next full redraw still happens.
func (a *AppState) RefreshRegion(ctx context.Context, r image.Rectangle) error {
	const op = "refresh region"
	if err := a.checkOpen(op); err != nil {
		return err
	}
	if r.Dx() <= 0 || r.Dy() <= 0 || r.Dx() > 255 || r.Dy() > 255 {
		return errcode.New(errcode.InvalidArgument, op,
			fmt.Sprintf("region %s must be 1-255 pixels on each side", r))
	}
	if r.Dx()*r.Dy()*2 > lcd.PayloadSize {
		return errcode.New(errcode.InvalidArgument, op,
			fmt.Sprintf("region %s exceeds one %d byte payload", r, lcd.PayloadSize))
	}

	a.lcdSeq.Lock()
	defer a.lcdSeq.Unlock()

	a.canvasMu.RLock()
	if !r.In(a.canvas.Bounds()) {
		bounds := a.canvas.Bounds()
		a.canvasMu.RUnlock()
		return errcode.New(errcode.InvalidArgument, op,
			fmt.Sprintf("region %s outside canvas %s", r, bounds))
	}
	pixels := make([]uint16, 0, r.Dx()*r.Dy())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			pixels = append(pixels, uint16(a.canvas.Pixel(x, y)))
		}
	}
	a.canvasMu.RUnlock()

	return a.transfer(ctx, op, func(o orientation.Orientation) error {
		return a.lcd.Refresh(
			o,
			uint16(r.Min.X), //nolint:gosec // bounded by canvas
			uint16(r.Min.Y), //nolint:gosec // bounded by canvas
			uint8(r.Dx()),   //nolint:gosec // checked above
			uint8(r.Dy()),   //nolint:gosec // checked above
			pixels,
		)
	})
}

// SendHeartbeat sends the current time, which keeps the panel on the host
// picture. The time is read when the worker runs the write, not when the
// call is queued.
func (a *AppState) SendHeartbeat(ctx context.Context) error {
	const op = "heartbeat"
	if err := a.checkOpen(op); err != nil {
		return err
	}

	a.lcdSeq.Lock()
	defer a.lcdSeq.Unlock()
	err := a.lcdWorker.do(ctx, op, func() error {
		now := a.clock.Now()
		if !helpers.IsClockReliable(now) && a.clockWarned.CompareAndSwap(false, true) {
			log.Warn().Time("now", now).Msg("system clock looks unset, panel will show a wrong time")
		}
		return a.lcd.Heartbeat(now)
	})
	if err != nil {
		logDeviceError(err, "failed to send heartbeat")
	}
	return err
}

// Screen is a PNG snapshot of the canvas.
type Screen struct {
	PNG    []byte
	Width  int
	Height int
}

// ScreenPNG encodes the canvas as an 8-bit RGBA PNG in the current
// orientation's dimensions. The canvas lock is only held for the copy.
func (a *AppState) ScreenPNG() (Screen, error) {
	a.canvasMu.RLock()
	fb := a.canvas.Clone()
	a.canvasMu.RUnlock()

	var buf bytes.Buffer
	if err := fb.EncodePNG(&buf); err != nil {
		return Screen{}, fmt.Errorf("failed to encode screen: %w", err)
	}
	return Screen{PNG: buf.Bytes(), Width: fb.Width(), Height: fb.Height()}, nil
}
