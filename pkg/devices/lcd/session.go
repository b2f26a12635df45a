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

// Package lcd drives the USB HID LCD panel: frame encoding, the session that
// owns the device handle, and the headless fallback used when the panel is
// absent.
package lcd

import (
	"fmt"
	"time"

	"github.com/minidisplay/minidisplay-core/pkg/errcode"
	"github.com/minidisplay/minidisplay-core/pkg/framebuffer"
	"github.com/minidisplay/minidisplay-core/pkg/orientation"
	"github.com/rs/zerolog/log"
)

// Device is the raw HID handle. *hid.Device satisfies it.
type Device interface {
	Write(p []byte) (int, error)
	Close() error
}

// Session writes frames to one device handle. It holds no orientation
// state: callers pass the orientation with every transfer. It expects a
// single writer at a time.
type Session struct {
	dev Device
}

func NewSession(dev Device) *Session {
	return &Session{dev: dev}
}

func (*Session) Connected() bool { return true }

func (s *Session) write(op string, frame []byte) error {
	n, err := s.dev.Write(frame)
	if err != nil {
		return errcode.Wrap(errcode.Transport, op, err)
	}
	if n < len(frame) {
		return errcode.New(
			errcode.Transport,
			op,
			fmt.Sprintf("short write: %d of %d bytes", n, len(frame)),
		)
	}
	return nil
}

// SetOrientation sends the hardware selector.
func (s *Session) SetOrientation(o orientation.Orientation) error {
	if err := s.write("lcd orientation", OrientationFrame(o)); err != nil {
		return err
	}
	log.Debug().Stringer("orientation", o).Msg("lcd: orientation set")
	return nil
}

// Heartbeat sends the current UTC time of day, which also keeps the panel
// from falling back to its built-in screen.
func (s *Session) Heartbeat(now time.Time) error {
	utc := now.UTC()
	return s.write("lcd heartbeat", HeartbeatFrame(
		uint8(utc.Hour()),   //nolint:gosec // 0-23
		uint8(utc.Minute()), //nolint:gosec // 0-59
		uint8(utc.Second()), //nolint:gosec // 0-59
	))
}

// Redraw sends a full screen laid out for o. The caller's slice is never
// modified.
func (s *Session) Redraw(o orientation.Orientation, pixels []uint16) error {
	if o.NeedsRotation() {
		pixels = orientation.Rotated(pixels)
	}
	return s.send(pixels)
}

func (s *Session) send(pixels []uint16) error {
	frames, err := RedrawFrames(pixels)
	if err != nil {
		return err
	}
	for i, f := range frames {
		if err := s.write("lcd redraw", f); err != nil {
			return fmt.Errorf("chunk %d of %d: %w", i+1, len(frames), err)
		}
	}
	return nil
}

// Refresh updates one rectangle given in o's coordinates. For upside-down
// orientations the pixels are rotated and the rectangle is mirrored to the
// opposite corner.
func (s *Session) Refresh(o orientation.Orientation, x, y uint16, width, height uint8, pixels []uint16) error {
	if o.NeedsRotation() {
		w, h := o.Dimensions()
		pixels = orientation.Rotated(pixels)
		x = mirror(x, uint16(width), w)
		y = mirror(y, uint16(height), h)
	}
	return s.write("lcd refresh", RefreshFrame(x, y, width, height, pixels))
}

func mirror(pos, size, extent uint16) uint16 {
	if pos+size > extent {
		return 0
	}
	return extent - pos - size
}

// Clear redraws the whole screen with one colour.
func (s *Session) Clear(c framebuffer.RGB565) error {
	fb := framebuffer.New(int(orientation.NativeWidth), int(orientation.NativeHeight))
	fb.Fill(c)
	return s.send(fb.Pix)
}

func (s *Session) Close() error {
	if err := s.dev.Close(); err != nil {
		return fmt.Errorf("failed to close lcd device: %w", err)
	}
	return nil
}
