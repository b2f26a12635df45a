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

// Package orientation maps the four orientations offered to users onto the
// two orientations the panel firmware supports. The upside-down variants
// are produced in software by rotating pixel data 180 degrees.
package orientation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/minidisplay/minidisplay-core/pkg/errcode"
)

// Native panel resolution in landscape.
const (
	NativeWidth  uint16 = 320
	NativeHeight uint16 = 170
)

// Hardware selector bytes understood by the panel.
const (
	HardwareLandscape byte = 0x01
	HardwarePortrait  byte = 0x02
)

type Orientation uint8

const (
	Landscape Orientation = iota
	Portrait
	LandscapeUpsideDown
	PortraitUpsideDown
)

// All lists every orientation in declaration order.
var All = []Orientation{Landscape, Portrait, LandscapeUpsideDown, PortraitUpsideDown}

var names = map[Orientation]string{
	Landscape:           "landscape",
	Portrait:            "portrait",
	LandscapeUpsideDown: "landscape-upside-down",
	PortraitUpsideDown:  "portrait-upside-down",
}

func (o Orientation) String() string {
	if n, ok := names[o]; ok {
		return n
	}
	return fmt.Sprintf("orientation(%d)", uint8(o))
}

// Valid reports whether o is one of the four defined orientations.
func (o Orientation) Valid() bool {
	_, ok := names[o]
	return ok
}

// HardwareByte returns the selector byte sent in the orientation config
// frame. Upside-down variants share the byte of their upright counterpart.
func (o Orientation) HardwareByte() byte {
	if o.IsPortrait() {
		return HardwarePortrait
	}
	return HardwareLandscape
}

func (o Orientation) IsPortrait() bool {
	return o == Portrait || o == PortraitUpsideDown
}

// NeedsRotation is true for the variants the panel cannot display natively.
func (o Orientation) NeedsRotation() bool {
	return o == LandscapeUpsideDown || o == PortraitUpsideDown
}

// Dimensions returns the logical width and height of the canvas.
func (o Orientation) Dimensions() (width, height uint16) {
	if o.IsPortrait() {
		return NativeHeight, NativeWidth
	}
	return NativeWidth, NativeHeight
}

// Parse accepts the canonical names case-insensitively, with either hyphens
// or underscores as separators.
func Parse(s string) (Orientation, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for o, n := range names {
		if n == norm {
			return o, nil
		}
	}
	return Landscape, errcode.New(
		errcode.InvalidArgument,
		"parse orientation",
		fmt.Sprintf("invalid orientation %q", s),
	)
}

func (o Orientation) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, errcode.New(errcode.InvalidArgument, "marshal orientation", o.String())
	}
	return []byte(o.String()), nil
}

func (o *Orientation) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// Rotate180 reverses pixels in place, which turns a row-major image upside
// down and mirrors it left to right. Applying it twice restores the input.
func Rotate180[T any](pixels []T) {
	slices.Reverse(pixels)
}

// Rotated returns a rotated copy of pixels, leaving the input untouched.
func Rotated[T any](pixels []T) []T {
	out := slices.Clone(pixels)
	Rotate180(out)
	return out
}
