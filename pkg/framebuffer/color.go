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

package framebuffer

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/minidisplay/minidisplay-core/pkg/errcode"
)

// RGB565 is a 16-bit packed colour: 5 bits red, 6 bits green, 5 bits blue.
type RGB565 uint16

// Common colours.
const (
	Black RGB565 = 0x0000
	White RGB565 = 0xFFFF
	Red   RGB565 = 0xF800
	Green RGB565 = 0x07E0
	Blue  RGB565 = 0x001F
)

// Pack converts 8-bit channels to RGB565 by truncating the low bits.
func Pack(r, g, b uint8) RGB565 {
	return RGB565(uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3))
}

// RGB8 expands the colour back to 8-bit channels, replicating the high bits
// into the low ones so full scale maps to 0xFF.
func (c RGB565) RGB8() (r, g, b uint8) {
	r5 := uint8(c >> 11 & 0x1F)
	g6 := uint8(c >> 5 & 0x3F)
	b5 := uint8(c & 0x1F)
	return r5<<3 | r5>>2, g6<<2 | g6>>4, b5<<3 | b5>>2
}

// RGBA implements color.Color.
func (c RGB565) RGBA() (r, g, b, a uint32) {
	r8, g8, b8 := c.RGB8()
	r = uint32(r8) * 0x101
	g = uint32(g8) * 0x101
	b = uint32(b8) * 0x101
	return r, g, b, 0xFFFF
}

func (c RGB565) String() string {
	r, g, b := c.RGB8()
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

func toRGB565(c color.Color) color.Color {
	if p, ok := c.(RGB565); ok {
		return p
	}
	r, g, b, _ := c.RGBA()
	return Pack(uint8(r>>8), uint8(g>>8), uint8(b>>8))
}

// RGB565Model converts any colour to RGB565. Alpha is discarded.
var RGB565Model = color.ModelFunc(toRGB565)

// ParseHexColor parses "RRGGBB" or "#RRGGBB". Anything else, including the
// 3-digit shorthand, is rejected.
func ParseHexColor(s string) (RGB565, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return Black, errcode.New(
			errcode.InvalidArgument,
			"parse color",
			fmt.Sprintf("color %q must be 6 hex digits", s),
		)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Black, errcode.New(
			errcode.InvalidArgument,
			"parse color",
			fmt.Sprintf("color %q is not hexadecimal", s),
		)
	}
	return Pack(uint8(v>>16), uint8(v>>8), uint8(v)), nil
}
