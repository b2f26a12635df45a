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

// Package led drives the addressable LED strip behind the enclosure's serial
// controller. Every command is a single 5-byte frame.
package led

import (
	"fmt"

	"github.com/minidisplay/minidisplay-core/pkg/errcode"
)

// FrameSize is the length of every command frame.
const FrameSize = 5

// Signature opens every frame.
const Signature byte = 0xFA

// DefaultBaudRate of the strip controller.
const DefaultBaudRate = 10000

type Theme uint8

const (
	ThemeRainbow    Theme = 1
	ThemeBreathing  Theme = 2
	ThemeColorCycle Theme = 3
	ThemeOff        Theme = 4
	ThemeAuto       Theme = 5
)

var themeNames = map[Theme]string{
	ThemeRainbow:    "rainbow",
	ThemeBreathing:  "breathing",
	ThemeColorCycle: "color-cycle",
	ThemeOff:        "off",
	ThemeAuto:       "auto",
}

func (t Theme) String() string {
	if n, ok := themeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("theme(%d)", uint8(t))
}

func (t Theme) Valid() bool {
	_, ok := themeNames[t]
	return ok
}

// Value bounds for intensity and speed, in user scale.
const (
	MinValue uint8 = 1
	MaxValue uint8 = 5
)

// Settings is the strip state in user scale: higher intensity is brighter
// and higher speed is faster. The wire encoding inverts both.
type Settings struct {
	Theme     Theme `json:"theme" toml:"theme"`
	Intensity uint8 `json:"intensity" toml:"intensity"`
	Speed     uint8 `json:"speed" toml:"speed"`
}

// DefaultSettings is what the strip is set to before any request arrives.
var DefaultSettings = Settings{Theme: ThemeRainbow, Intensity: 3, Speed: 3}

func (s Settings) Validate() error {
	if !s.Theme.Valid() {
		return errcode.New(errcode.InvalidArgument, "led settings",
			fmt.Sprintf("invalid theme %d, want 1-5", s.Theme))
	}
	if _, err := FixValue(s.Intensity); err != nil {
		return fmt.Errorf("intensity: %w", err)
	}
	if _, err := FixValue(s.Speed); err != nil {
		return fmt.Errorf("speed: %w", err)
	}
	return nil
}

// FixValue converts a user-scale value to the controller's inverted scale.
func FixValue(v uint8) (uint8, error) {
	if v < MinValue || v > MaxValue {
		return 0, errcode.New(errcode.InvalidArgument, "led value",
			fmt.Sprintf("invalid value %d, want 1-5", v))
	}
	return 6 - v, nil
}

// Checksum is the 8-bit wrapping sum of the first four frame bytes.
func Checksum(b []byte) byte {
	var sum byte
	for i := 0; i < 4 && i < len(b); i++ {
		sum += b[i]
	}
	return sum
}

// Encode builds the frame for s.
func Encode(s Settings) ([FrameSize]byte, error) {
	var f [FrameSize]byte
	if err := s.Validate(); err != nil {
		return f, err
	}
	intensity, _ := FixValue(s.Intensity)
	speed, _ := FixValue(s.Speed)
	f[0] = Signature
	f[1] = byte(s.Theme)
	f[2] = intensity
	f[3] = speed
	f[4] = Checksum(f[:4])
	return f, nil
}

// OffFrame turns the strip off regardless of any cached intensity or speed.
func OffFrame() [FrameSize]byte {
	f := [FrameSize]byte{Signature, byte(ThemeOff), 0x05, 0x05}
	f[4] = Checksum(f[:4])
	return f
}
