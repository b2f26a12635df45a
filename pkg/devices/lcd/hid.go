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
	"fmt"

	"github.com/minidisplay/minidisplay-core/pkg/errcode"
	"github.com/minidisplay/minidisplay-core/pkg/orientation"
	"github.com/rs/zerolog/log"
	"github.com/sstallion/go-hid"
)

// Default USB identifiers of the panel's HID interface.
const (
	DefaultVendorID  uint16 = 0x0416
	DefaultProductID uint16 = 0x5302
)

// Opener opens the raw HID device for a vendor/product pair.
type Opener func(vendorID, productID uint16) (Device, error)

// OpenHID opens the first matching device through hidapi.
func OpenHID(vendorID, productID uint16) (Device, error) {
	if err := hid.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize hidapi: %w", err)
	}
	dev, err := hid.OpenFirst(vendorID, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to open hid device %04x:%04x: %w", vendorID, productID, err)
	}
	return dev, nil
}

// Open returns a connected Session when the panel opens and accepts the
// initial orientation. Otherwise it returns Headless together with a
// DeviceNotFound error, which callers log and carry on from.
func Open(open Opener, vendorID, productID uint16, o orientation.Orientation) (Link, error) {
	if open == nil {
		open = OpenHID
	}
	id := fmt.Sprintf("%04x:%04x", vendorID, productID)

	dev, err := open(vendorID, productID)
	if err != nil {
		return Headless{}, errcode.NotFound("lcd open", id, err)
	}

	s := NewSession(dev)
	if err := s.SetOrientation(o); err != nil {
		if closeErr := dev.Close(); closeErr != nil {
			log.Debug().Err(closeErr).Msg("lcd: failed to close device after init failure")
		}
		return Headless{}, errcode.NotFound("lcd open", id, err)
	}

	log.Info().Str("device", id).Stringer("orientation", o).Msg("lcd panel connected")
	return s, nil
}
