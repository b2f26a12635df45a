//go:build linux

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

package helpers

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// usbTopologyPattern matches port paths like "1-2" or "1-2.3.1".
var usbTopologyPattern = regexp.MustCompile(`^\d+-[\d.]+$`)

// GetUSBTopologyPath resolves a device node such as /dev/ttyUSB0 to the
// physical USB port it is plugged into. The result is stable across reboots
// while the controller stays in the same socket. Empty when unknown.
func GetUSBTopologyPath(devicePath string) string {
	if devicePath == "" {
		return ""
	}

	info, err := os.Stat(devicePath)
	if err != nil {
		log.Debug().Str("path", devicePath).Err(err).Msg("cannot stat device")
		return ""
	}
	stat, ok := info.Sys().(*unix.Stat_t)
	if !ok {
		return ""
	}

	rdev := uint64(stat.Rdev) //nolint:unconvert // Rdev width differs per arch
	sysPath := fmt.Sprintf("/sys/dev/char/%d:%d", unix.Major(rdev), unix.Minor(rdev))
	resolved, err := filepath.EvalSymlinks(sysPath)
	if err != nil {
		log.Debug().Str("path", devicePath).Str("sysPath", sysPath).Err(err).
			Msg("cannot resolve sysfs symlink")
		return ""
	}
	return extractUSBTopology(resolved)
}

// extractUSBTopology walks up a sysfs path to the deepest hub port, e.g.
// .../usb1/1-2/1-2.3/1-2.3:1.0/tty/ttyUSB0 gives "1-2.3".
func extractUSBTopology(sysfsPath string) string {
	for current := sysfsPath; current != "/" && current != "." && current != ""; current = filepath.Dir(current) {
		if base := filepath.Base(current); usbTopologyPattern.MatchString(base) {
			return base
		}
	}
	return ""
}
