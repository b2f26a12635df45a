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

import "time"

// MinReliableYear is the earliest year considered valid for the system
// clock. Mini PCs with a flat RTC battery boot into 1970 or 2000 until NTP
// catches up, and the panel would show that time.
const MinReliableYear = 2024

// IsClockReliable reports whether t looks like a set clock.
func IsClockReliable(t time.Time) bool {
	return t.Year() >= MinReliableYear
}
