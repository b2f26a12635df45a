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

package notifications

import (
	"github.com/minidisplay/minidisplay-core/pkg/api/models"
	"github.com/rs/zerolog/log"
)

// sendNotification never blocks. A full channel means the broadcaster is
// behind and the update is dropped; the next change or a status call will
// catch clients up.
func sendNotification(ns chan<- models.Notification, method string, payload any) {
	select {
	case ns <- models.Notification{Method: method, Params: payload}:
	default:
		log.Warn().Str("method", method).Msg("notification channel full, dropping notification")
	}
}

func DisplayChanged(ns chan<- models.Notification, payload models.DisplayResponse) {
	sendNotification(ns, models.NotificationDisplayChanged, payload)
}

func LEDChanged(ns chan<- models.Notification, payload models.LEDResponse) {
	sendNotification(ns, models.NotificationLEDChanged, payload)
}
