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

package methods

import (
	"encoding/json"

	"github.com/minidisplay/minidisplay-core/pkg/api/validation"
	"github.com/minidisplay/minidisplay-core/pkg/errcode"
)

// decodeParams unmarshals and validates params, tagging any failure as an
// invalid argument so the server can answer with -32602.
func decodeParams[T any](op string, params json.RawMessage, dest *T) error {
	if err := validation.ValidateAndUnmarshal(params, dest); err != nil {
		return errcode.Wrap(errcode.InvalidArgument, op, err)
	}
	return nil
}
