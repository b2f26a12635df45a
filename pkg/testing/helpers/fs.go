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
	"path/filepath"

	"github.com/minidisplay/minidisplay-core/pkg/config"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
)

// FSHelper provides utilities for filesystem mocking in tests
type FSHelper struct {
	Fs afero.Fs
}

// NewMemoryFS creates a new in-memory filesystem for testing
func NewMemoryFS() *FSHelper {
	return &FSHelper{
		Fs: afero.NewMemMapFs(),
	}
}

// CreateConfigFile writes vals as TOML to path.
//
//nolint:gocritic // config values are passed by value on purpose
func (h *FSHelper) CreateConfigFile(path string, vals config.Values) error {
	data, err := toml.Marshal(vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := h.Fs.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for config file: %w", err)
	}
	if err := afero.WriteFile(h.Fs, path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// CreateDeviceNode makes path exist so the LED session treats the serial
// port as present.
func (h *FSHelper) CreateDeviceNode(path string) error {
	if err := h.Fs.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create device directory: %w", err)
	}
	if err := afero.WriteFile(h.Fs, path, nil, 0o600); err != nil {
		return fmt.Errorf("failed to create device node: %w", err)
	}
	return nil
}

// FileExists reports whether path exists.
func (h *FSHelper) FileExists(path string) bool {
	exists, err := afero.Exists(h.Fs, path)
	return err == nil && exists
}
