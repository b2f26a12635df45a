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
	"os"
	"path/filepath"
	"sync"

	"github.com/minidisplay/minidisplay-core/pkg/config"
)

const (
	LogFile = "minidisplay.log"
	PidFile = "minidisplay.pid"
	// UserDir next to the executable switches to portable mode: config,
	// logs and the pid file all live inside it.
	UserDir = "user"
)

var (
	userDirOnce        sync.Once
	userDirCache       string
	userDirCacheExists bool
)

func ExeDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Dir(exe)
}

// HasUserDir reports whether a portable user dir exists next to the
// executable. The result is cached for the process lifetime.
func HasUserDir() (string, bool) {
	userDirOnce.Do(func() {
		exeDir := ExeDir()
		if exeDir == "" {
			return
		}
		dir := filepath.Join(exeDir, UserDir)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			userDirCache = dir
			userDirCacheExists = true
		}
	})
	return userDirCache, userDirCacheExists
}

// ConfigDir is where config.toml is looked up.
func ConfigDir() string {
	if v, ok := HasUserDir(); ok {
		return v
	}
	dir, err := config.DefaultDir()
	if err != nil {
		return filepath.Join(os.TempDir(), config.AppDir)
	}
	return dir
}

// TempDir holds the log file and the service pid file.
func TempDir() string {
	if v, ok := HasUserDir(); ok {
		return v
	}
	return filepath.Join(os.TempDir(), config.AppDir)
}
