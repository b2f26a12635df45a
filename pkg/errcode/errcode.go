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

// Package errcode defines the failure taxonomy shared by the device codecs,
// sessions, coordinator and API.
package errcode

import (
	"errors"
	"strings"
)

// Code is a stable error identifier. It is comparable and implements error,
// so errors.Is(err, errcode.Transport) works on any wrapped *E.
type Code string

func (c Code) Error() string { return string(c) }

const (
	// DeviceNotFound means the peripheral is absent: the LCD could not be
	// opened at startup, or the LED serial path does not exist.
	DeviceNotFound Code = "device_not_found"
	// Transport is an I/O failure while talking to a present device.
	Transport Code = "transport"
	// InvalidArgument is a request rejected before any I/O happened.
	InvalidArgument Code = "invalid_argument"
	// SizeMismatch is a pixel source whose length does not match the target.
	SizeMismatch Code = "size_mismatch"
	// Timeout is device I/O that did not complete within the configured bound.
	Timeout Code = "timeout"
	// Closed is a request made after the coordinator was shut down.
	Closed Code = "closed"

	// Error is the fallback for errors carrying no code.
	Error Code = "error"
)

// E wraps a Code with the operation, device path and cause.
type E struct {
	Err  error
	C    Code
	Op   string
	Path string
	Msg  string
}

func (e *E) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	sb.WriteString(string(e.C))
	if e.Path != "" {
		sb.WriteString(" (")
		sb.WriteString(e.Path)
		sb.WriteString(")")
	}
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *E) Unwrap() error { return e.Err }

// Code returns the error's code.
func (e *E) Code() Code { return e.C }

// Is matches a bare Code target so callers can test the class of a wrapped
// error without unwrapping it themselves.
func (e *E) Is(target error) bool {
	var c Code
	if errors.As(target, &c) {
		return c == e.C
	}
	return false
}

// New returns an error with a code, operation and message.
func New(c Code, op, msg string) *E {
	return &E{C: c, Op: op, Msg: msg}
}

// Wrap returns an error with a code and operation wrapping err.
func Wrap(c Code, op string, err error) *E {
	return &E{C: c, Op: op, Err: err}
}

// NotFound returns a DeviceNotFound error for a device path.
func NotFound(op, path string, err error) *E {
	return &E{C: DeviceNotFound, Op: op, Path: path, Err: err}
}

// Of extracts the Code from an error chain, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return ""
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return Error
}
