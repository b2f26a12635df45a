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

package led

import (
	"errors"
	"fmt"
	"os"

	"github.com/minidisplay/minidisplay-core/pkg/errcode"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"go.bug.st/serial"
)

// DefaultPort is where the strip controller usually enumerates on Linux.
const DefaultPort = "/dev/ttyUSB0"

// Port is the subset of serial.Port used per command.
type Port interface {
	Write(p []byte) (int, error)
	Drain() error
	Close() error
}

// PortFactory opens a serial port. Tests replace it to avoid hardware.
type PortFactory func(path string, mode *serial.Mode) (Port, error)

// DefaultPortFactory opens a real serial port.
func DefaultPortFactory(path string, mode *serial.Mode) (Port, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return port, nil
}

// Session sends frames to the strip. The port is opened for every command
// and closed again before returning, so a replugged controller is picked up
// without any reconnect logic.
type Session struct {
	fs       afero.Fs
	open     PortFactory
	path     string
	baudRate int
}

type Option func(*Session)

// WithFs replaces the filesystem used to check the port path exists.
func WithFs(fs afero.Fs) Option {
	return func(s *Session) { s.fs = fs }
}

// WithPortFactory replaces the function used to open the serial port.
func WithPortFactory(f PortFactory) Option {
	return func(s *Session) { s.open = f }
}

func NewSession(path string, baudRate int, opts ...Option) *Session {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	s := &Session{
		fs:       afero.NewOsFs(),
		open:     DefaultPortFactory,
		path:     path,
		baudRate: baudRate,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Path() string { return s.path }

// SetTheme validates and sends a full settings frame.
func (s *Session) SetTheme(theme Theme, intensity, speed uint8) error {
	return s.Apply(Settings{Theme: theme, Intensity: intensity, Speed: speed})
}

// Apply validates s before touching the port.
func (s *Session) Apply(settings Settings) error {
	frame, err := Encode(settings)
	if err != nil {
		return err
	}
	return s.send(frame)
}

// SetOff sends the fixed off frame.
func (s *Session) SetOff() error {
	return s.send(OffFrame())
}

func (s *Session) send(frame [FrameSize]byte) error {
	const op = "led write"

	if _, err := s.fs.Stat(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return errcode.NotFound(op, s.path, err)
		}
		return &errcode.E{C: errcode.Transport, Op: op, Path: s.path, Err: err}
	}

	port, err := s.open(s.path, &serial.Mode{
		BaudRate: s.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return classify(op, s.path, err)
	}
	defer func() {
		if closeErr := port.Close(); closeErr != nil {
			log.Debug().Err(closeErr).Str("port", s.path).Msg("led: failed to close serial port")
		}
	}()

	n, err := port.Write(frame[:])
	if err != nil {
		return classify(op, s.path, err)
	}
	if n != FrameSize {
		return &errcode.E{
			C:    errcode.Transport,
			Op:   op,
			Path: s.path,
			Msg:  fmt.Sprintf("short write: %d of %d bytes", n, FrameSize),
		}
	}
	if err := port.Drain(); err != nil {
		return classify(op, s.path, err)
	}

	log.Debug().Str("port", s.path).Hex("frame", frame[:]).Msg("led: frame sent")
	return nil
}

// classify maps serial errors onto the error taxonomy. A port that vanished
// between the path check and the open is still reported as not found.
func classify(op, path string, err error) error {
	var portErrPtr *serial.PortError
	if errors.As(err, &portErrPtr) && portErrPtr.Code() == serial.PortNotFound {
		return errcode.NotFound(op, path, err)
	}
	var portErr serial.PortError
	if errors.As(err, &portErr) && portErr.Code() == serial.PortNotFound {
		return errcode.NotFound(op, path, err)
	}
	if errors.Is(err, os.ErrNotExist) {
		return errcode.NotFound(op, path, err)
	}
	return &errcode.E{C: errcode.Transport, Op: op, Path: path, Err: err}
}
