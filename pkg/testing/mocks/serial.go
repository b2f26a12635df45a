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

package mocks

import (
	"fmt"

	"github.com/stretchr/testify/mock"
)

// MockSerialPort is a mock implementation of led.Port using testify/mock.
type MockSerialPort struct {
	mock.Mock
}

func (m *MockSerialPort) Write(p []byte) (int, error) {
	// copy so later reuse of the caller's buffer does not change recorded calls
	buf := append([]byte(nil), p...)
	args := m.Called(buf)
	if err := args.Error(1); err != nil {
		return args.Int(0), fmt.Errorf("mock operation failed: %w", err)
	}
	return args.Int(0), nil
}

func (m *MockSerialPort) Drain() error {
	args := m.Called()
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock operation failed: %w", err)
	}
	return nil
}

func (m *MockSerialPort) Close() error {
	args := m.Called()
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock operation failed: %w", err)
	}
	return nil
}

// NewMockSerialPort returns a port that accepts one full frame write.
func NewMockSerialPort(frameSize int) *MockSerialPort {
	m := &MockSerialPort{}
	m.On("Write", mock.Anything).Return(frameSize, nil)
	m.On("Drain").Return(nil)
	m.On("Close").Return(nil)
	return m
}
