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
	"slices"
	"time"

	"github.com/minidisplay/minidisplay-core/pkg/framebuffer"
	"github.com/minidisplay/minidisplay-core/pkg/orientation"
	"github.com/stretchr/testify/mock"
)

// MockLCDLink is a mock implementation of lcd.Link using testify/mock.
type MockLCDLink struct {
	mock.Mock
}

func (m *MockLCDLink) Connected() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockLCDLink) SetOrientation(o orientation.Orientation) error {
	args := m.Called(o)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock operation failed: %w", err)
	}
	return nil
}

func (m *MockLCDLink) Heartbeat(now time.Time) error {
	args := m.Called(now)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock operation failed: %w", err)
	}
	return nil
}

func (m *MockLCDLink) Redraw(o orientation.Orientation, pixels []uint16) error {
	args := m.Called(o, slices.Clone(pixels))
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock operation failed: %w", err)
	}
	return nil
}

func (m *MockLCDLink) Refresh(
	o orientation.Orientation,
	x, y uint16,
	width, height uint8,
	pixels []uint16,
) error {
	args := m.Called(o, x, y, width, height, slices.Clone(pixels))
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock operation failed: %w", err)
	}
	return nil
}

func (m *MockLCDLink) Clear(c framebuffer.RGB565) error {
	args := m.Called(c)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock operation failed: %w", err)
	}
	return nil
}

func (m *MockLCDLink) Close() error {
	args := m.Called()
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock operation failed: %w", err)
	}
	return nil
}

// NewMockLCDLink returns a connected link that accepts every operation.
func NewMockLCDLink() *MockLCDLink {
	m := &MockLCDLink{}
	m.On("Connected").Return(true)
	m.On("SetOrientation", mock.Anything).Return(nil)
	m.On("Heartbeat", mock.Anything).Return(nil)
	m.On("Redraw", mock.Anything, mock.Anything).Return(nil)
	m.On("Refresh", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil)
	m.On("Clear", mock.Anything).Return(nil)
	m.On("Close").Return(nil)
	return m
}
