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
	"context"
	"encoding/json"
	"time"

	"github.com/minidisplay/minidisplay-core/pkg/api/models"
	"github.com/stretchr/testify/mock"
)

// MockAPIClient is a mock implementation of client.APIClient for testing.
type MockAPIClient struct {
	mock.Mock
}

// NewMockAPIClient creates a new mock API client.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

// Call mocks the API call method.
func (m *MockAPIClient) Call(ctx context.Context, method, params string) (string, error) {
	args := m.Called(ctx, method, params)
	return args.String(0), args.Error(1)
}

// WaitNotification mocks waiting for a notification.
func (m *MockAPIClient) WaitNotification(
	ctx context.Context,
	timeout time.Duration,
	notificationType string,
) (string, error) {
	args := m.Called(ctx, timeout, notificationType)
	return args.String(0), args.Error(1)
}

// SetupStatusResponse configures the mock to return a status response.
func (m *MockAPIClient) SetupStatusResponse(status *models.StatusResponse) {
	data, _ := json.Marshal(status)
	m.On("Call", mock.Anything, models.MethodStatus, "").Return(string(data), nil)
}

// SetupStatusError configures the mock to return an error for status.
func (m *MockAPIClient) SetupStatusError(err error) {
	m.On("Call", mock.Anything, models.MethodStatus, "").Return("", err)
}

// SetupOrientationSuccess accepts any orientation change and answers with d.
func (m *MockAPIClient) SetupOrientationSuccess(d *models.DisplayResponse) {
	data, _ := json.Marshal(d)
	m.On("Call", mock.Anything, models.MethodDisplayOrientation, mock.Anything).Return(string(data), nil)
}

// SetupLEDSetSuccess accepts any LED settings and answers with l.
func (m *MockAPIClient) SetupLEDSetSuccess(l *models.LEDResponse) {
	data, _ := json.Marshal(l)
	m.On("Call", mock.Anything, models.MethodLEDSet, mock.Anything).Return(string(data), nil)
}

// SetupLEDChangedNotification configures the mock to deliver one led.changed
// notification.
func (m *MockAPIClient) SetupLEDChangedNotification(l *models.LEDResponse) {
	data, _ := json.Marshal(l)
	m.On("WaitNotification", mock.Anything, mock.Anything, models.NotificationLEDChanged).
		Return(string(data), nil)
}
