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

// Package helpers provides testing utilities for API operations.
//
// WebSocketTestServer stands in for the service's websocket endpoint so the
// client and front ends can be tested without devices:
//
//	server := helpers.NewWebSocketTestServer(t, func(session *melody.Session, msg []byte) {
//		_ = session.Write([]byte(`{"jsonrpc":"2.0","result":"ok","id":null}`))
//	})
//	defer server.Close()
//	cfg := helpers.NewTestConfigWithPort(server.Port(t))
package helpers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/minidisplay/minidisplay-core/pkg/api/models"
	"github.com/minidisplay/minidisplay-core/pkg/config"
	"github.com/olahol/melody"
	"github.com/stretchr/testify/require"
)

// WebSocketTestServer records every message it receives and hands it to a
// test handler.
type WebSocketTestServer struct {
	Server   *httptest.Server
	Melody   *melody.Melody
	Messages [][]byte
	mu       sync.RWMutex
}

// JSONRPCRequest represents a JSON-RPC request for testing
type JSONRPCRequest struct {
	Params  any       `json:"params,omitempty"`
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	ID      uuid.UUID `json:"id"`
}

// JSONRPCResponse represents a JSON-RPC response for testing
type JSONRPCResponse struct {
	Result any                 `json:"result,omitempty"`
	Error  *models.ErrorObject `json:"error,omitempty"`
	ID     uuid.UUID           `json:"id"`
}

func NewWebSocketTestServer(t *testing.T, handler func(*melody.Session, []byte)) *WebSocketTestServer {
	t.Helper()
	m := melody.New()
	wsts := &WebSocketTestServer{Melody: m}

	m.HandleMessage(func(session *melody.Session, msg []byte) {
		wsts.mu.Lock()
		wsts.Messages = append(wsts.Messages, append([]byte(nil), msg...))
		wsts.mu.Unlock()
		if handler != nil {
			handler(session, msg)
		}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		if err := m.HandleRequest(w, r); err != nil {
			t.Logf("websocket request failed: %v", err)
		}
	})
	wsts.Server = httptest.NewServer(mux)

	// Brief wait to ensure server is fully ready for WebSocket connections
	time.Sleep(5 * time.Millisecond)

	return wsts
}

// Close shuts down the test server
func (wsts *WebSocketTestServer) Close() {
	_ = wsts.Melody.Close()
	wsts.Server.Close()
}

// Port is the port the server listens on.
func (wsts *WebSocketTestServer) Port(t *testing.T) int {
	t.Helper()
	u, err := url.Parse(wsts.Server.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return port
}

// GetMessages returns all recorded messages (thread-safe)
func (wsts *WebSocketTestServer) GetMessages() [][]byte {
	wsts.mu.RLock()
	defer wsts.mu.RUnlock()
	msgs := make([][]byte, len(wsts.Messages))
	copy(msgs, wsts.Messages)
	return msgs
}

// Broadcast sends data to every connected session.
func (wsts *WebSocketTestServer) Broadcast(data []byte) error {
	if err := wsts.Melody.Broadcast(data); err != nil {
		return fmt.Errorf("failed to broadcast: %w", err)
	}
	return nil
}

// SessionCount reports connected sessions.
func (wsts *WebSocketTestServer) SessionCount() int {
	return wsts.Melody.Len()
}

// SendJSONRPCRequest sends a JSON-RPC request and returns the response
func SendJSONRPCRequest(conn *websocket.Conn, method string, params any) (*JSONRPCResponse, error) {
	requestData, err := json.Marshal(JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      uuid.New(),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, requestData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	_, responseData, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var response JSONRPCResponse
	if err := json.Unmarshal(responseData, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &response, nil
}

// AssertJSONRPCSuccess verifies a JSON-RPC response was successful
func AssertJSONRPCSuccess(t *testing.T, response *JSONRPCResponse) {
	t.Helper()
	require.NotNil(t, response, "response should not be nil")
	require.Nil(t, response.Error, "response should not contain an error")
}

// AssertJSONRPCError verifies a JSON-RPC response contains an error
func AssertJSONRPCError(t *testing.T, response *JSONRPCResponse, expectedCode int) {
	t.Helper()
	require.NotNil(t, response, "response should not be nil")
	require.NotNil(t, response.Error, "response should contain an error")
	require.Equal(t, expectedCode, response.Error.Code, "error code should match")
}

// NewTestConfigWithPort returns default config pointing the API at port.
func NewTestConfigWithPort(port int) config.Values {
	cfg := config.BaseDefaults
	cfg.Service.APIPort = port
	return cfg
}
