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

package client

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/minidisplay/minidisplay-core/pkg/api/models"
	"github.com/minidisplay/minidisplay-core/pkg/testing/helpers"
	"github.com/olahol/melody"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unusedPort returns a port that is guaranteed to not have anything listening.
func unusedPort(t *testing.T) int {
	t.Helper()
	var lc net.ListenConfig
	listener, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	tcpAddr, ok := listener.Addr().(*net.TCPAddr)
	require.True(t, ok)
	require.NoError(t, listener.Close())
	return tcpAddr.Port
}

func respond(session *melody.Session, id any, body map[string]any) {
	body["jsonrpc"] = "2.0"
	body["id"] = id
	data, _ := json.Marshal(body)
	_ = session.Write(data)
}

func requestID(msg []byte) any {
	var request map[string]any
	if err := json.Unmarshal(msg, &request); err != nil {
		return nil
	}
	return request["id"]
}

func TestLocalClient_ValidRequest(t *testing.T) {
	t.Parallel()

	server := helpers.NewWebSocketTestServer(t, func(session *melody.Session, msg []byte) {
		respond(session, requestID(msg), map[string]any{
			"result": map[string]any{"orientation": "portrait"},
		})
	})
	defer server.Close()

	result, err := LocalClient(context.Background(), helpers.NewTestConfigWithPort(server.Port(t)),
		models.MethodDisplayOrientation, `{"orientation":"portrait"}`)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(result), &parsed))
	assert.Equal(t, "portrait", parsed["orientation"])

	msgs := server.GetMessages()
	require.Len(t, msgs, 1)
	var sent models.RequestObject
	require.NoError(t, json.Unmarshal(msgs[0], &sent))
	assert.Equal(t, "2.0", sent.JSONRPC)
	assert.Equal(t, models.MethodDisplayOrientation, sent.Method)
	require.NotNil(t, sent.ID)
	assert.JSONEq(t, `{"orientation":"portrait"}`, string(sent.Params))
}

func TestLocalClient_EmptyParams(t *testing.T) {
	t.Parallel()

	server := helpers.NewWebSocketTestServer(t, func(session *melody.Session, msg []byte) {
		var request map[string]any
		if err := json.Unmarshal(msg, &request); err != nil {
			return
		}
		assert.NotContains(t, request, "params")
		respond(session, request["id"], map[string]any{"result": "success"})
	})
	defer server.Close()

	result, err := LocalClient(context.Background(), helpers.NewTestConfigWithPort(server.Port(t)),
		models.MethodStatus, "")
	require.NoError(t, err)
	assert.Equal(t, `"success"`, result)
}

func TestLocalClient_InvalidParams(t *testing.T) {
	t.Parallel()

	server := helpers.NewWebSocketTestServer(t, func(_ *melody.Session, _ []byte) {
		t.Error("server should not be called with invalid params")
	})
	defer server.Close()

	_, err := LocalClient(context.Background(), helpers.NewTestConfigWithPort(server.Port(t)),
		models.MethodLEDSet, "theme=1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestLocalClient_ErrorResponse(t *testing.T) {
	t.Parallel()

	server := helpers.NewWebSocketTestServer(t, func(session *melody.Session, msg []byte) {
		respond(session, requestID(msg), map[string]any{
			"error": map[string]any{"code": -32602, "message": "theme 9 must be 1-5"},
		})
	})
	defer server.Close()

	_, err := LocalClient(context.Background(), helpers.NewTestConfigWithPort(server.Port(t)),
		models.MethodLEDSet, `{"theme":9,"intensity":1,"speed":1}`)
	require.Error(t, err)

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32602, rpcErr.Code)
	assert.Equal(t, "theme 9 must be 1-5 (code -32602)", err.Error())
}

func TestLocalClient_ContextCancellation(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := helpers.NewWebSocketTestServer(t, func(_ *melody.Session, _ []byte) {
		<-release
	})
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := LocalClient(ctx, helpers.NewTestConfigWithPort(server.Port(t)), models.MethodStatus, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequestCancelled)
}

func TestLocalClient_IgnoresMismatchedResponses(t *testing.T) {
	t.Parallel()

	server := helpers.NewWebSocketTestServer(t, func(session *melody.Session, msg []byte) {
		id := requestID(msg)
		respond(session, "completely-wrong-id", map[string]any{"result": "wrong"})
		respond(session, "00000000-0000-0000-0000-000000000001", map[string]any{"result": "other"})
		_ = session.Write([]byte(`{"jsonrpc":"1.0","result":"old","id":"` + id.(string) + `"}`))
		respond(session, nil, map[string]any{"method": models.NotificationLEDChanged})
		respond(session, id, map[string]any{"result": "correct"})
	})
	defer server.Close()

	result, err := LocalClient(context.Background(), helpers.NewTestConfigWithPort(server.Port(t)),
		models.MethodStatus, "")
	require.NoError(t, err)
	assert.Equal(t, `"correct"`, result)
}

func TestLocalClient_ConnectionFailure(t *testing.T) {
	t.Parallel()

	_, err := LocalClient(context.Background(), helpers.NewTestConfigWithPort(unusedPort(t)),
		models.MethodStatus, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to service")
}

func broadcastWhenConnected(t *testing.T, server *helpers.WebSocketTestServer, msgs ...string) {
	t.Helper()
	go func() {
		deadline := time.Now().Add(2 * time.Second)
		for server.SessionCount() == 0 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		for _, m := range msgs {
			_ = server.Broadcast([]byte(m))
		}
	}()
}

func TestWaitNotification_ReceivesNotification(t *testing.T) {
	t.Parallel()

	server := helpers.NewWebSocketTestServer(t, nil)
	defer server.Close()

	broadcastWhenConnected(t, server,
		`{"jsonrpc":"2.0","method":"led.changed","params":{"theme":2}}`)

	result, err := WaitNotification(context.Background(), 2*time.Second,
		helpers.NewTestConfigWithPort(server.Port(t)), models.NotificationLEDChanged)
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":2}`, result)
}

func TestWaitNotification_IgnoresOtherMessages(t *testing.T) {
	t.Parallel()

	server := helpers.NewWebSocketTestServer(t, nil)
	defer server.Close()

	broadcastWhenConnected(t, server,
		`{"jsonrpc":"2.0","method":"display.changed","params":{"wrong":true}}`,
		`{"jsonrpc":"2.0","method":"led.changed","params":{"wrong":true},"id":"4a3c1b4e-1f0e-4f9e-9d59-1b2b3c4d5e6f"}`,
		`{"jsonrpc":"2.0","method":"led.changed","params":{"correct":true}}`,
	)

	result, err := WaitNotification(context.Background(), 2*time.Second,
		helpers.NewTestConfigWithPort(server.Port(t)), models.NotificationLEDChanged)
	require.NoError(t, err)
	assert.JSONEq(t, `{"correct":true}`, result)
}

func TestWaitNotification_Timeout(t *testing.T) {
	t.Parallel()

	server := helpers.NewWebSocketTestServer(t, nil)
	defer server.Close()

	_, err := WaitNotification(context.Background(), 50*time.Millisecond,
		helpers.NewTestConfigWithPort(server.Port(t)), models.NotificationLEDChanged)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequestTimeout)
}

func TestLocalAPIClient(t *testing.T) {
	t.Parallel()

	server := helpers.NewWebSocketTestServer(t, func(session *melody.Session, msg []byte) {
		respond(session, requestID(msg), map[string]any{"result": map[string]any{"version": "1.0.0"}})
	})
	defer server.Close()

	var c APIClient = NewLocalAPIClient(helpers.NewTestConfigWithPort(server.Port(t)))
	result, err := c.Call(context.Background(), models.MethodVersion, "")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"1.0.0"}`, result)

	_, err = c.Call(context.Background(), models.MethodVersion, "{")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidParams)
}
