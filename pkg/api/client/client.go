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

// Package client is a one-shot JSON-RPC client for the local service, used
// by the CLI and the tray helper.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/minidisplay/minidisplay-core/pkg/api/models"
	"github.com/minidisplay/minidisplay-core/pkg/config"
	"github.com/rs/zerolog/log"
)

var (
	ErrRequestTimeout   = errors.New("request timed out")
	ErrInvalidParams    = errors.New("invalid params")
	ErrRequestCancelled = errors.New("request cancelled")
)

// RPCError is an error object returned by the service.
type RPCError struct {
	Message string
	Code    int
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

func dial(ctx context.Context, cfg config.Values) (*websocket.Conn, error) {
	c, resp, err := websocket.DefaultDialer.DialContext(ctx, cfg.APIURL(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to service: %w", err)
	}
	return c, nil
}

func closeConn(c *websocket.Conn) {
	if err := c.Close(); err != nil {
		log.Debug().Err(err).Msg("error closing websocket")
	}
}

// waitFor blocks until done closes, the timeout passes or ctx is cancelled.
// A zero timeout uses the default request timeout; a negative one waits
// forever.
func waitFor(ctx context.Context, c *websocket.Conn, done <-chan struct{}, timeout time.Duration) error {
	var timerChan <-chan time.Time
	switch {
	case timeout == 0:
		timer := time.NewTimer(config.APIRequestTimeout)
		defer timer.Stop()
		timerChan = timer.C
	case timeout > 0:
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timerChan = timer.C
	}

	select {
	case <-done:
		return nil
	case <-timerChan:
		closeConn(c)
		<-done
		return ErrRequestTimeout
	case <-ctx.Done():
		closeConn(c)
		<-done
		return ErrRequestCancelled
	}
}

// LocalClient sends a single method with params to the local running
// service, waits for the response until timeout then disconnects. The
// result is returned as raw JSON.
//
//nolint:gocritic // config values are passed by value on purpose
func LocalClient(
	ctx context.Context,
	cfg config.Values,
	method string,
	params string,
) (string, error) {
	id := uuid.New()
	req := models.RequestObject{
		JSONRPC: "2.0",
		ID:      &id,
		Method:  method,
	}
	if params != "" {
		if !json.Valid([]byte(params)) {
			return "", ErrInvalidParams
		}
		req.Params = json.RawMessage(params)
	}

	c, err := dial(ctx, cfg)
	if err != nil {
		return "", err
	}
	defer closeConn(c)

	done := make(chan struct{})
	var resp *models.ResponseObject
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Msg("websocket read ended")
				return
			}

			var m models.ResponseObject
			if err := json.Unmarshal(message, &m); err != nil {
				continue
			}
			if m.JSONRPC != "2.0" {
				log.Warn().Msg("invalid jsonrpc version")
				continue
			}
			if m.ID != id {
				continue
			}
			resp = &m
			return
		}
	}()

	if err := c.WriteJSON(req); err != nil {
		closeConn(c)
		<-done
		return "", fmt.Errorf("failed to send request: %w", err)
	}

	if err := waitFor(ctx, c, done, 0); err != nil {
		return "", err
	}
	if resp == nil {
		return "", ErrRequestTimeout
	}
	if resp.Error != nil {
		return "", &RPCError{Code: resp.Error.Code, Message: resp.Error.Message}
	}

	b, err := json.Marshal(resp.Result)
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}
	return string(b), nil
}

// WaitNotification blocks until the service broadcasts a notification with
// the given method and returns its params as raw JSON.
//
//nolint:gocritic // config values are passed by value on purpose
func WaitNotification(
	ctx context.Context,
	timeout time.Duration,
	cfg config.Values,
	method string,
) (string, error) {
	c, err := dial(ctx, cfg)
	if err != nil {
		return "", err
	}
	defer closeConn(c)

	done := make(chan struct{})
	var notif *models.RequestObject
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Msg("websocket read ended")
				return
			}

			var m models.RequestObject
			if err := json.Unmarshal(message, &m); err != nil {
				continue
			}
			if m.JSONRPC != "2.0" || m.ID != nil || m.Method != method {
				continue
			}
			notif = &m
			return
		}
	}()

	if err := waitFor(ctx, c, done, timeout); err != nil {
		return "", err
	}
	if notif == nil {
		return "", ErrRequestTimeout
	}
	return string(notif.Params), nil
}
