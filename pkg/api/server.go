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

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/minidisplay/minidisplay-core/pkg/api/methods"
	"github.com/minidisplay/minidisplay-core/pkg/api/middleware"
	"github.com/minidisplay/minidisplay-core/pkg/api/models"
	"github.com/minidisplay/minidisplay-core/pkg/api/models/requests"
	"github.com/minidisplay/minidisplay-core/pkg/config"
	"github.com/minidisplay/minidisplay-core/pkg/coordinator"
	"github.com/minidisplay/minidisplay-core/pkg/errcode"
	"github.com/minidisplay/minidisplay-core/pkg/helpers"
	"github.com/olahol/melody"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var JSONRPCErrorParseError = models.ErrorObject{
	Code:    -32700,
	Message: "Parse error",
}
var JSONRPCErrorInvalidRequest = models.ErrorObject{
	Code:    -32600,
	Message: "Invalid Request",
}
var JSONRPCErrorMethodNotFound = models.ErrorObject{
	Code:    -32601,
	Message: "Method not found",
}

const (
	JSONRPCCodeInvalidParams = -32602
	JSONRPCCodeServerError   = -32000
)

// ShutdownTimeout bounds how long in-flight HTTP requests get to finish.
const ShutdownTimeout = 5 * time.Second

var ErrMethodNotFound = errors.New("method not found")

type handlerFunc func(requests.RequestEnv) (any, error)

// Server is the JSON-RPC control surface over a websocket, plus a plain
// HTTP screenshot endpoint.
type Server struct {
	state   *coordinator.AppState
	notifs  <-chan models.Notification
	melody  *melody.Melody
	limiter *middleware.IPRateLimiter
	srv     *http.Server
	methods map[string]handlerFunc
	ports   methods.PortLister
	cfg     config.Values
}

type Option func(*Server)

// WithPortLister replaces serial port enumeration for the ports method.
func WithPortLister(list methods.PortLister) Option {
	return func(s *Server) { s.ports = list }
}

// NewServer wires the routes. Nothing listens until Serve is called.
//
//nolint:gocritic // config values are passed by value on purpose
func NewServer(
	cfg config.Values,
	st *coordinator.AppState,
	notifications <-chan models.Notification,
	opts ...Option,
) *Server {
	s := &Server{
		cfg:     cfg,
		state:   st,
		notifs:  notifications,
		melody:  melody.New(),
		limiter: middleware.NewIPRateLimiter(),
		ports:   helpers.GetSerialDeviceList,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.methods = map[string]handlerFunc{
		models.MethodStatus:             methods.HandleStatus,
		models.MethodDisplayOrientation: methods.HandleDisplayOrientation,
		models.MethodDisplayClear:       methods.HandleDisplayClear,
		models.MethodDisplayScreen:      methods.HandleDisplayScreen,
		models.MethodLED:                methods.HandleLED,
		models.MethodLEDSet:             methods.HandleLEDSet,
		models.MethodLEDOff:             methods.HandleLEDOff,
		models.MethodPorts:              methods.NewPortsHandler(s.ports),
		models.MethodVersion:            methods.HandleVersion,
	}

	s.melody.Upgrader.CheckOrigin = func(*http.Request) bool { return true }
	s.melody.HandleMessage(middleware.WebSocketRateLimitHandler(s.limiter, s.handleWSMessage))

	s.srv = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.NoCache)
	r.Use(middleware.HTTPIPFilterMiddleware(middleware.NewIPFilter(s.cfg.Service.AllowedIPs)))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"Accept"},
		ExposedHeaders: []string{},
	}))

	r.Group(func(r chi.Router) {
		r.Use(middleware.HTTPRateLimitMiddleware(s.limiter))
		r.Get("/api", func(w http.ResponseWriter, r *http.Request) {
			if err := s.melody.HandleRequest(w, r); err != nil {
				log.Error().Err(err).Msg("handling websocket request")
			}
		})
		r.With(chimiddleware.Timeout(config.APIRequestTimeout)).
			Get("/screen.png", s.handleScreenPNG)
	})

	return r
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) handleScreenPNG(w http.ResponseWriter, _ *http.Request) {
	screen, err := s.state.ScreenPNG()
	if err != nil {
		log.Error().Err(err).Msg("failed to capture screen")
		http.Error(w, "failed to capture screen", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(screen.PNG); err != nil {
		log.Debug().Err(err).Msg("failed to write screen response")
	}
}

func (s *Server) handleRequest(env requests.RequestEnv, req models.RequestObject) (any, error) {
	log.Debug().Str("method", req.Method).Msg("received request")

	fn, ok := s.methods[strings.ToLower(req.Method)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMethodNotFound, req.Method)
	}

	env.ID = *req.ID
	env.Params = req.Params
	return fn(env)
}

// errorObject maps a handler failure onto a JSON-RPC error. Rejected
// arguments become -32602; every other failure is a server error carrying
// its error code so clients can tell a missing device from a timeout.
func errorObject(err error) models.ErrorObject {
	if errors.Is(err, ErrMethodNotFound) {
		return JSONRPCErrorMethodNotFound
	}
	code := errcode.Of(err)
	if code == errcode.InvalidArgument {
		return models.ErrorObject{Code: JSONRPCCodeInvalidParams, Message: err.Error()}
	}
	return models.ErrorObject{
		Code:    JSONRPCCodeServerError,
		Message: string(code) + ": " + err.Error(),
	}
}

func sendResponse(session *melody.Session, id uuid.UUID, result any) error {
	data, err := json.Marshal(models.ResponseObject{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
	if err != nil {
		return fmt.Errorf("error marshalling response: %w", err)
	}
	if err := session.Write(data); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}

func sendError(session *melody.Session, id uuid.UUID, errObj models.ErrorObject) error {
	log.Debug().Int("code", errObj.Code).Str("message", errObj.Message).Msg("sending error")

	data, err := json.Marshal(models.ResponseErrorObject{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &errObj,
	})
	if err != nil {
		return fmt.Errorf("error marshalling error response: %w", err)
	}
	if err := session.Write(data); err != nil {
		return fmt.Errorf("failed to write error response: %w", err)
	}
	return nil
}

func (s *Server) handleWSMessage(session *melody.Session, msg []byte) {
	// ping command for heartbeat operation
	if string(msg) == "ping" {
		if err := session.Write([]byte("pong")); err != nil {
			log.Error().Err(err).Msg("sending pong")
		}
		return
	}

	if !json.Valid(msg) {
		log.Warn().Msg("data not valid json")
		if err := sendError(session, uuid.Nil, JSONRPCErrorParseError); err != nil {
			log.Error().Err(err).Msg("error sending error response")
		}
		return
	}

	var req models.RequestObject
	if err := json.Unmarshal(msg, &req); err != nil || req.JSONRPC != "2.0" || req.Method == "" {
		id := uuid.Nil
		if err == nil && req.ID != nil {
			id = *req.ID
		}
		if err == nil && req.Method == "" && req.JSONRPC == "2.0" {
			// a response from the client, nothing to do
			log.Debug().Msg("ignoring client response")
			return
		}
		if err := sendError(session, id, JSONRPCErrorInvalidRequest); err != nil {
			log.Error().Err(err).Msg("error sending error response")
		}
		return
	}

	if req.ID == nil {
		log.Debug().Str("method", req.Method).Msg("received notification, ignoring")
		return
	}

	ctx, cancel := context.WithTimeout(session.Request.Context(), config.APIRequestTimeout)
	defer cancel()

	resp, err := s.handleRequest(requests.RequestEnv{
		Context: ctx,
		State:   s.state,
		Config:  s.cfg,
		IsLocal: middleware.IsLoopbackAddr(session.Request.RemoteAddr),
	}, req)
	if err != nil {
		log.Warn().Err(err).Str("method", req.Method).Msg("request failed")
		if err := sendError(session, *req.ID, errorObject(err)); err != nil {
			log.Error().Err(err).Msg("error sending error response")
		}
		return
	}

	if err := sendResponse(session, *req.ID, resp); err != nil {
		log.Error().Err(err).Msg("error sending response")
	}
}

func (s *Server) broadcastNotifications(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.state.Done():
			log.Debug().Msg("coordinator closed, stopping notifications")
			return
		case notif, ok := <-s.notifs:
			if !ok {
				log.Debug().Msg("notification channel closed")
				return
			}
			data, err := json.Marshal(models.NotificationObject{
				JSONRPC: "2.0",
				Method:  notif.Method,
				Params:  notif.Params,
			})
			if err != nil {
				log.Error().Err(err).Msg("marshalling notification")
				continue
			}
			if err := s.melody.Broadcast(data); err != nil && !errors.Is(err, melody.ErrClosed) {
				log.Error().Err(err).Msg("broadcasting notification")
			}
		}
	}
}

// Serve runs the API on l until ctx is cancelled, then shuts down the HTTP
// server and every websocket session.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	s.limiter.StartCleanup(gctx)

	g.Go(func() error {
		s.broadcastNotifications(gctx)
		return nil
	})

	g.Go(func() error {
		log.Info().Str("addr", l.Addr().String()).Msg("api server listening")
		if err := s.srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		if err := s.melody.Close(); err != nil && !errors.Is(err, melody.ErrClosed) {
			log.Warn().Err(err).Msg("failed to close websocket sessions")
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api server shutdown: %w", err)
		}
		log.Info().Msg("api server stopped")
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Start listens on the configured address and serves until ctx is done.
//
//nolint:gocritic // config values are passed by value on purpose
func Start(
	ctx context.Context,
	cfg config.Values,
	st *coordinator.AppState,
	notifications <-chan models.Notification,
) error {
	var lc net.ListenConfig
	l, err := lc.Listen(ctx, "tcp", cfg.APIListen())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.APIListen(), err)
	}
	return NewServer(cfg, st, notifications).Serve(ctx, l)
}
