// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/StipulaForge/services/interpreter"
	"github.com/AleutianAI/StipulaForge/services/studio/middleware"
	"github.com/AleutianAI/StipulaForge/services/studio/observability"
)

const (
	// maxFrameBytes bounds one inbound websocket frame.
	maxFrameBytes = 10 << 20

	writeTimeout = 10 * time.Second
)

// InterpreterDeps are the collaborators of the interpreter endpoint.
type InterpreterDeps struct {
	// Session is the launch configuration for every connection's interpreter.
	Session interpreter.Config

	// Registry owns the live sessions.
	Registry *interpreter.Registry

	// AllowedOrigins gates browser connections; see middleware.OriginAllowed.
	AllowedOrigins []string

	// Metrics is optional.
	Metrics *observability.Metrics

	Logger *slog.Logger
}

// wsEmitter serializes frame writes on one connection.
type wsEmitter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (e *wsEmitter) Emit(o interpreter.Outbound) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_ = e.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return e.conn.WriteJSON(o)
}

// HandleInterpreterWebSocket upgrades the request and runs one interpreter
// session for the lifetime of the connection.
//
// # Description
//
// Each text frame is handed to Session.Handle in arrival order. Protocol
// errors are answered on the socket and never close it. When the client
// disconnects the session is removed from the registry, which kills any
// running interpreter and deletes its temp files.
func HandleInterpreterWebSocket(deps InterpreterDeps) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  64 << 10,
		WriteBufferSize: 64 << 10,
		CheckOrigin: func(r *http.Request) bool {
			return middleware.OriginAllowed(deps.AllowedOrigins, r.Header.Get("Origin"))
		},
	}

	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			deps.Logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
			return
		}
		defer conn.Close()
		conn.SetReadLimit(maxFrameBytes)

		id := uuid.NewString()
		logger := deps.Logger.With(slog.String("connection_id", id))
		session := interpreter.NewSession(id, deps.Session, &wsEmitter{conn: conn}, logger)
		if err := deps.Registry.Add(session); err != nil {
			logger.Error("register session", slog.String("error", err.Error()))
			return
		}
		defer deps.Registry.Remove(id)

		if deps.Metrics != nil {
			deps.Metrics.InterpreterConnections.Inc()
			defer deps.Metrics.InterpreterConnections.Dec()
		}
		logger.Info("interpreter client connected", slog.String("remote", c.ClientIP()))

		ctx := c.Request.Context()
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("interpreter client disconnected", slog.String("error", err.Error()))
				} else {
					logger.Info("interpreter client disconnected")
				}
				return
			}
			if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
				continue
			}
			if err := session.Handle(ctx, data); err != nil {
				kind := protocolErrorKind(err)
				logger.Debug("frame rejected", slog.String("kind", kind), slog.String("error", err.Error()))
				if deps.Metrics != nil {
					deps.Metrics.ProtocolErrorsTotal.WithLabelValues(kind).Inc()
				}
			}
		}
	}
}

func protocolErrorKind(err error) string {
	switch {
	case errors.Is(err, interpreter.ErrMalformedMessage):
		return "malformed"
	case errors.Is(err, interpreter.ErrUnknownMessage):
		return "unknown_type"
	case errors.Is(err, interpreter.ErrInvalidPayload):
		return "invalid_payload"
	case errors.Is(err, interpreter.ErrSpawn):
		return "spawn"
	default:
		return "state"
	}
}
