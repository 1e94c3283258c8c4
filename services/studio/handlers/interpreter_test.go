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
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/StipulaForge/services/interpreter"
	"github.com/AleutianAI/StipulaForge/services/studio/observability"
)

type wsFixture struct {
	server   *httptest.Server
	registry *interpreter.Registry
	metrics  *observability.Metrics
	tempDir  string
}

func newWSFixture(t *testing.T, script string, origins []string) *wsFixture {
	t.Helper()
	scriptPath := filepath.Join(t.TempDir(), "interp.sh")
	require.NoError(t, os.WriteFile(scriptPath, []byte(script+"\n"), 0o755))

	f := &wsFixture{
		registry: interpreter.NewRegistry(),
		metrics:  observability.NewMetrics(prometheus.NewRegistry()),
		tempDir:  t.TempDir(),
	}
	router := gin.New()
	router.GET("/v1/interpreter/ws", HandleInterpreterWebSocket(InterpreterDeps{
		Session: interpreter.Config{
			Command:   "/bin/sh",
			Args:      []string{scriptPath},
			TempDir:   f.tempDir,
			KillGrace: 500 * time.Millisecond,
		},
		Registry:       f.registry,
		AllowedOrigins: origins,
		Metrics:        f.metrics,
		Logger:         testLogger(),
	}))
	f.server = httptest.NewServer(router)
	t.Cleanup(f.server.Close)
	return f
}

func (f *wsFixture) url() string {
	return "ws" + strings.TrimPrefix(f.server.URL, "http") + "/v1/interpreter/ws"
}

func (f *wsFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(f.url(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads frames until one of type want arrives and returns every
// frame seen on the way.
func readUntil(t *testing.T, conn *websocket.Conn, want interpreter.MessageType) []interpreter.Outbound {
	t.Helper()
	var seen []interpreter.Outbound
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var o interpreter.Outbound
		require.NoError(t, conn.ReadJSON(&o))
		seen = append(seen, o)
		if o.Type == want {
			return seen
		}
	}
}

func outputOf(frames []interpreter.Outbound) string {
	var sb strings.Builder
	for _, f := range frames {
		sb.WriteString(f.Output)
	}
	return sb.String()
}

func TestInterpreterWebSocket_Lifecycle(t *testing.T) {
	f := newWSFixture(t, `while read line; do echo "got:$line"; done`, []string{"*"})
	conn := f.dial(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"START_INTERPRETER","payload":{"contractCode":"stipula Demo {}"}}`)))
	frames := readUntil(t, conn, interpreter.TypeStarted)
	assert.Equal(t, interpreter.MsgStarted, frames[len(frames)-1].Message)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"SEND_INPUT","payload":{"input":"hello"}}`)))
	var out string
	for !strings.Contains(out, "got:hello") {
		out += outputOf(readUntil(t, conn, interpreter.TypeOutput))
	}

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"STOP_INTERPRETER"}`)))
	frames = readUntil(t, conn, interpreter.TypeStopped)
	assert.Equal(t, interpreter.MsgStopped, frames[len(frames)-1].Message)

	entries, err := os.ReadDir(f.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestInterpreterWebSocket_ProtocolErrorsKeepConnection(t *testing.T) {
	f := newWSFixture(t, `cat`, nil)
	conn := f.dial(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{not json`)))
	frames := readUntil(t, conn, interpreter.TypeProtocolError)
	assert.Equal(t, interpreter.MsgMalformed, frames[0].Message)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"PING"}`)))
	frames = readUntil(t, conn, interpreter.TypeProtocolError)
	assert.Equal(t, interpreter.MsgUnknownType, frames[0].Message)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"STOP_INTERPRETER"}`)))
	frames = readUntil(t, conn, interpreter.TypeProtocolError)
	assert.Equal(t, interpreter.MsgNothingToStop, frames[0].Message)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ProtocolErrorsTotal.WithLabelValues("malformed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ProtocolErrorsTotal.WithLabelValues("unknown_type")))
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(f.metrics.ProtocolErrorsTotal.WithLabelValues("state")) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestInterpreterWebSocket_DisconnectCleansUp(t *testing.T) {
	f := newWSFixture(t, `cat`, nil)
	conn := f.dial(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"START_INTERPRETER","payload":{"contractCode":"stipula A {}","hoInputs":[{"name":"h","content":"stipula H {}"}]}}`)))
	readUntil(t, conn, interpreter.TypeStarted)

	entries, err := os.ReadDir(f.tempDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, 1, f.registry.Running())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.InterpreterConnections))

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		entries, err := os.ReadDir(f.tempDir)
		return err == nil && len(entries) == 0 && f.registry.Len() == 0
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.InterpreterConnections))
}

func TestInterpreterWebSocket_SessionsAreIndependent(t *testing.T) {
	f := newWSFixture(t, `while read line; do echo "got:$line"; done`, nil)
	a := f.dial(t)
	b := f.dial(t)

	start := []byte(`{"type":"START_INTERPRETER","payload":{"contractCode":"stipula A {}"}}`)
	require.NoError(t, a.WriteMessage(websocket.TextMessage, start))
	readUntil(t, a, interpreter.TypeStarted)

	require.NoError(t, b.WriteMessage(websocket.TextMessage, []byte(`{"type":"SEND_INPUT","payload":{"input":"x"}}`)))
	frames := readUntil(t, b, interpreter.TypeProtocolError)
	assert.Equal(t, interpreter.MsgNotWritable, frames[0].Message)

	require.Eventually(t, func() bool { return f.registry.Len() == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, f.registry.Running())
}

func TestInterpreterWebSocket_RejectsForeignOrigin(t *testing.T) {
	f := newWSFixture(t, `cat`, []string{"http://studio.local"})

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(f.url(), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header = http.Header{"Origin": []string{"http://studio.local"}}
	conn, _, err := websocket.DefaultDialer.Dial(f.url(), header)
	require.NoError(t, err)
	conn.Close()
}

func TestProtocolErrorKind(t *testing.T) {
	assert.Equal(t, "malformed", protocolErrorKind(interpreter.ErrMalformedMessage))
	assert.Equal(t, "unknown_type", protocolErrorKind(interpreter.ErrUnknownMessage))
	assert.Equal(t, "invalid_payload", protocolErrorKind(interpreter.ErrInvalidPayload))
	assert.Equal(t, "spawn", protocolErrorKind(interpreter.ErrSpawn))
	assert.Equal(t, "state", protocolErrorKind(interpreter.ErrNotRunning))
}
