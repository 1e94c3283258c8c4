// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package interpreter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutbound_MarshalJSON(t *testing.T) {
	code := 0
	tests := []struct {
		name string
		out  Outbound
		want string
	}{
		{"started", Started(), `{"type":"INTERPRETER_STARTED","message":"Interpreter started successfully."}`},
		{"stopped", Stopped(), `{"type":"INTERPRETER_STOPPED","message":"Interpreter stopped."}`},
		{"stdout", Output("hi\n"), `{"type":"INTERPRETER_OUTPUT","output":"hi\n"}`},
		{"empty stdout", Output(""), `{"type":"INTERPRETER_OUTPUT","output":""}`},
		{"stderr", Stderr("bad"), `{"type":"INTERPRETER_ERROR","error":"bad"}`},
		{"closed", Closed(&code), `{"type":"INTERPRETER_CLOSED","code":0}`},
		{"closed by signal", Closed(nil), `{"type":"INTERPRETER_CLOSED","code":null}`},
		{"error", ProtocolError(MsgUnknownType), `{"type":"ERROR","message":"Unknown message type."}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.out)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestOutbound_DecodesOwnFrames(t *testing.T) {
	code := 7
	raw, err := json.Marshal(Closed(&code))
	require.NoError(t, err)

	var got Outbound
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, TypeClosed, got.Type)
	require.NotNil(t, got.Code)
	assert.Equal(t, 7, *got.Code)
}

func TestInbound_StartPayload(t *testing.T) {
	raw := `{"type":"START_INTERPRETER","payload":{"contractCode":"stipula X {}","hoInputs":[{"name":"input_code_1","content":"c"}]}}`

	var in Inbound
	require.NoError(t, json.Unmarshal([]byte(raw), &in))
	assert.Equal(t, TypeStart, in.Type)

	var p StartPayload
	require.NoError(t, decodePayload(in.Payload, &p))
	assert.Equal(t, "stipula X {}", p.ContractCode)
	assert.Equal(t, []HOInput{{Name: "input_code_1", Content: "c"}}, p.HOInputs)
}

func TestEmitterFunc(t *testing.T) {
	var got Outbound
	e := EmitterFunc(func(o Outbound) error { got = o; return nil })
	require.NoError(t, e.Emit(Stopped()))
	assert.Equal(t, TypeStopped, got.Type)
}
