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

	"github.com/go-playground/validator/v10"
)

// MessageType tags every frame on the session channel.
type MessageType string

// Client to server.
const (
	TypeStart     MessageType = "START_INTERPRETER"
	TypeSendInput MessageType = "SEND_INPUT"
	TypeStop      MessageType = "STOP_INTERPRETER"
)

// Server to client.
const (
	TypeStarted       MessageType = "INTERPRETER_STARTED"
	TypeOutput        MessageType = "INTERPRETER_OUTPUT"
	TypeError         MessageType = "INTERPRETER_ERROR"
	TypeClosed        MessageType = "INTERPRETER_CLOSED"
	TypeStopped       MessageType = "INTERPRETER_STOPPED"
	TypeProtocolError MessageType = "ERROR"
)

// Notification texts sent to the client.
const (
	MsgStarted        = "Interpreter started successfully."
	MsgStopped        = "Interpreter stopped."
	MsgAlreadyRunning = "Interpreter already running."
	MsgNotWritable    = "Interpreter not running or stdin not writable."
	MsgNothingToStop  = "No interpreter to stop."
	MsgUnknownType    = "Unknown message type."
	MsgMalformed      = "Malformed message."
	msgSpawnPrefix    = "Failed to start interpreter: "
)

// Inbound is a client frame. Payload is decoded according to Type.
type Inbound struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// HOInput is one higher-order input handed to the interpreter.
type HOInput struct {
	Name    string `json:"name" validate:"omitempty,max=256"`
	Content string `json:"content"`
}

// StartPayload is the body of START_INTERPRETER.
type StartPayload struct {
	ContractCode string    `json:"contractCode" validate:"required"`
	HOInputs     []HOInput `json:"hoInputs" validate:"omitempty,max=64,dive"`
}

// InputPayload is the body of SEND_INPUT.
type InputPayload struct {
	Input string `json:"input"`
}

var validate = validator.New()

// Outbound is a server frame. Only the field matching Type is encoded.
type Outbound struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message,omitempty"`
	Output  string      `json:"output,omitempty"`
	Error   string      `json:"error,omitempty"`

	// Code is the exit status for INTERPRETER_CLOSED; nil when the process
	// was ended by a signal.
	Code *int `json:"code,omitempty"`
}

// MarshalJSON writes the flat frame shape for o.Type.
func (o Outbound) MarshalJSON() ([]byte, error) {
	switch o.Type {
	case TypeOutput:
		return json.Marshal(struct {
			Type   MessageType `json:"type"`
			Output string      `json:"output"`
		}{o.Type, o.Output})
	case TypeError:
		return json.Marshal(struct {
			Type  MessageType `json:"type"`
			Error string      `json:"error"`
		}{o.Type, o.Error})
	case TypeClosed:
		return json.Marshal(struct {
			Type MessageType `json:"type"`
			Code *int        `json:"code"`
		}{o.Type, o.Code})
	default:
		return json.Marshal(struct {
			Type    MessageType `json:"type"`
			Message string      `json:"message"`
		}{o.Type, o.Message})
	}
}

// Started builds INTERPRETER_STARTED.
func Started() Outbound { return Outbound{Type: TypeStarted, Message: MsgStarted} }

// Stopped builds INTERPRETER_STOPPED.
func Stopped() Outbound { return Outbound{Type: TypeStopped, Message: MsgStopped} }

// Output builds INTERPRETER_OUTPUT.
func Output(chunk string) Outbound { return Outbound{Type: TypeOutput, Output: chunk} }

// Stderr builds INTERPRETER_ERROR.
func Stderr(chunk string) Outbound { return Outbound{Type: TypeError, Error: chunk} }

// Closed builds INTERPRETER_CLOSED.
func Closed(code *int) Outbound { return Outbound{Type: TypeClosed, Code: code} }

// ProtocolError builds ERROR.
func ProtocolError(message string) Outbound {
	return Outbound{Type: TypeProtocolError, Message: message}
}

// Emitter delivers frames to one client. Implementations must be safe for
// concurrent use: process output arrives on its own goroutines.
type Emitter interface {
	Emit(Outbound) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Outbound) error

// Emit calls f(o).
func (f EmitterFunc) Emit(o Outbound) error { return f(o) }
