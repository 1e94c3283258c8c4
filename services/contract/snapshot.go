// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package contract

import (
	"encoding/json"
	"fmt"
)

// Snapshot is the persisted form of a project: the model tree plus, when the
// user switched to manual editing, the edited text.
//
// The JSON layout is {"cont": {...}, "editedCode": "...", "textMode": true}.
// Higher-order inputs travel inside "cont" as "HOinputs".
type Snapshot struct {
	Contract   *Contract `json:"cont"`
	EditedCode string    `json:"editedCode,omitempty"`
	TextMode   bool      `json:"textMode,omitempty"`
}

// DecodeSnapshot parses a project file.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Contract == nil {
		s.Contract = New("")
	}
	return &s, nil
}

// Encode serializes the snapshot with stable indentation.
func (s *Snapshot) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

type wireClause struct {
	Par1 string `json:"par1"`
	Par2 string `json:"par2"`
	Par3 string `json:"par3"`
	Par4 string `json:"par4"`
}

type wireAction struct {
	ID         string       `json:"id"`
	Type       string       `json:"type"`
	Par1       string       `json:"par1"`
	Par2       string       `json:"par2"`
	Par3       string       `json:"par3"`
	Par4       string       `json:"par4"`
	Conditions []wireClause `json:"conditions,omitempty"`
	IfThen     []wireAction `json:"ifThen,omitempty"`
	ElseThen   []wireAction `json:"elseThen,omitempty"`
}

type wireFunction struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	IsHO       bool         `json:"isHO"`
	HOInput    string       `json:"HOinput"`
	FromState  NameSet      `json:"fromState"`
	ToState    string       `json:"toState"`
	Fields     NameSet      `json:"fields"`
	Assets     NameSet      `json:"assets"`
	Caller     NameSet      `json:"caller"`
	Conditions []wireClause `json:"conditions"`
	Actions    []wireAction `json:"actions"`
}

type wireAgreement struct {
	Fields  NameSet `json:"fields"`
	Parties NameSet `json:"parties"`
}

type wireInput struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type wireContract struct {
	Name       string          `json:"name"`
	Assets     NameSet         `json:"assets"`
	Fields     NameSet         `json:"fields"`
	Parties    NameSet         `json:"parties"`
	Agreements []wireAgreement `json:"agreements"`
	FirstState string          `json:"firstState"`
	Functions  []wireFunction  `json:"functions"`
	HOInputs   []wireInput     `json:"HOinputs"`
}

// MarshalJSON encodes the contract in the project file layout.
func (c *Contract) MarshalJSON() ([]byte, error) {
	w := wireContract{
		Name:       c.Name,
		Assets:     c.Assets,
		Fields:     c.Fields,
		Parties:    c.Parties,
		Agreements: []wireAgreement{},
		FirstState: c.FirstState,
		Functions:  []wireFunction{},
		HOInputs:   []wireInput{},
	}
	for _, a := range c.Agreements {
		w.Agreements = append(w.Agreements, wireAgreement{Fields: a.Fields, Parties: a.Parties})
	}
	for _, f := range c.functions {
		w.Functions = append(w.Functions, encodeFunction(f))
	}
	for _, in := range c.inputs {
		w.HOInputs = append(w.HOInputs, wireInput{Name: in.Name, Code: in.Source})
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the project file layout. Short action tags such as
// "MOVE1" are accepted. Names and states are kept exactly as stored; the
// generator normalizes them when it renders.
func (c *Contract) UnmarshalJSON(data []byte) error {
	var w wireContract
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode contract: %w", err)
	}

	out := Contract{
		Name:       w.Name,
		Assets:     w.Assets,
		Fields:     w.Fields,
		Parties:    w.Parties,
		FirstState: w.FirstState,
	}
	for _, a := range w.Agreements {
		out.Agreements = append(out.Agreements, Agreement{Fields: a.Fields, Parties: a.Parties})
	}
	for _, in := range w.HOInputs {
		out.inputs = append(out.inputs, HigherOrderInput{Name: in.Name, Source: in.Code})
	}
	for i, wf := range w.Functions {
		f, err := decodeFunction(wf)
		if err != nil {
			return fmt.Errorf("function %d (%q): %w", i, wf.Name, err)
		}
		if out.functionIndex(f.ID) >= 0 {
			return fmt.Errorf("function %d: %w: %s", i, ErrDuplicateFunction, f.ID)
		}
		out.functions = append(out.functions, f)
	}

	*c = out
	return nil
}

func encodeFunction(f *Function) wireFunction {
	w := wireFunction{
		ID:         string(f.ID),
		Name:       f.Name,
		IsHO:       f.HigherOrder,
		HOInput:    f.InputRef,
		FromState:  f.FromStates,
		ToState:    f.ToState,
		Fields:     f.Fields,
		Assets:     f.Assets,
		Caller:     f.Callers.names,
		Conditions: encodeCondition(f.Guard),
		Actions:    encodeActions(f.Tree(), Root),
	}
	if w.Actions == nil {
		w.Actions = []wireAction{}
	}
	return w
}

func decodeFunction(w wireFunction) (*Function, error) {
	f := &Function{
		ID:          FunctionID(w.ID),
		Name:        w.Name,
		HigherOrder: w.IsHO,
		InputRef:    w.HOInput,
		FromStates:  w.FromState,
		ToState:     w.ToState,
		Fields:      w.Fields,
		Assets:      w.Assets,
		Actions:     NewTree(),
	}
	if f.ID == "" {
		f.ID = NewFunctionID()
	}
	for _, name := range w.Caller.Names() {
		if err := f.Callers.Add(name); err != nil {
			return nil, err
		}
	}

	guard, err := decodeCondition(w.Conditions)
	if err != nil {
		return nil, fmt.Errorf("guard: %w", err)
	}
	f.Guard = guard

	if err := decodeActions(f.Actions, Root, w.Actions); err != nil {
		return nil, err
	}
	return f, nil
}

func encodeCondition(c Condition) []wireClause {
	clauses := c.Clauses()
	out := make([]wireClause, len(clauses))
	for i, cl := range clauses {
		out[i] = wireClause{Par1: cl.Left, Par2: cl.Comparator, Par3: cl.Right, Par4: string(cl.Join)}
	}
	return out
}

func decodeCondition(ws []wireClause) (Condition, error) {
	clauses := make([]Clause, len(ws))
	for i, w := range ws {
		clauses[i] = Clause{Left: w.Par1, Comparator: w.Par2, Right: w.Par3, Join: JoinOperator(w.Par4)}
	}
	return NewCondition(clauses...)
}

func encodeActions(t *Tree, slot Slot) []wireAction {
	ids := t.Children(slot)
	if len(ids) == 0 {
		return nil
	}
	out := make([]wireAction, 0, len(ids))
	for _, id := range ids {
		body, _ := t.Get(id)
		w := wireAction{ID: string(id), Type: string(body.Kind())}
		switch b := body.(type) {
		case SendValue:
			w.Par1, w.Par2 = b.Value, b.To
		case SendCalc:
			w.Par1, w.Par2, w.Par3, w.Par4 = b.Left, b.Operator, b.Right, b.To
		case MoveFull:
			w.Par1, w.Par2 = b.Asset, b.To
		case MovePart:
			w.Par1, w.Par2, w.Par3 = b.Amount, b.Asset, b.To
		case If:
			w.Conditions = encodeCondition(b.Guard)
			w.ElseThen = encodeActions(t, ElseOf(id))
		case AfterTime:
			w.Par1, w.Par2, w.Par3 = b.Delay, b.From, b.To
		case AtDate:
			w.Par1, w.Par2, w.Par3 = b.Date, b.From, b.To
		}
		if hasThen, _ := branches(body.Kind()); hasThen {
			w.IfThen = encodeActions(t, ThenOf(id))
		}
		out = append(out, w)
	}
	return out
}

func decodeActions(t *Tree, slot Slot, ws []wireAction) error {
	for _, w := range ws {
		kind, err := ParseKind(w.Type)
		if err != nil {
			return err
		}
		var body Body
		switch kind {
		case KindSendValue:
			body = SendValue{Value: w.Par1, To: w.Par2}
		case KindSendCalc:
			body = SendCalc{Left: w.Par1, Operator: w.Par2, Right: w.Par3, To: w.Par4}
		case KindMoveFull:
			body = MoveFull{Asset: w.Par1, To: w.Par2}
		case KindMovePart:
			body = MovePart{Amount: w.Par1, Asset: w.Par2, To: w.Par3}
		case KindIf:
			guard, err := decodeCondition(w.Conditions)
			if err != nil {
				return fmt.Errorf("action %s guard: %w", w.ID, err)
			}
			body = If{Guard: guard}
		case KindAfterTime:
			body = AfterTime{Delay: w.Par1, From: w.Par2, To: w.Par3}
		case KindAtDate:
			body = AtDate{Date: w.Par1, From: w.Par2, To: w.Par3}
		}

		id := ActionID(w.ID)
		if id == "" {
			id = NewActionID()
		}
		if err := t.attach(id, slot, -1, body); err != nil {
			return err
		}

		hasThen, hasElse := branches(kind)
		if hasThen {
			if err := decodeActions(t, ThenOf(id), w.IfThen); err != nil {
				return err
			}
		}
		if hasElse {
			if err := decodeActions(t, ElseOf(id), w.ElseThen); err != nil {
				return err
			}
		}
	}
	return nil
}
