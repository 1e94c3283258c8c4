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
	"fmt"
	"slices"
	"strconv"
)

// InputNamePrefix starts every generated higher-order input name.
const InputNamePrefix = "input_code_"

// Agreement names the fields that the listed parties must agree on before
// the contract starts.
type Agreement struct {
	Fields  NameSet
	Parties NameSet
}

// HigherOrderInput is an externally supplied function body, kept verbatim.
type HigherOrderInput struct {
	Name   string
	Source string
}

// Contract is the root of the editable model.
//
// Thread Safety: Contract is not safe for concurrent mutation; it is owned
// by a single editing context.
type Contract struct {
	Name       string
	Assets     NameSet
	Fields     NameSet
	Parties    NameSet
	Agreements []Agreement
	FirstState string

	functions []*Function
	inputs    []HigherOrderInput
}

// New returns an empty contract.
func New(name string) *Contract {
	return &Contract{Name: Normalize(name)}
}

// Functions returns the functions in declaration order. The pointers are
// live: editing a returned function edits the contract.
func (c *Contract) Functions() []*Function {
	return slices.Clone(c.functions)
}

// Function looks up a function by id.
func (c *Contract) Function(id FunctionID) (*Function, error) {
	i := c.functionIndex(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, id)
	}
	return c.functions[i], nil
}

// AddFunction appends f. A missing id is generated.
func (c *Contract) AddFunction(f *Function) error {
	if f.ID == "" {
		f.ID = NewFunctionID()
	}
	if c.functionIndex(f.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateFunction, f.ID)
	}
	if err := c.checkInputRef(f); err != nil {
		return err
	}
	f.Tree()
	c.functions = append(c.functions, f)
	return nil
}

// ReplaceFunction swaps in f for the function with the same id, keeping its
// position.
func (c *Contract) ReplaceFunction(f *Function) error {
	i := c.functionIndex(f.ID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownFunction, f.ID)
	}
	if err := c.checkInputRef(f); err != nil {
		return err
	}
	f.Tree()
	c.functions = slices.Clone(c.functions)
	c.functions[i] = f
	return nil
}

// RemoveFunction deletes the function with id.
func (c *Contract) RemoveFunction(id FunctionID) error {
	i := c.functionIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownFunction, id)
	}
	c.functions = slices.Delete(slices.Clone(c.functions), i, i+1)
	if len(c.functions) == 0 {
		c.functions = nil
	}
	return nil
}

// MoveFunction repositions a function. Out-of-range indexes move it last.
func (c *Contract) MoveFunction(id FunctionID, index int) error {
	i := c.functionIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownFunction, id)
	}
	f := c.functions[i]
	rest := slices.Delete(slices.Clone(c.functions), i, i+1)
	if index < 0 || index > len(rest) {
		index = len(rest)
	}
	c.functions = slices.Insert(rest, index, f)
	return nil
}

// Inputs returns the higher-order inputs in declaration order.
func (c *Contract) Inputs() []HigherOrderInput {
	return slices.Clone(c.inputs)
}

// Input looks up a higher-order input by name.
func (c *Contract) Input(name string) (HigherOrderInput, error) {
	i := c.inputIndex(name)
	if i < 0 {
		return HigherOrderInput{}, fmt.Errorf("%w: %q", ErrUnknownInput, name)
	}
	return c.inputs[i], nil
}

// AddInput declares a new higher-order input named input_code_N, where N is
// the lowest number above the current count that is not taken.
func (c *Contract) AddInput(source string) HigherOrderInput {
	n := len(c.inputs) + 1
	for c.inputIndex(InputNamePrefix+strconv.Itoa(n)) >= 0 {
		n++
	}
	in := HigherOrderInput{Name: InputNamePrefix + strconv.Itoa(n), Source: source}
	c.inputs = append(c.inputs, in)
	return in
}

// SetInputSource replaces the raw source of a declared input.
func (c *Contract) SetInputSource(name, source string) error {
	i := c.inputIndex(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownInput, name)
	}
	c.inputs = slices.Clone(c.inputs)
	c.inputs[i].Source = source
	return nil
}

// RemoveInput deletes an input. Functions bound to it keep their reference
// and render it as-is.
func (c *Contract) RemoveInput(name string) error {
	i := c.inputIndex(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownInput, name)
	}
	c.inputs = slices.Delete(slices.Clone(c.inputs), i, i+1)
	if len(c.inputs) == 0 {
		c.inputs = nil
	}
	return nil
}

// BindHigherOrder marks a function higher-order and points it at input.
func (c *Contract) BindHigherOrder(id FunctionID, input string) error {
	f, err := c.Function(id)
	if err != nil {
		return err
	}
	if c.inputIndex(input) < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownInput, input)
	}
	f.HigherOrder = true
	f.InputRef = input
	return nil
}

// AddAgreement appends an agreement clause.
func (c *Contract) AddAgreement(fields, parties []string) {
	c.Agreements = append(c.Agreements, Agreement{
		Fields:  NewNameSet(fields...),
		Parties: NewNameSet(parties...),
	})
}

// RemoveAgreement deletes the agreement at index i.
func (c *Contract) RemoveAgreement(i int) error {
	if i < 0 || i >= len(c.Agreements) {
		return fmt.Errorf("agreement index %d out of range", i)
	}
	c.Agreements = slices.Delete(slices.Clone(c.Agreements), i, i+1)
	if len(c.Agreements) == 0 {
		c.Agreements = nil
	}
	return nil
}

// Clone returns a deep copy of c.
func (c *Contract) Clone() *Contract {
	out := *c
	out.Assets = NameSet{names: slices.Clone(c.Assets.names)}
	out.Fields = NameSet{names: slices.Clone(c.Fields.names)}
	out.Parties = NameSet{names: slices.Clone(c.Parties.names)}
	out.Agreements = nil
	for _, a := range c.Agreements {
		out.Agreements = append(out.Agreements, Agreement{
			Fields:  NameSet{names: slices.Clone(a.Fields.names)},
			Parties: NameSet{names: slices.Clone(a.Parties.names)},
		})
	}
	out.functions = nil
	for _, f := range c.functions {
		out.functions = append(out.functions, f.Clone())
	}
	out.inputs = slices.Clone(c.inputs)
	return &out
}

// checkInputRef enforces that a higher-order function names a declared input.
func (c *Contract) checkInputRef(f *Function) error {
	if !f.HigherOrder {
		return nil
	}
	if c.inputIndex(f.InputRef) < 0 {
		return fmt.Errorf("function %q: %w: %q", f.Name, ErrUnknownInput, f.InputRef)
	}
	return nil
}

func (c *Contract) functionIndex(id FunctionID) int {
	return slices.IndexFunc(c.functions, func(f *Function) bool { return f.ID == id })
}

func (c *Contract) inputIndex(name string) int {
	return slices.IndexFunc(c.inputs, func(in HigherOrderInput) bool { return in.Name == name })
}
