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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContract_Functions(t *testing.T) {
	c := New("Shop")
	pay := NewFunction("pay")
	refund := NewFunction("refund")
	require.NoError(t, c.AddFunction(pay))
	require.NoError(t, c.AddFunction(refund))

	assert.ErrorIs(t, c.AddFunction(pay), ErrDuplicateFunction)

	got, err := c.Function(refund.ID)
	require.NoError(t, err)
	assert.Same(t, refund, got)

	require.NoError(t, c.MoveFunction(refund.ID, 0))
	assert.Equal(t, []*Function{refund, pay}, c.Functions())

	require.NoError(t, c.RemoveFunction(refund.ID))
	assert.Equal(t, []*Function{pay}, c.Functions())

	_, err = c.Function(refund.ID)
	assert.ErrorIs(t, err, ErrUnknownFunction)
	assert.ErrorIs(t, c.RemoveFunction(refund.ID), ErrUnknownFunction)
	assert.ErrorIs(t, c.MoveFunction(refund.ID, 0), ErrUnknownFunction)
}

func TestContract_AddFunctionAssignsMissingID(t *testing.T) {
	c := New("Shop")
	f := &Function{Name: "pay"}

	require.NoError(t, c.AddFunction(f))

	assert.NotEmpty(t, f.ID)
	assert.NotNil(t, f.Actions)
}

func TestContract_ReplaceFunction(t *testing.T) {
	c := New("Shop")
	pay := NewFunction("pay")
	require.NoError(t, c.AddFunction(pay))

	edited := pay.Clone()
	edited.ToState = "Done"
	require.NoError(t, c.ReplaceFunction(edited))

	got, _ := c.Function(pay.ID)
	assert.Equal(t, "Done", got.ToState)
	assert.ErrorIs(t, c.ReplaceFunction(NewFunction("other")), ErrUnknownFunction)
}

func TestContract_InputsAreAutoNamed(t *testing.T) {
	c := New("HO")

	first := c.AddInput("a")
	second := c.AddInput("b")
	assert.Equal(t, "input_code_1", first.Name)
	assert.Equal(t, "input_code_2", second.Name)

	require.NoError(t, c.RemoveInput("input_code_1"))
	third := c.AddInput("c")
	assert.Equal(t, "input_code_2", c.Inputs()[0].Name)
	assert.Equal(t, "input_code_3", third.Name)

	require.NoError(t, c.SetInputSource("input_code_3", "cc"))
	in, err := c.Input("input_code_3")
	require.NoError(t, err)
	assert.Equal(t, "cc", in.Source)

	assert.ErrorIs(t, c.SetInputSource("nope", ""), ErrUnknownInput)
	assert.ErrorIs(t, c.RemoveInput("nope"), ErrUnknownInput)
}

func TestContract_HigherOrderRefMustResolve(t *testing.T) {
	c := New("HO")
	f := NewFunction("delegate")
	f.HigherOrder = true
	f.InputRef = "input_code_1"

	assert.ErrorIs(t, c.AddFunction(f), ErrUnknownInput)

	in := c.AddInput("body")
	require.NoError(t, c.AddFunction(f))

	g := NewFunction("other")
	require.NoError(t, c.AddFunction(g))
	assert.ErrorIs(t, c.BindHigherOrder(g.ID, "input_code_9"), ErrUnknownInput)
	require.NoError(t, c.BindHigherOrder(g.ID, in.Name))
	assert.True(t, g.HigherOrder)
	assert.Equal(t, in.Name, g.InputRef)

	assert.ErrorIs(t, c.BindHigherOrder("missing", in.Name), ErrUnknownFunction)
}

func TestContract_RemovingDeclarationDoesNotCascade(t *testing.T) {
	c := New("Shop")
	require.NoError(t, c.Parties.Add("Alice"))
	f := NewFunction("pay")
	require.NoError(t, f.Callers.Add("Alice"))
	require.NoError(t, c.AddFunction(f))

	c.Parties.Remove("Alice")

	assert.Equal(t, []string{"Alice"}, f.Callers.Names())
}

func TestContract_Agreements(t *testing.T) {
	c := New("Rent")
	c.AddAgreement([]string{"cost", "cost"}, []string{"Alice", "Bob"})

	require.Len(t, c.Agreements, 1)
	assert.Equal(t, []string{"cost"}, c.Agreements[0].Fields.Names())
	assert.Error(t, c.RemoveAgreement(3))
	require.NoError(t, c.RemoveAgreement(0))
	assert.Nil(t, c.Agreements)
}

func TestContract_CloneIsDeep(t *testing.T) {
	c := New("Rent")
	require.NoError(t, c.Assets.Add("Coin"))
	c.AddAgreement([]string{"cost"}, []string{"Alice"})
	c.AddInput("src")
	f := NewFunction("pay")
	require.NoError(t, c.AddFunction(f))

	clone := c.Clone()
	require.Equal(t, c, clone)

	require.NoError(t, clone.Assets.Add("Token"))
	require.NoError(t, clone.Agreements[0].Parties.Add("Bob"))
	clone.Functions()[0].Name = "renamed"

	assert.Equal(t, []string{"Coin"}, c.Assets.Names())
	assert.Equal(t, []string{"Alice"}, c.Agreements[0].Parties.Names())
	assert.Equal(t, "pay", c.Functions()[0].Name)
}
