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

	"github.com/google/uuid"
)

// AnyParty is the caller sentinel meaning every party may call.
const AnyParty = "~"

// FunctionID identifies a function within a contract.
type FunctionID string

// NewFunctionID returns a fresh random identifier.
func NewFunctionID() FunctionID {
	return FunctionID(uuid.NewString())
}

// CallerSet holds the parties authorized to call a function. It is either
// exactly {AnyParty} or a set of specific party names, never a mix. A new
// function starts with no callers; once one is added the set never empties.
type CallerSet struct {
	names NameSet
}

// Add authorizes name. Adding AnyParty clears specific names; adding a
// specific name clears AnyParty.
func (c *CallerSet) Add(name string) error {
	name = Normalize(name)
	if name == "" {
		return ErrEmptyName
	}
	if name == AnyParty {
		c.names = NewNameSet(AnyParty)
		return nil
	}
	c.names.Remove(AnyParty)
	return c.names.Add(name)
}

// Remove revokes name. Removing an absent name is a no-op. The last caller
// cannot be removed; add the replacement first, or add AnyParty.
func (c *CallerSet) Remove(name string) error {
	name = Normalize(name)
	if !c.names.Contains(name) {
		return nil
	}
	if c.names.Len() == 1 {
		return fmt.Errorf("%w: %s", ErrLastCaller, name)
	}
	c.names.Remove(name)
	return nil
}

// IsAny reports whether every party may call.
func (c CallerSet) IsAny() bool {
	return c.names.Contains(AnyParty)
}

// Names returns the callers in insertion order.
func (c CallerSet) Names() []string {
	return c.names.Names()
}

// Len returns the number of entries, counting AnyParty as one.
func (c CallerSet) Len() int {
	return c.names.Len()
}

// Function is one state-transition function of a contract.
//
// For a higher-order function the body comes from the input named by
// InputRef; Guard and Actions are kept but not rendered.
type Function struct {
	ID          FunctionID
	Name        string
	HigherOrder bool
	InputRef    string
	FromStates  NameSet
	ToState     string
	Fields      NameSet
	Assets      NameSet
	Callers     CallerSet
	Guard       Condition
	Actions     *Tree
}

// NewFunction returns an empty function with a fresh id.
func NewFunction(name string) *Function {
	return &Function{
		ID:      NewFunctionID(),
		Name:    Normalize(name),
		Actions: NewTree(),
	}
}

// Tree returns the action tree, creating it on first use.
func (f *Function) Tree() *Tree {
	if f.Actions == nil {
		f.Actions = NewTree()
	}
	return f.Actions
}

// Clone returns a deep copy of f.
func (f *Function) Clone() *Function {
	c := *f
	c.FromStates = NameSet{names: slices.Clone(f.FromStates.names)}
	c.Fields = NameSet{names: slices.Clone(f.Fields.names)}
	c.Assets = NameSet{names: slices.Clone(f.Assets.names)}
	c.Callers = CallerSet{names: NameSet{names: slices.Clone(f.Callers.names.names)}}
	c.Actions = f.Tree().Clone()
	return &c
}
