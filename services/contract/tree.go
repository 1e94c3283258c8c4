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

// ActionID identifies an action independently of its list position.
type ActionID string

// NewActionID returns a fresh random identifier.
func NewActionID() ActionID {
	return ActionID(uuid.NewString())
}

// Branch selects one of a container action's child lists.
type Branch int

const (
	// BranchThen is the body of IF, AFTER_TIME and AT_DATE.
	BranchThen Branch = iota

	// BranchElse is the alternative body of IF.
	BranchElse
)

// String returns "then" or "else".
func (b Branch) String() string {
	if b == BranchElse {
		return "else"
	}
	return "then"
}

// Slot addresses an ordered child list: a branch of Parent, or the top-level
// list when Parent is empty.
type Slot struct {
	Parent ActionID
	Branch Branch
}

// Root is the top-level action list of a function.
var Root = Slot{}

// IsRoot reports whether s addresses the top-level list.
func (s Slot) IsRoot() bool {
	return s.Parent == ""
}

// ThenOf addresses the then-branch of id.
func ThenOf(id ActionID) Slot { return Slot{Parent: id, Branch: BranchThen} }

// ElseOf addresses the else-branch of id.
func ElseOf(id ActionID) Slot { return Slot{Parent: id, Branch: BranchElse} }

type node struct {
	body Body
	slot Slot
	then []ActionID
	els  []ActionID
}

// Tree is an arena of actions keyed by ActionID. Sibling order lives in the
// parent's child list; branch containment is the only parent relation, so
// the structure is always a forest.
//
// Thread Safety: Tree is not safe for concurrent mutation.
type Tree struct {
	nodes map[ActionID]*node
	root  []ActionID
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{nodes: make(map[ActionID]*node)}
}

// Len returns the total number of actions at every depth.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Get returns the body of id.
func (t *Tree) Get(id ActionID) (Body, bool) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, false
	}
	return n.body, true
}

// SlotOf returns the list id currently lives in.
func (t *Tree) SlotOf(id ActionID) (Slot, bool) {
	n, ok := t.nodes[id]
	if !ok {
		return Slot{}, false
	}
	return n.slot, true
}

// Children returns a copy of the ids in slot, in order. Unknown or
// branchless slots yield nil.
func (t *Tree) Children(slot Slot) []ActionID {
	list, err := t.list(slot)
	if err != nil {
		return nil
	}
	return slices.Clone(*list)
}

// Insert adds body to slot at index and returns its new id. An index that is
// negative or past the end appends.
func (t *Tree) Insert(slot Slot, index int, body Body) (ActionID, error) {
	id := NewActionID()
	if err := t.InsertWithID(id, slot, index, body); err != nil {
		return "", err
	}
	return id, nil
}

// Append adds body at the end of slot.
func (t *Tree) Append(slot Slot, body Body) (ActionID, error) {
	return t.Insert(slot, -1, body)
}

// InsertWithID is Insert with a caller-chosen id, used when restoring
// snapshots.
func (t *Tree) InsertWithID(id ActionID, slot Slot, index int, body Body) error {
	if body == nil {
		return ErrNilBody
	}
	if body.Kind().IsTrigger() && !slot.IsRoot() {
		return fmt.Errorf("insert %s: %w", body.Kind(), ErrTriggerNotAtRoot)
	}
	return t.attach(id, slot, index, body)
}

// attach links a new node without the top-level trigger rule. Snapshot
// decoding uses it directly so hand-edited project files still load.
func (t *Tree) attach(id ActionID, slot Slot, index int, body Body) error {
	if id == "" {
		return ErrInvalidID
	}
	if _, exists := t.nodes[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	list, err := t.list(slot)
	if err != nil {
		return err
	}

	if t.nodes == nil {
		t.nodes = make(map[ActionID]*node)
	}
	t.nodes[id] = &node{body: body, slot: slot}
	*list = insertAt(*list, index, id)
	return nil
}

// Update replaces the payload of id. The kind must not change.
func (t *Tree) Update(id ActionID, body Body) error {
	if body == nil {
		return ErrNilBody
	}
	n, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, id)
	}
	if n.body.Kind() != body.Kind() {
		return fmt.Errorf("%w: %s to %s", ErrKindMismatch, n.body.Kind(), body.Kind())
	}
	n.body = body
	return nil
}

// Delete removes id and its whole subtree.
func (t *Tree) Delete(id ActionID) error {
	n, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, id)
	}
	list, err := t.list(n.slot)
	if err != nil {
		return err
	}
	*list = removeID(*list, id)
	t.drop(id)
	return nil
}

// Move detaches id and reinserts it in slot at index. The index refers to
// the destination list after detaching.
func (t *Tree) Move(id ActionID, slot Slot, index int) error {
	n, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, id)
	}
	if n.body.Kind().IsTrigger() && !slot.IsRoot() {
		return fmt.Errorf("move %s: %w", n.body.Kind(), ErrTriggerNotAtRoot)
	}
	for p := slot.Parent; p != ""; {
		if p == id {
			return ErrCycle
		}
		pn, ok := t.nodes[p]
		if !ok {
			break
		}
		p = pn.slot.Parent
	}
	dst, err := t.list(slot)
	if err != nil {
		return err
	}
	src, err := t.list(n.slot)
	if err != nil {
		return err
	}

	*src = removeID(*src, id)
	*dst = insertAt(*dst, index, id)
	n.slot = slot
	return nil
}

// Clone returns a deep copy sharing no mutable state with t.
func (t *Tree) Clone() *Tree {
	c := &Tree{
		nodes: make(map[ActionID]*node, len(t.nodes)),
		root:  slices.Clone(t.root),
	}
	for id, n := range t.nodes {
		c.nodes[id] = &node{
			body: n.body,
			slot: n.slot,
			then: slices.Clone(n.then),
			els:  slices.Clone(n.els),
		}
	}
	return c
}

// Walk visits every action depth-first in render order: then-branch before
// else-branch. depth is 0 for top-level actions.
func (t *Tree) Walk(fn func(id ActionID, body Body, depth int)) {
	t.walk(t.root, 0, fn)
}

func (t *Tree) walk(ids []ActionID, depth int, fn func(ActionID, Body, int)) {
	for _, id := range ids {
		n := t.nodes[id]
		fn(id, n.body, depth)
		t.walk(n.then, depth+1, fn)
		t.walk(n.els, depth+1, fn)
	}
}

// list resolves slot to a pointer at the backing child list.
func (t *Tree) list(slot Slot) (*[]ActionID, error) {
	if slot.IsRoot() {
		return &t.root, nil
	}
	p, ok := t.nodes[slot.Parent]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, slot.Parent)
	}
	hasThen, hasElse := branches(p.body.Kind())
	switch {
	case slot.Branch == BranchThen && hasThen:
		return &p.then, nil
	case slot.Branch == BranchElse && hasElse:
		return &p.els, nil
	default:
		return nil, fmt.Errorf("%w: %s of %s", ErrInvalidSlot, slot.Branch, p.body.Kind())
	}
}

func (t *Tree) drop(id ActionID) {
	n := t.nodes[id]
	for _, c := range n.then {
		t.drop(c)
	}
	for _, c := range n.els {
		t.drop(c)
	}
	delete(t.nodes, id)
}

func insertAt(list []ActionID, index int, id ActionID) []ActionID {
	if index < 0 || index > len(list) {
		index = len(list)
	}
	return slices.Insert(slices.Clone(list), index, id)
}

func removeID(list []ActionID, id ActionID) []ActionID {
	i := slices.Index(list, id)
	if i < 0 {
		return list
	}
	out := slices.Delete(slices.Clone(list), i, i+1)
	if len(out) == 0 {
		return nil
	}
	return out
}
