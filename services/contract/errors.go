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

import "errors"

// Model errors. Every mutation that rejects its input wraps one of these.
var (
	// ErrEmptyName indicates a declared name was empty after normalization.
	ErrEmptyName = errors.New("name is empty")

	// ErrInvalidID indicates an empty action or function identifier.
	ErrInvalidID = errors.New("identifier is empty")

	// ErrUnknownAction indicates no action with the given id exists in the tree.
	ErrUnknownAction = errors.New("unknown action")

	// ErrDuplicateID indicates an action id is already present in the tree.
	ErrDuplicateID = errors.New("duplicate action id")

	// ErrKindMismatch indicates an update tried to change an action's kind.
	ErrKindMismatch = errors.New("action kind cannot change")

	// ErrCycle indicates a move would place an action inside its own subtree.
	ErrCycle = errors.New("action cannot contain itself")

	// ErrInvalidSlot indicates the target parent cannot hold children in the
	// requested branch.
	ErrInvalidSlot = errors.New("parent has no such branch")

	// ErrTriggerNotAtRoot indicates a time-triggered action outside a
	// function's top-level action list.
	ErrTriggerNotAtRoot = errors.New("time-triggered actions must be at the top level")

	// ErrNilBody indicates an insert or update without an action body.
	ErrNilBody = errors.New("action body is nil")

	// ErrUnknownKind indicates an unrecognized action type tag.
	ErrUnknownKind = errors.New("unknown action kind")

	// ErrClauseIndex indicates a condition clause index out of range.
	ErrClauseIndex = errors.New("clause index out of range")

	// ErrInvalidJoin indicates a join operator other than "", "&&" or "||".
	ErrInvalidJoin = errors.New("invalid join operator")

	// ErrInvalidComparator indicates an unsupported comparison operator.
	ErrInvalidComparator = errors.New("invalid comparator")

	// ErrUnknownFunction indicates no function with the given id exists.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrDuplicateFunction indicates a function id is already declared.
	ErrDuplicateFunction = errors.New("duplicate function id")

	// ErrUnknownInput indicates a higher-order input name that is not declared.
	ErrUnknownInput = errors.New("unknown higher-order input")

	// ErrLastCaller indicates an attempt to remove a function's only caller.
	ErrLastCaller = errors.New("function must keep at least one caller")

	// ErrTextMode indicates a model edit while the project is text-backed.
	ErrTextMode = errors.New("project is in text mode")
)
