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
)

// JoinOperator links a clause to the next one in a Condition.
type JoinOperator string

const (
	// JoinNone ends the clause chain.
	JoinNone JoinOperator = ""

	// JoinAnd requires both neighbouring clauses.
	JoinAnd JoinOperator = "&&"

	// JoinOr requires either neighbouring clause.
	JoinOr JoinOperator = "||"
)

// Valid reports whether j is one of the three join operators.
func (j JoinOperator) Valid() bool {
	return j == JoinNone || j == JoinAnd || j == JoinOr
}

var comparators = []string{"", "==", "!=", "<", "<=", ">", ">="}

// Clause is one comparison in a guard.
type Clause struct {
	Left       string
	Comparator string
	Right      string
	Join       JoinOperator
}

// Blank reports whether the clause carries no operand or comparator text.
func (c Clause) Blank() bool {
	return Normalize(c.Left) == "" && c.Comparator == "" && Normalize(c.Right) == ""
}

// Condition is an ordered chain of clauses.
//
// The last clause always has JoinNone, and a JoinNone clause always ends the
// chain, so a condition has exactly one trailing editable slot. The zero value
// is a condition holding a single blank clause.
//
// Mutations never modify a backing array shared with a copy, so Condition
// values can be copied freely.
type Condition struct {
	clauses []Clause
}

// NewCondition builds a condition from clauses.
//
// Clauses after the first JoinNone are dropped and a trailing blank clause is
// appended when the last one has a join operator.
func NewCondition(clauses ...Clause) (Condition, error) {
	for i, cl := range clauses {
		if !cl.Join.Valid() {
			return Condition{}, fmt.Errorf("clause %d: %w: %q", i, ErrInvalidJoin, cl.Join)
		}
		if !slices.Contains(comparators, cl.Comparator) {
			return Condition{}, fmt.Errorf("clause %d: %w: %q", i, ErrInvalidComparator, cl.Comparator)
		}
	}
	return Condition{clauses: canonicalClauses(slices.Clone(clauses))}, nil
}

// Len returns the number of clauses, including the trailing slot.
func (c Condition) Len() int {
	if len(c.clauses) == 0 {
		return 1
	}
	return len(c.clauses)
}

// Clauses returns a copy of the clause chain. It always has at least one entry.
func (c Condition) Clauses() []Clause {
	if len(c.clauses) == 0 {
		return []Clause{{}}
	}
	return slices.Clone(c.clauses)
}

// Clause returns the clause at index i.
func (c Condition) Clause(i int) (Clause, error) {
	if i < 0 || i >= c.Len() {
		return Clause{}, fmt.Errorf("%w: %d", ErrClauseIndex, i)
	}
	return c.Clauses()[i], nil
}

// IsEmpty reports whether every clause is blank.
func (c Condition) IsEmpty() bool {
	for _, cl := range c.clauses {
		if !cl.Blank() {
			return false
		}
	}
	return true
}

// SetJoin sets the join operator of clause i.
//
// JoinNone truncates every clause after i. A non-empty operator on the last
// clause appends one blank clause so the chain keeps its trailing slot.
func (c *Condition) SetJoin(i int, op JoinOperator) error {
	if !op.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidJoin, op)
	}
	if i < 0 || i >= c.Len() {
		return fmt.Errorf("%w: %d", ErrClauseIndex, i)
	}

	clauses := c.Clauses()
	clauses[i].Join = op
	if op == JoinNone {
		clauses = clauses[:i+1]
	} else if i == len(clauses)-1 {
		clauses = append(clauses, Clause{})
	}
	c.clauses = canonicalClauses(clauses)
	return nil
}

// Append chains a new blank clause after the current last one using op.
func (c *Condition) Append(op JoinOperator) error {
	if op == JoinNone {
		return fmt.Errorf("%w: append needs && or ||", ErrInvalidJoin)
	}
	return c.SetJoin(c.Len()-1, op)
}

// SetOperands replaces the operands and comparator of clause i, keeping its join.
func (c *Condition) SetOperands(i int, left, comparator, right string) error {
	if !slices.Contains(comparators, comparator) {
		return fmt.Errorf("%w: %q", ErrInvalidComparator, comparator)
	}
	if i < 0 || i >= c.Len() {
		return fmt.Errorf("%w: %d", ErrClauseIndex, i)
	}

	clauses := c.Clauses()
	clauses[i].Left = left
	clauses[i].Comparator = comparator
	clauses[i].Right = right
	c.clauses = canonicalClauses(clauses)
	return nil
}

// canonicalClauses enforces the chain invariants. A chain reduced to one
// blank clause is stored as nil so equal conditions compare equal.
func canonicalClauses(clauses []Clause) []Clause {
	for i, cl := range clauses {
		if cl.Join == JoinNone {
			clauses = clauses[:i+1]
			break
		}
	}
	if n := len(clauses); n > 0 && clauses[n-1].Join != JoinNone {
		clauses = append(clauses, Clause{})
	}
	if len(clauses) == 0 || (len(clauses) == 1 && clauses[0] == (Clause{})) {
		return nil
	}
	return clauses
}
