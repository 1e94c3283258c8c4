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

// =============================================================================
// Trailing Slot Invariant
// =============================================================================

func TestCondition_ZeroValueHasOneBlankClause(t *testing.T) {
	var c Condition

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, []Clause{{}}, c.Clauses())
	assert.True(t, c.IsEmpty())
}

func TestCondition_AppendAlwaysAddsOneTrailingBlank(t *testing.T) {
	for _, op := range []JoinOperator{JoinAnd, JoinOr} {
		var c Condition
		for n := 1; n <= 4; n++ {
			require.Equal(t, n, c.Len())
			last, err := c.Clause(n - 1)
			require.NoError(t, err)
			require.Equal(t, JoinNone, last.Join)

			require.NoError(t, c.Append(op))

			clauses := c.Clauses()
			require.Len(t, clauses, n+1)
			assert.Equal(t, op, clauses[n-1].Join)
			assert.Equal(t, Clause{}, clauses[n])
		}
	}
}

func TestCondition_SetJoinOnMiddleClauseDoesNotGrow(t *testing.T) {
	var c Condition
	require.NoError(t, c.Append(JoinAnd))
	require.NoError(t, c.Append(JoinAnd))
	require.Equal(t, 3, c.Len())

	require.NoError(t, c.SetJoin(0, JoinOr))

	clauses := c.Clauses()
	require.Len(t, clauses, 3)
	assert.Equal(t, []JoinOperator{JoinOr, JoinAnd, JoinNone},
		[]JoinOperator{clauses[0].Join, clauses[1].Join, clauses[2].Join})
}

func TestCondition_SetJoinNoneTruncates(t *testing.T) {
	var c Condition
	require.NoError(t, c.SetOperands(0, "x", ">", "1"))
	require.NoError(t, c.Append(JoinAnd))
	require.NoError(t, c.SetOperands(1, "y", "<", "2"))
	require.NoError(t, c.Append(JoinOr))
	require.Equal(t, 3, c.Len())

	require.NoError(t, c.SetJoin(0, JoinNone))

	assert.Equal(t, []Clause{{Left: "x", Comparator: ">", Right: "1"}}, c.Clauses())
}

func TestCondition_Errors(t *testing.T) {
	var c Condition

	assert.ErrorIs(t, c.SetJoin(0, "and"), ErrInvalidJoin)
	assert.ErrorIs(t, c.SetJoin(1, JoinAnd), ErrClauseIndex)
	assert.ErrorIs(t, c.SetJoin(-1, JoinAnd), ErrClauseIndex)
	assert.ErrorIs(t, c.Append(JoinNone), ErrInvalidJoin)
	assert.ErrorIs(t, c.SetOperands(0, "a", "=<", "b"), ErrInvalidComparator)
	assert.ErrorIs(t, c.SetOperands(3, "a", "==", "b"), ErrClauseIndex)

	_, err := c.Clause(2)
	assert.ErrorIs(t, err, ErrClauseIndex)
}

func TestNewCondition_Canonicalizes(t *testing.T) {
	tests := []struct {
		name string
		in   []Clause
		want []Clause
	}{
		{
			name: "trailing join grows",
			in:   []Clause{{Left: "a", Comparator: "==", Right: "1", Join: JoinAnd}},
			want: []Clause{{Left: "a", Comparator: "==", Right: "1", Join: JoinAnd}, {}},
		},
		{
			name: "early end truncates",
			in: []Clause{
				{Left: "a", Comparator: "==", Right: "1"},
				{Left: "b", Comparator: "==", Right: "2"},
			},
			want: []Clause{{Left: "a", Comparator: "==", Right: "1"}},
		},
		{
			name: "nothing",
			in:   nil,
			want: []Clause{{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCondition(tt.in...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Clauses())
		})
	}
}

func TestNewCondition_RejectsBadOperators(t *testing.T) {
	_, err := NewCondition(Clause{Comparator: "~="})
	assert.ErrorIs(t, err, ErrInvalidComparator)

	_, err = NewCondition(Clause{Join: "AND"})
	assert.ErrorIs(t, err, ErrInvalidJoin)
}

func TestCondition_CopiesAreIndependent(t *testing.T) {
	var c Condition
	require.NoError(t, c.SetOperands(0, "a", "==", "1"))
	require.NoError(t, c.Append(JoinAnd))

	copied := c
	require.NoError(t, copied.SetOperands(0, "z", "!=", "9"))
	require.NoError(t, copied.SetJoin(0, JoinNone))

	assert.Equal(t, 2, c.Len())
	first, _ := c.Clause(0)
	assert.Equal(t, "a", first.Left)
}

func TestCondition_BlankClauseCollapses(t *testing.T) {
	var c Condition
	require.NoError(t, c.SetOperands(0, "a", "==", "1"))
	require.NoError(t, c.SetOperands(0, "", "", ""))

	assert.Equal(t, Condition{}, c)
	assert.True(t, c.IsEmpty())
}
