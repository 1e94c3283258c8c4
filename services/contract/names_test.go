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

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Coin", "Coin"},
		{"  Coin  ", "Coin"},
		{"Bike \t  Rental\n", "Bike Rental"},
		{"   ", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

func TestNameSet_AddDeduplicatesAfterNormalizing(t *testing.T) {
	var s NameSet

	require.NoError(t, s.Add("Alice"))
	require.NoError(t, s.Add("  Alice "))
	require.NoError(t, s.Add("Bob"))

	assert.Equal(t, []string{"Alice", "Bob"}, s.Names())
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains(" Bob"))
	assert.Equal(t, "Alice, Bob", s.String())
}

func TestNameSet_AddEmpty(t *testing.T) {
	var s NameSet
	assert.ErrorIs(t, s.Add(" \t "), ErrEmptyName)
	assert.Zero(t, s.Len())
}

func TestNameSet_Remove(t *testing.T) {
	s := NewNameSet("a", "b", "c")

	assert.True(t, s.Remove("b"))
	assert.False(t, s.Remove("b"))
	assert.Equal(t, []string{"a", "c"}, s.Names())

	s.Remove("a")
	s.Remove("c")
	assert.Equal(t, NameSet{}, s)
}

func TestNameSet_RemoveDoesNotAliasCopies(t *testing.T) {
	s := NewNameSet("a", "b", "c")
	copied := s

	s.Remove("a")

	assert.Equal(t, []string{"a", "b", "c"}, copied.Names())
}

func TestNameSet_JSON(t *testing.T) {
	var empty NameSet
	data, err := empty.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	var s NameSet
	require.NoError(t, s.UnmarshalJSON([]byte(`["x", " x ", "", "y  z"]`)))
	assert.Equal(t, []string{"x", "y z"}, s.Names())

	assert.Error(t, s.UnmarshalJSON([]byte(`{"x":1}`)))
}
