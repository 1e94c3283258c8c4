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
	"slices"
	"strings"
)

// Normalize trims s and collapses every run of whitespace to a single space.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NameSet is an insertion-ordered set of normalized names.
//
// The zero value is an empty set ready to use.
type NameSet struct {
	names []string
}

// NewNameSet builds a set from names, skipping blanks and duplicates.
func NewNameSet(names ...string) NameSet {
	var s NameSet
	for _, n := range names {
		_ = s.Add(n)
	}
	return s
}

// Add normalizes name and appends it unless already present.
// Returns ErrEmptyName when nothing is left after normalization.
func (s *NameSet) Add(name string) error {
	name = Normalize(name)
	if name == "" {
		return ErrEmptyName
	}
	if slices.Contains(s.names, name) {
		return nil
	}
	s.names = append(s.names, name)
	return nil
}

// Remove deletes name and reports whether it was present.
func (s *NameSet) Remove(name string) bool {
	i := slices.Index(s.names, Normalize(name))
	if i < 0 {
		return false
	}
	s.names = slices.Delete(slices.Clone(s.names), i, i+1)
	if len(s.names) == 0 {
		s.names = nil
	}
	return true
}

// Contains reports whether the normalized name is in the set.
func (s NameSet) Contains(name string) bool {
	return slices.Contains(s.names, Normalize(name))
}

// Names returns the members in insertion order.
func (s NameSet) Names() []string {
	return slices.Clone(s.names)
}

// Len returns the number of members.
func (s NameSet) Len() int {
	return len(s.names)
}

// String joins the members with ", ".
func (s NameSet) String() string {
	return strings.Join(s.names, ", ")
}

// MarshalJSON encodes the set as a JSON array, never null.
func (s NameSet) MarshalJSON() ([]byte, error) {
	if s.names == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.names)
}

// UnmarshalJSON decodes a JSON array, normalizing and deduplicating members.
func (s *NameSet) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode name set: %w", err)
	}
	*s = NewNameSet(raw...)
	return nil
}
