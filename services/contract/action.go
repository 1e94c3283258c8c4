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
	"strings"
)

// Kind tags an action variant.
type Kind string

const (
	// KindSendValue sends a value expression to a party or field.
	KindSendValue Kind = "SEND_VALUE"

	// KindSendCalc sends the result of a binary calculation.
	KindSendCalc Kind = "SEND_CALC"

	// KindMoveFull moves a whole asset.
	KindMoveFull Kind = "MOVE_FULL"

	// KindMovePart moves an amount of an asset.
	KindMovePart Kind = "MOVE_PART"

	// KindIf branches on a guard.
	KindIf Kind = "IF"

	// KindAfterTime fires a delay after the function runs.
	KindAfterTime Kind = "AFTER_TIME"

	// KindAtDate fires at an absolute date.
	KindAtDate Kind = "AT_DATE"
)

// kindAliases maps the short tags used by earlier project files.
var kindAliases = map[string]Kind{
	"SEND1": KindSendValue,
	"SEND2": KindSendCalc,
	"MOVE1": KindMoveFull,
	"MOVE2": KindMovePart,
	"WHEN1": KindAfterTime,
	"WHEN2": KindAtDate,
}

// ParseKind accepts a canonical kind name or one of the short aliases.
func ParseKind(s string) (Kind, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch k := Kind(s); k {
	case KindSendValue, KindSendCalc, KindMoveFull, KindMovePart, KindIf, KindAfterTime, KindAtDate:
		return k, nil
	}
	if k, ok := kindAliases[s]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// IsTrigger reports whether k is time-triggered.
func (k Kind) IsTrigger() bool {
	return k == KindAfterTime || k == KindAtDate
}

// Body is the kind-specific payload of an action. The set of
// implementations is closed to this package.
type Body interface {
	Kind() Kind
	isBody()
}

// SendValue renders as "Value -> To".
type SendValue struct {
	Value string
	To    string
}

// SendCalc renders as "(Left Operator Right) -> To".
type SendCalc struct {
	Left     string
	Operator string
	Right    string
	To       string
}

// MoveFull renders as "Asset -o To".
type MoveFull struct {
	Asset string
	To    string
}

// MovePart renders as "Amount, Asset -o To".
type MovePart struct {
	Amount string
	Asset  string
	To     string
}

// If holds a guard; its branches live in the Tree.
type If struct {
	Guard Condition
}

// AfterTime runs its then-branch Delay after the call, moving From to To.
type AfterTime struct {
	Delay string
	From  string
	To    string
}

// AtDate runs its then-branch at Date, moving From to To.
type AtDate struct {
	Date string
	From string
	To   string
}

func (SendValue) Kind() Kind { return KindSendValue }
func (SendCalc) Kind() Kind  { return KindSendCalc }
func (MoveFull) Kind() Kind  { return KindMoveFull }
func (MovePart) Kind() Kind  { return KindMovePart }
func (If) Kind() Kind        { return KindIf }
func (AfterTime) Kind() Kind { return KindAfterTime }
func (AtDate) Kind() Kind    { return KindAtDate }

func (SendValue) isBody() {}
func (SendCalc) isBody()  {}
func (MoveFull) isBody()  {}
func (MovePart) isBody()  {}
func (If) isBody()        {}
func (AfterTime) isBody() {}
func (AtDate) isBody()    {}

// EmptyBody returns the zero payload for k, as offered to a user picking a
// new action.
func EmptyBody(k Kind) (Body, error) {
	switch k {
	case KindSendValue:
		return SendValue{}, nil
	case KindSendCalc:
		return SendCalc{}, nil
	case KindMoveFull:
		return MoveFull{}, nil
	case KindMovePart:
		return MovePart{}, nil
	case KindIf:
		return If{}, nil
	case KindAfterTime:
		return AfterTime{}, nil
	case KindAtDate:
		return AtDate{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
}

// branches returns which branches a body of kind k owns.
func branches(k Kind) (then, els bool) {
	switch k {
	case KindIf:
		return true, true
	case KindAfterTime, KindAtDate:
		return true, false
	default:
		return false, false
	}
}
