// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package codegen renders a contract model as Stipula source.
//
// Rendering is pure and total: it never mutates the model and never fails.
// A missing operand renders as the placeholder "_", so a half-edited model
// still produces text the editor can show. Semantic checks (undeclared
// names, unreachable states) are left to the analyzers.
package codegen

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/StipulaForge/services/contract"
)

// Placeholder stands in for any missing operand.
const Placeholder = "_"

const indentUnit = "    "

// Render returns the source text of c.
func Render(c *contract.Contract) string {
	g := &generator{}
	g.contract(c)
	return g.sb.String()
}

// RenderHigherOrderInput returns the raw source of in verbatim.
func RenderHigherOrderInput(in contract.HigherOrderInput) string {
	return in.Source
}

type generator struct {
	sb     strings.Builder
	indent int
}

func (g *generator) emitLine(s string) {
	if s == "" {
		g.sb.WriteString("\n")
		return
	}
	g.sb.WriteString(strings.Repeat(indentUnit, g.indent))
	g.sb.WriteString(s)
	g.sb.WriteString("\n")
}

func (g *generator) emitLinef(format string, args ...any) {
	g.emitLine(fmt.Sprintf(format, args...))
}

func (g *generator) contract(c *contract.Contract) {
	g.emitLinef("stipula %s {", tok(c.Name))
	g.indent++

	if c.Assets.Len() > 0 {
		g.emitLinef("asset %s", c.Assets)
	}
	if c.Fields.Len() > 0 {
		g.emitLinef("field %s", c.Fields)
	}
	if c.Parties.Len() > 0 {
		g.emitLinef("party %s", c.Parties)
	}

	if len(c.Agreements) > 0 {
		g.emitLine("")
		g.emitLinef("agreement (%s) {", list(c.Parties.Names()))
		g.indent++
		for _, a := range c.Agreements {
			g.emitLinef("%s : %s", list(a.Parties.Names()), list(a.Fields.Names()))
		}
		g.indent--
		g.emitLine("}")
	}

	g.emitLine("")
	g.emitLinef("init %s", tok(c.FirstState))

	for _, f := range c.Functions() {
		g.emitLine("")
		g.function(f)
	}

	g.indent--
	g.emitLine("}")
}

func (g *generator) function(f *contract.Function) {
	var states []string
	for _, s := range f.FromStates.Names() {
		states = append(states, "@"+s)
	}
	if len(states) == 0 {
		states = []string{"@" + Placeholder}
	}

	header := fmt.Sprintf("%s %s : %s(%s)[%s]",
		strings.Join(states, " "),
		list(f.Callers.Names()),
		tok(f.Name),
		strings.Join(f.Fields.Names(), ", "),
		strings.Join(f.Assets.Names(), ", "),
	)

	if f.HigherOrder {
		g.emitLinef("%s HO %s", header, tok(f.InputRef))
		return
	}

	if guard := condition(f.Guard); guard != "" {
		header += " (" + guard + ")"
	}
	g.emitLine(header + " {")
	g.indent++
	g.actions(f.Tree(), contract.Root)
	g.indent--
	g.emitLinef("} ==> @%s", tok(f.ToState))
}

func (g *generator) actions(t *contract.Tree, slot contract.Slot) {
	for _, id := range t.Children(slot) {
		body, ok := t.Get(id)
		if !ok {
			continue
		}
		g.action(t, id, body)
	}
}

func (g *generator) action(t *contract.Tree, id contract.ActionID, body contract.Body) {
	switch b := body.(type) {
	case contract.SendValue:
		g.emitLinef("%s -> %s", tok(b.Value), tok(b.To))
	case contract.SendCalc:
		g.emitLinef("(%s %s %s) -> %s", tok(b.Left), tok(b.Operator), tok(b.Right), tok(b.To))
	case contract.MoveFull:
		g.emitLinef("%s -o %s", tok(b.Asset), tok(b.To))
	case contract.MovePart:
		g.emitLinef("%s, %s -o %s", tok(b.Amount), tok(b.Asset), tok(b.To))
	case contract.If:
		guard := condition(b.Guard)
		if guard == "" {
			guard = Placeholder
		}
		g.emitLinef("if (%s) {", guard)
		g.block(t, contract.ThenOf(id))
		if len(t.Children(contract.ElseOf(id))) > 0 {
			g.emitLine("} else {")
			g.block(t, contract.ElseOf(id))
		}
		g.emitLine("}")
	case contract.AfterTime:
		g.emitLinef("now + %s >> @%s {", tok(b.Delay), tok(b.From))
		g.block(t, contract.ThenOf(id))
		g.emitLinef("} ==> @%s", tok(b.To))
	case contract.AtDate:
		g.emitLinef("%s >> @%s {", tok(b.Date), tok(b.From))
		g.block(t, contract.ThenOf(id))
		g.emitLinef("} ==> @%s", tok(b.To))
	}
}

func (g *generator) block(t *contract.Tree, slot contract.Slot) {
	g.indent++
	g.actions(t, slot)
	g.indent--
}

// condition renders the non-blank clauses of c joined by their stored
// operators. A clause with no comparator renders as its left operand alone.
func condition(c contract.Condition) string {
	var sb strings.Builder
	var pending contract.JoinOperator
	for _, cl := range c.Clauses() {
		if cl.Blank() {
			continue
		}
		if sb.Len() > 0 {
			if pending == contract.JoinNone {
				pending = contract.JoinAnd
			}
			fmt.Fprintf(&sb, " %s ", pending)
		}
		if cl.Comparator == "" {
			sb.WriteString(tok(cl.Left))
		} else {
			fmt.Fprintf(&sb, "%s %s %s", tok(cl.Left), cl.Comparator, tok(cl.Right))
		}
		pending = cl.Join
	}
	return sb.String()
}

func tok(s string) string {
	if s = contract.Normalize(s); s == "" {
		return Placeholder
	}
	return s
}

func list(names []string) string {
	if len(names) == 0 {
		return Placeholder
	}
	return strings.Join(names, ", ")
}
