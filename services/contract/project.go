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

import "sync"

// Mode says which representation of a project is authoritative.
type Mode int

const (
	// ModeModel renders code from the model on every read.
	ModeModel Mode = iota

	// ModeText uses manually edited text; model edits are refused.
	ModeText
)

// String returns "model" or "text".
func (m Mode) String() string {
	if m == ModeText {
		return "text"
	}
	return "model"
}

// Renderer turns a contract into source text.
type Renderer func(*Contract) string

// Project is the editing context of one open contract. It owns the model and
// decides whether the model or the edited text is the source of truth.
//
// Thread Safety: Project is safe for concurrent use.
type Project struct {
	mu     sync.RWMutex
	model  *Contract
	text   string
	mode   Mode
	render Renderer
}

// NewProject wraps c. A nil c starts an empty contract.
func NewProject(c *Contract, render Renderer) *Project {
	if c == nil {
		c = New("")
	}
	return &Project{model: c, render: render}
}

// ProjectFromSnapshot restores an editing context, including text mode.
func ProjectFromSnapshot(s *Snapshot, render Renderer) *Project {
	p := NewProject(s.Contract, render)
	if s.TextMode {
		p.mode = ModeText
		p.text = s.EditedCode
	}
	return p
}

// Mode returns the current mode.
func (p *Project) Mode() Mode {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.mode
}

// Edit runs fn against the model. It fails with ErrTextMode while the
// project is text-backed, and fn is not called.
func (p *Project) Edit(fn func(*Contract) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mode == ModeText {
		return ErrTextMode
	}
	return fn(p.model)
}

// View runs fn against the model without allowing the mode to change.
func (p *Project) View(fn func(*Contract)) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	fn(p.model)
}

// Code returns the authoritative source text.
func (p *Project) Code() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.mode == ModeText {
		return p.text
	}
	return p.render(p.model)
}

// EnterTextMode detaches the text from the model, seeding it with the
// current rendering. Calling it in text mode keeps the existing text.
func (p *Project) EnterTextMode() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mode == ModeModel {
		p.text = p.render(p.model)
		p.mode = ModeText
	}
	return p.text
}

// SetText replaces the edited text, switching to text mode if needed.
func (p *Project) SetText(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.text = text
	p.mode = ModeText
}

// ResetToModel discards the edited text and makes the model authoritative.
func (p *Project) ResetToModel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.text = ""
	p.mode = ModeModel
}

// Snapshot captures the project for persistence. The contract is cloned.
func (p *Project) Snapshot() *Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := &Snapshot{Contract: p.model.Clone()}
	if p.mode == ModeText {
		s.TextMode = true
		s.EditedCode = p.text
	}
	return s
}
