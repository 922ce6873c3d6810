// Package replstate is the REPL's Past Definition ledger: every accumulated
// `let`-binding or import a session has seen, preserved in insertion order
// so later entries shadow earlier ones, plus a txtar-backed :save/:load
// archive format (golang.org/x/tools/txtar, already in the module graph via
// golang.org/x/tools) so a session's history round-trips as a real
// multi-file archive instead of a bespoke concatenation format.
package replstate

import (
	"fmt"
	"strings"

	"golang.org/x/tools/txtar"
)

// Kind distinguishes the two shapes a retained line can take.
type Kind int

const (
	KindAssignment Kind = iota
	KindImport
)

// Definition is one retained REPL input line.
type Definition struct {
	Source string
	Kind   Kind
	Name   string // the bound name, for assignments; empty for imports
}

// History is the ordered list of Past Definitions accumulated across a
// REPL session. Later entries shadow earlier same-named assignments in the
// composite source, but are never removed: re-evaluating an earlier
// expression still sees the full accumulated prefix up to that point.
type History struct {
	defs []Definition
}

// NewHistory returns an empty history.
func NewHistory() *History { return &History{} }

// Append records a new Past Definition.
func (h *History) Append(d Definition) { h.defs = append(h.defs, d) }

// All returns every retained definition, in insertion order.
func (h *History) All() []Definition { return h.defs }

// CompositeSource concatenates every assignment's source text, separated by
// newlines, forming the program the next expression is evaluated against.
// Import definitions stay in the ledger (and in :save archives) but
// contribute no source: module resolution lives outside this pipeline.
func (h *History) CompositeSource() string {
	var b strings.Builder
	for _, d := range h.defs {
		if d.Kind == KindImport {
			continue
		}
		b.WriteString(d.Source)
		b.WriteString("\n")
	}
	return b.String()
}

// Save renders the history as a txtar archive: one file section per
// definition, named by its 1-based position and, for assignments, the
// bound name — e.g. "0001-x.roc", "0002-import.roc".
func (h *History) Save() []byte {
	a := &txtar.Archive{}
	for i, d := range h.defs {
		name := "import"
		if d.Kind == KindAssignment {
			name = d.Name
		}
		a.Files = append(a.Files, txtar.File{
			Name: fmt.Sprintf("%04d-%s.roc", i+1, name),
			Data: []byte(d.Source + "\n"),
		})
	}
	return txtar.Format(a)
}

// Load returns a new History built by parsing a previously-Saved txtar
// archive.
// The Kind/Name of each restored definition is re-derived from its source
// text rather than from the archive filename, so a hand-edited archive
// still round-trips correctly.
func Load(data []byte) *History {
	a := txtar.Parse(data)
	h := NewHistory()
	for _, f := range a.Files {
		src := strings.TrimRight(string(f.Data), "\n")
		h.Append(classify(src))
	}
	return h
}

// LatestRHS returns the right-hand-side source text of the most recent
// assignment bound to name, so a caller can re-evaluate that expression
// against the session's current accumulated bindings rather than against a
// frozen reference captured when the assignment was first canonicalized.
// Re-entering a previously defined name recomputes it from whatever the
// latest redefinitions of its free variables are, not from the value it
// had when first bound.
func (h *History) LatestRHS(name string) (string, bool) {
	for i := len(h.defs) - 1; i >= 0; i-- {
		d := h.defs[i]
		if d.Kind != KindAssignment || d.Name != name {
			continue
		}
		eq := strings.IndexByte(d.Source, '=')
		if eq < 0 {
			continue
		}
		return strings.TrimSpace(d.Source[eq+1:]), true
	}
	return "", false
}

// classify re-derives a Definition's Kind/Name from its raw source text,
// using the same shape the REPL driver's own line classifier uses.
func classify(src string) Definition {
	trimmed := strings.TrimSpace(src)
	if strings.HasPrefix(trimmed, "import ") {
		return Definition{Source: src, Kind: KindImport}
	}
	if name, ok := assignmentName(trimmed); ok {
		return Definition{Source: src, Kind: KindAssignment, Name: name}
	}
	return Definition{Source: src, Kind: KindAssignment}
}

// assignmentName reports whether src looks like `name = ...` at the top
// level (a single `=`, not `==`, following a bare identifier) and, if so,
// returns the bound name.
func assignmentName(src string) (string, bool) {
	eq := strings.IndexByte(src, '=')
	if eq <= 0 || eq+1 >= len(src) || src[eq+1] == '=' {
		return "", false
	}
	name := strings.TrimSpace(src[:eq])
	if name == "" || !isIdentStart(name[0]) {
		return "", false
	}
	for i := 1; i < len(name); i++ {
		if !isIdentCont(name[i]) {
			return "", false
		}
	}
	return name, true
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentCont(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}
