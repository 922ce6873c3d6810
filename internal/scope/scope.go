// Package scope implements the nested scope stack and the per-function
// capture-recording frames that drive free-variable analysis during
// canonicalization. Resolving a name below the current function context
// threads the capture outward through every enclosing context, the way
// upvalue resolution does in a closure compiler. Everything here is
// single-threaded; scopes live only for the duration of one
// canonicalization pass.
package scope

import (
	"github.com/lukewilliamboswell/roc-sub001/internal/cir"
	"github.com/lukewilliamboswell/roc-sub001/internal/ident"
)

// Frame is one lexical scope: a name-to-pattern binding table plus the
// depth it was pushed at.
type Frame struct {
	bindings map[ident.Identifier]cir.PatternIdx
	depth    uint32
}

// Capture is one accumulated capture: the pattern captured and the scope
// depth it was bound at, always strictly below the capturing function
// context's own depth.
type Capture struct {
	Pattern    cir.PatternIdx
	ScopeDepth uint32
}

// FuncContext is a lambda's capture-accumulation frame, pushed on lambda
// entry and popped on lambda exit. It is distinct from a Frame: a lambda's
// body may open several nested block scopes that all share one FuncContext.
type FuncContext struct {
	depth    uint32
	captures map[cir.PatternIdx]bool
	order    []Capture // insertion order, for deterministic capture lists
}

// Stack is a pair of parallel stacks: a scope stack for name resolution and
// a function-context stack for capture recording.
type Stack struct {
	frames []*Frame
	funcs  []*FuncContext
}

// New returns an empty scope stack.
func New() *Stack {
	return &Stack{}
}

// PushScope opens a new lexical scope (block or lambda-parameter scope).
func (s *Stack) PushScope() {
	depth := uint32(len(s.frames))
	s.frames = append(s.frames, &Frame{bindings: make(map[ident.Identifier]cir.PatternIdx), depth: depth})
}

// PopScope closes the innermost lexical scope.
func (s *Stack) PopScope() {
	s.frames = s.frames[:len(s.frames)-1]
}

// Depth returns the number of currently open scopes.
func (s *Stack) Depth() uint32 { return uint32(len(s.frames)) }

// Bind records that name resolves to pattern within the innermost scope.
// Returns false if name is already bound in that exact scope; the new
// pattern replaces the old one either way. The canonicalizer does not use
// this result: it reports ident_already_in_scope through BoundAnywhere, so a
// rebinding of a name from any enclosing scope is reported too.
func (s *Stack) Bind(name ident.Identifier, pattern cir.PatternIdx) bool {
	top := s.frames[len(s.frames)-1]
	if _, exists := top.bindings[name]; exists {
		top.bindings[name] = pattern
		return false
	}
	top.bindings[name] = pattern
	return true
}

// BoundAnywhere reports whether name is visible in any open scope. Unlike
// Lookup it records no capture — it exists so a binder can report a
// redefinition without perturbing capture analysis.
func (s *Stack) BoundAnywhere(name ident.Identifier) bool {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if _, ok := s.frames[i].bindings[name]; ok {
			return true
		}
	}
	return false
}

// Resolution is the result of a name lookup.
type Resolution struct {
	Found      bool
	Pattern    cir.PatternIdx
	ScopeDepth uint32
}

// Lookup walks the scope stack outward from the innermost frame. As a side
// effect of the lookup (capture recording runs alongside resolution, not as
// a separate free-variable pass), if the resolved binding lives at a depth
// below the current function context, it is added as a capture to every
// function context whose depth exceeds that binding's scope depth — nested
// lambdas must all capture it, since the inner captures traverse the outer.
func (s *Stack) Lookup(name ident.Identifier) Resolution {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if p, ok := s.frames[i].bindings[name]; ok {
			depth := s.frames[i].depth
			s.recordCaptureIfNeeded(p, depth)
			return Resolution{Found: true, Pattern: p, ScopeDepth: depth}
		}
	}
	return Resolution{}
}

func (s *Stack) recordCaptureIfNeeded(pattern cir.PatternIdx, scopeDepth uint32) {
	for _, fc := range s.funcs {
		if fc.depth > scopeDepth && !fc.captures[pattern] {
			fc.captures[pattern] = true
			fc.order = append(fc.order, Capture{Pattern: pattern, ScopeDepth: scopeDepth})
		}
	}
}

// PushFunc pushes a new function context at the current scope depth.
func (s *Stack) PushFunc() {
	s.funcs = append(s.funcs, &FuncContext{depth: s.Depth(), captures: make(map[cir.PatternIdx]bool)})
}

// PopFunc pops the innermost function context and returns its accumulated
// captures in deterministic (first-referenced) order.
func (s *Stack) PopFunc() []Capture {
	top := s.funcs[len(s.funcs)-1]
	s.funcs = s.funcs[:len(s.funcs)-1]
	return top.order
}
